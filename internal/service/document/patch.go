package document

import (
	"context"
	"errors"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	json "github.com/goccy/go-json"

	"github.com/quarryhq/quarry/internal/domain"
)

// Patch applies RFC 6902 operations to the document content, appends the
// matching event records, and writes the new snapshot conditioned on the
// version the patch was computed against. On success the entity's held state
// advances and the cached instance is re-inserted under its key; the same
// object identity keeps serving other holders.
//
// Concurrency control lives exclusively in the version-conditioned write: a
// lost race surfaces as domain.ErrVersionConflict with no mutation, and the
// caller must re-fetch and retry. This layer never retries.
func (e *Entity) Patch(ctx context.Context, authorID string, ops []domain.Operation) error {
	if err := e.apply(ctx, authorID, ops); err != nil {
		return err
	}
	e.svc.cache.Set(e.uniqueID(), e)
	return nil
}

// PatchMeta rewrites the operations to be rooted at /_meta and applies them
// through the same versioned path, then evicts the cache entry: metadata
// changes must never be served stale. Returns the updated _meta.
func (e *Entity) PatchMeta(ctx context.Context, authorID string, ops []domain.Operation) (domain.Meta, error) {
	rooted := make([]domain.Operation, len(ops))
	for i, op := range ops {
		rooted[i] = op
		rooted[i].Path = "/" + domain.MetaKey + op.Path
		if op.From != "" {
			rooted[i].From = "/" + domain.MetaKey + op.From
		}
	}

	if err := e.apply(ctx, authorID, rooted); err != nil {
		return domain.Meta{}, err
	}
	e.svc.cache.Del(e.uniqueID())
	return e.Meta(), nil
}

func (e *Entity) apply(ctx context.Context, authorID string, ops []domain.Operation) error {
	return e.applyWith(ctx, authorID, func(domain.Meta) ([]domain.Operation, error) {
		return ops, nil
	})
}

// applyWith is the routine shared by Patch, PatchMeta, and ACL edits. build
// derives the operations from the locked metadata, so ops computed against
// the current state (index-based ACL diffs in particular) cannot go stale
// between being built and being applied: another writer on the same cached
// instance waits on the lock until both steps are done.
func (e *Entity) applyWith(ctx context.Context, authorID string, build func(meta domain.Meta) ([]domain.Operation, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur := e.state
	meta := e.meta

	ops, err := build(meta)
	if err != nil {
		return err
	}

	// 1. Validate against the current snapshot; no side effects on failure.
	raw, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPatchValidation, err)
	}
	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPatchValidation, err)
	}

	// 2. Apply to a copy; the held state is untouched until the write commits.
	next, err := patch.Apply(cur)
	if err != nil {
		return classifyPatchErr(err)
	}

	now := e.svc.now()
	newVersion := meta.Version + 1

	next, err = amendMeta(next, func(m map[string]any) {
		m["version"] = newVersion
		m["updated"] = now
		m["author"] = authorID
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPatchApply, err)
	}
	newMeta, err := decodeMeta(next)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPatchApply, err)
	}

	// 3. One atomic multi-operation write: events plus the conditioned
	// snapshot. Either all of it commits or none.
	eventAlias := domain.EventAlias(e.domainID, e.collectionID)
	var bulk []domain.BulkOp

	// The first mutation since creation also logs the whole pre-mutation
	// document, so the event log is self-contained even though creation
	// itself is not logged.
	if meta.Fresh() {
		created, err := domain.CreationEvent(e.id, cur, meta.Version, authorID, now)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPatchApply, err)
		}
		bulk = append(bulk, domain.BulkOp{Kind: domain.OpAppendEvent, Index: eventAlias, Event: &created})
	}

	logged, err := domain.StringifyOps(ops)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPatchApply, err)
	}
	bulk = append(bulk, domain.BulkOp{
		Kind:  domain.OpAppendEvent,
		Index: eventAlias,
		Event: &domain.Event{
			DocID:   e.id,
			Patch:   logged,
			Version: newVersion,
			Meta:    domain.EventMeta{Author: authorID, Created: now},
		},
	})

	bulk = append(bulk, domain.BulkOp{
		Kind:            domain.OpPutSnapshot,
		Index:           e.writeIndex(meta),
		ID:              e.id,
		Version:         newVersion,
		ExpectedVersion: meta.Version,
		Doc:             next,
	})

	if err := e.svc.gw.BulkWrite(ctx, bulk); err != nil {
		// A lost race means this instance is stale; drop it from the cache
		// so the caller's re-fetch starts from the winner's version.
		if errors.Is(err, domain.ErrVersionConflict) {
			e.svc.cache.Del(e.uniqueID())
		}
		return err
	}

	// 4. Swap the held state reference; holders of this instance observe the
	// complete new state or the complete old one, never a mix.
	e.swapLocked(next, newMeta)
	return nil
}

// writeIndex is the snapshot write target: the physical index the entity was
// read from, or the hot alias for freshly created entities.
func (e *Entity) writeIndex(meta domain.Meta) string {
	if meta.Index != "" {
		return meta.Index
	}
	return domain.HotAlias(e.domainID, e.collectionID)
}

// classifyPatchErr separates inapplicable patches (validation) from
// application failures.
func classifyPatchErr(err error) error {
	switch {
	case errors.Is(err, jsonpatch.ErrTestFailed),
		errors.Is(err, jsonpatch.ErrMissing),
		errors.Is(err, jsonpatch.ErrUnknownType),
		errors.Is(err, jsonpatch.ErrInvalid):
		return fmt.Errorf("%w: %v", domain.ErrPatchValidation, err)
	default:
		return fmt.Errorf("%w: %v", domain.ErrPatchApply, err)
	}
}
