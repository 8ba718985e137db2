package document

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/wI2L/jsondiff"

	"github.com/quarryhq/quarry/internal/domain"
)

// errACLUnchanged short-circuits applyWith when clearing a subject that
// grants nothing.
var errACLUnchanged = errors.New("acl unchanged")

// ClearACLSubject removes subjectID from every ACL bucket matching method
// (all methods when "*") and subjectKind (all kinds when "*"). The removal
// is expressed as an RFC 6902 diff against the current ACL and applied
// through the same versioned patch path, then the cache entry is evicted.
// The diff is built inside the write critical section: its remove ops
// address bucket entries by array index, which only stays correct while no
// other writer can slip in between diffing and applying.
//
// Policy for the no-op case: an empty diff short-circuits — no event is
// emitted and the version does not advance.
func (e *Entity) ClearACLSubject(ctx context.Context, visitorID, method, subjectKind, subjectID string) (domain.ACL, error) {
	var cleared domain.ACL
	err := e.applyWith(ctx, visitorID, func(meta domain.Meta) ([]domain.Operation, error) {
		current := meta.ACL.Clone()
		next := current.ClearSubject(method, subjectKind, subjectID)

		ops, err := aclDiff(current, next)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrPatchApply, err)
		}
		if len(ops) == 0 {
			cleared = current
			return nil, errACLUnchanged
		}
		cleared = next
		return ops, nil
	})
	switch {
	case errors.Is(err, errACLUnchanged):
		return cleared, nil
	case err != nil:
		return nil, err
	}
	e.svc.cache.Del(e.uniqueID())
	return cleared, nil
}

// aclDiff computes RFC 6902 operations turning one ACL into another, rooted
// at /_meta/acl.
func aclDiff(from, to domain.ACL) ([]domain.Operation, error) {
	src := map[string]any{domain.MetaKey: map[string]any{"acl": from}}
	dst := map[string]any{domain.MetaKey: map[string]any{"acl": to}}

	patch, err := jsondiff.Compare(src, dst)
	if err != nil {
		return nil, err
	}

	ops := make([]domain.Operation, 0, len(patch))
	for _, op := range patch {
		converted := domain.Operation{Op: op.Type, Path: op.Path, From: op.From}
		if op.Type != jsondiff.OperationRemove && op.Type != jsondiff.OperationMove {
			val, err := json.Marshal(op.Value)
			if err != nil {
				return nil, err
			}
			converted.Value = val
		}
		ops = append(ops, converted)
	}
	return ops, nil
}
