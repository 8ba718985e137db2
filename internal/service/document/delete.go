package document

import (
	"context"
	"fmt"

	"github.com/quarryhq/quarry/internal/domain"
)

// Delete emits a tombstone event capturing the full prior document, removes
// the physical snapshot in the same atomic write, and evicts the cache
// entry. Deletion is final through this interface; the event history
// (tombstone included) remains queryable, and recovery is a replay concern
// for external tooling.
func (e *Entity) Delete(ctx context.Context, authorID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tombstone, err := domain.TombstoneEvent(e.id, e.state, e.meta.Version+1, authorID, e.svc.now())
	if err != nil {
		return fmt.Errorf("build tombstone: %w", err)
	}

	bulk := []domain.BulkOp{
		{
			Kind:  domain.OpAppendEvent,
			Index: domain.EventAlias(e.domainID, e.collectionID),
			Event: &tombstone,
		},
		{
			Kind:  domain.OpDeleteSnapshot,
			Index: e.writeIndex(e.meta),
			ID:    e.id,
		},
	}
	if err := e.svc.gw.BulkWrite(ctx, bulk); err != nil {
		return err
	}

	e.svc.cache.Del(e.uniqueID())
	return nil
}
