package document

import (
	"context"

	"github.com/quarryhq/quarry/internal/domain"
)

// Get returns the live entity for an identity, consulting the cache first.
// opts.Version pins a historical version under a version-qualified cache key,
// so pinned entries are never silently overwritten by newer state.
func (s *Service) Get(ctx context.Context, domainID, collectionID, docID string, opts GetOptions) (*Entity, error) {
	collectionID = s.kind.collection(collectionID)

	key := domain.UniqueID(domainID, collectionID, docID)
	if opts.Version > 0 {
		key = domain.VersionedID(domainID, collectionID, docID, opts.Version)
	}
	if e, ok := s.cache.Get(key); ok {
		return e, nil
	}

	snap, err := s.gw.Get(ctx, domain.AllAlias(domainID, collectionID), docID, opts.Version)
	if err != nil {
		return nil, err
	}

	// Denormalize the physical index so later conditioned writes address the
	// segment the snapshot actually lives in.
	state, err := amendMeta(snap.Source, func(meta map[string]any) {
		meta["index"] = snap.Index
	})
	if err != nil {
		return nil, err
	}

	e, err := newEntity(s, domainID, collectionID, docID, state)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, e)
	return e, nil
}
