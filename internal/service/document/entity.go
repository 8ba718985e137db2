package document

import (
	"fmt"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/quarryhq/quarry/internal/domain"
)

// Entity is the live in-memory representation of one versioned document.
// Its state is held as canonical JSON and replaced wholesale on mutation:
// each successful patch computes the next state as a fresh value and swaps
// the reference under the lock, so other holders of the same cached instance
// never observe a half-applied intermediate.
type Entity struct {
	svc *Service

	domainID     string
	collectionID string
	id           string

	mu    sync.RWMutex
	state []byte
	meta  domain.Meta
}

func newEntity(svc *Service, domainID, collectionID, id string, state []byte) (*Entity, error) {
	meta, err := decodeMeta(state)
	if err != nil {
		return nil, err
	}
	return &Entity{
		svc:          svc,
		domainID:     domainID,
		collectionID: collectionID,
		id:           id,
		state:        state,
		meta:         meta,
	}, nil
}

// DomainID returns the owning tenant.
func (e *Entity) DomainID() string { return e.domainID }

// CollectionID returns the owning collection.
func (e *Entity) CollectionID() string { return e.collectionID }

// ID returns the document id within its collection.
func (e *Entity) ID() string { return e.id }

// Meta returns a copy of the current bookkeeping block.
func (e *Entity) Meta() domain.Meta {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m := e.meta
	m.ACL = m.ACL.Clone()
	return m
}

// Version returns the current optimistic-concurrency token.
func (e *Entity) Version() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.meta.Version
}

// Data decodes the full document, including _meta, into a fresh map. Callers
// get their own copy; mutating it never touches the entity.
func (e *Entity) Data() (map[string]any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var doc map[string]any
	if err := json.Unmarshal(e.state, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", e.id, err)
	}
	return doc, nil
}

// Raw returns a copy of the canonical JSON state.
func (e *Entity) Raw() []byte {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]byte, len(e.state))
	copy(out, e.state)
	return out
}

// swap installs the next state. Caller holds e.mu.
func (e *Entity) swapLocked(state []byte, meta domain.Meta) {
	e.state = state
	e.meta = meta
}

// uniqueID is the entity's unversioned cache key.
func (e *Entity) uniqueID() string {
	return domain.UniqueID(e.domainID, e.collectionID, e.id)
}

// decodeMeta extracts the _meta block from a canonical state.
func decodeMeta(state []byte) (domain.Meta, error) {
	var env struct {
		Meta domain.Meta `json:"_meta"`
	}
	if err := json.Unmarshal(state, &env); err != nil {
		return domain.Meta{}, fmt.Errorf("decode _meta: %w", err)
	}
	return env.Meta, nil
}

// amendMeta decodes state, lets fn adjust the _meta map, and re-encodes.
// The _meta block is created when absent.
func amendMeta(state []byte, fn func(meta map[string]any)) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(state, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	meta, _ := doc[domain.MetaKey].(map[string]any)
	if meta == nil {
		meta = map[string]any{}
	}
	fn(meta)
	doc[domain.MetaKey] = meta
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return out, nil
}
