// Package document implements the versioned-entity engine shared by every
// entity kind: optimistic-concurrency patch application, event-log emission,
// cache coherence, and ACL mutation. Typed kinds (views, tenants, ...) are
// parameterized compositions of this one engine, not subclasses.
package document

import (
	"context"
	"log/slog"
	"time"

	"github.com/quarryhq/quarry/internal/cache"
	"github.com/quarryhq/quarry/internal/domain"
)

// Gateway is the backend-store contract the engine consumes. The PostgreSQL
// adapter satisfies it; tests substitute in-memory fakes.
type Gateway interface {
	Get(ctx context.Context, index, id string, version int64) (domain.Snapshot, error)
	Search(ctx context.Context, req domain.SearchRequest) (domain.SearchResult, error)
	BulkWrite(ctx context.Context, ops []domain.BulkOp) error
	Scroll(ctx context.Context, scrollID string) (domain.SearchResult, error)
	ClearScroll(ctx context.Context, scrollID string) error
	Refresh(ctx context.Context, pattern string) error
}

// DefaultACL is the baseline grant merged into every created entity beneath
// any caller-supplied ACL.
var DefaultACL = domain.ACL{
	"*": {"roles": {"administrator"}},
}

// Kind describes one entity kind: where its documents live by default and
// what bookkeeping defaults they are created with. The zero Kind is the
// plain-document kind.
type Kind struct {
	// Collection fixes the collection id for kinds that own one (".views",
	// ".domains", ...). Empty means the caller addresses any collection.
	Collection string

	// DefaultMetaID is stamped into _meta.metaId when the caller supplies
	// none.
	DefaultMetaID string

	// DefaultACL supplements the engine-wide DefaultACL for this kind.
	DefaultACL domain.ACL
}

// collection resolves the effective collection for a call.
func (k Kind) collection(requested string) string {
	if k.Collection != "" {
		return k.Collection
	}
	return requested
}

// Service is the entity engine for one kind. All dependencies are injected
// at construction; it holds no ambient state.
type Service struct {
	log   *slog.Logger
	gw    Gateway
	cache *cache.Cache[*Entity]
	kind  Kind
	now   func() int64
}

// New creates an engine. cacheCfg bounds the per-kind entity cache.
func New(log *slog.Logger, gw Gateway, cacheCfg cache.Config, kind Kind) *Service {
	return &Service{
		log:   log,
		gw:    gw,
		cache: cache.New[*Entity](cacheCfg),
		kind:  kind,
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Kind returns the kind descriptor this engine was built with.
func (s *Service) Kind() Kind { return s.kind }

// Gateway exposes the injected backend gateway to composing kinds.
func (s *Service) Gateway() Gateway { return s.gw }

// CreateOptions tunes Create.
type CreateOptions struct {
	// Overwrite replaces an existing document instead of failing with
	// ErrAlreadyExists.
	Overwrite bool
}

// GetOptions tunes Get.
type GetOptions struct {
	// Version pins a historical version. Zero means current.
	Version int64
}

// FindOptions carries paging, sorting, and scrolling for Find.
type FindOptions struct {
	Sort []domain.SortField
	From int
	Size int
	// Scroll opens a cursor kept alive for this duration when positive.
	Scroll time.Duration
}

// EventsOptions pages through an entity's event history.
type EventsOptions struct {
	From int
	Size int
}

// FindResult is the shape consumed by presentation and CLI collaborators.
type FindResult struct {
	Total     int64
	Offset    int
	Documents []map[string]any
	ScrollID  string
}

// EventsResult is the event-history page shape.
type EventsResult struct {
	Total  int64
	Offset int
	Events []domain.Event
}
