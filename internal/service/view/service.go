// Package view implements the view entity kind: saved queries over a scope
// of collections. Views reuse the document engine unmodified for
// single-document operations and add joined multi-index search, distinct
// values, and index refresh.
package view

import (
	"context"
	"log/slog"

	"github.com/quarryhq/quarry/internal/cache"
	"github.com/quarryhq/quarry/internal/domain"
	"github.com/quarryhq/quarry/internal/service/document"
)

// Collection is the fixed collection views live in.
const Collection = ".views"

// Service composes the document engine with view-specific query shaping.
type Service struct {
	log  *slog.Logger
	gw   document.Gateway
	docs *document.Service
}

// New creates the view engine.
func New(log *slog.Logger, gw document.Gateway, cacheCfg cache.Config) *Service {
	return &Service{
		log: log,
		gw:  gw,
		docs: document.New(log, gw, cacheCfg, document.Kind{
			Collection:    Collection,
			DefaultMetaID: ".meta-view",
		}),
	}
}

// Create stores a new view document.
func (s *Service) Create(ctx context.Context, authorID, domainID, viewID string, data map[string]any, opts document.CreateOptions) (*document.Entity, error) {
	return s.docs.Create(ctx, authorID, domainID, "", viewID, data, opts)
}

// Get returns a view by id.
func (s *Service) Get(ctx context.Context, domainID, viewID string, opts document.GetOptions) (*document.Entity, error) {
	return s.docs.Get(ctx, domainID, "", viewID, opts)
}

// Find searches the domain's views.
func (s *Service) Find(ctx context.Context, domainID string, q domain.Query, opts document.FindOptions) (document.FindResult, error) {
	return s.docs.Find(ctx, domainID, "", q, opts)
}

// FindDocuments searches the documents in the view's scope: the collections
// named by its `collections` field, joined into one multi-index request. An
// empty scope means every collection in the domain.
func (s *Service) FindDocuments(ctx context.Context, v *document.Entity, q domain.Query, opts document.FindOptions) (document.FindResult, error) {
	scope, err := scopeOf(v)
	if err != nil {
		return document.FindResult{}, err
	}
	return s.docs.FindOn(ctx, domain.JoinAllAliases(v.DomainID(), scope), q, opts)
}

// DistinctOptions tunes a distinct-values query.
type DistinctOptions struct {
	// Size caps the number of values; 0 means the backend default.
	Size int
	// Include keeps only values matching this wildcard.
	Include string
}

// Distinct returns the deduplicated values of a field across the view's
// scope, via a terms aggregation.
func (s *Service) Distinct(ctx context.Context, v *document.Entity, field string, opts DistinctOptions) ([]string, error) {
	scope, err := scopeOf(v)
	if err != nil {
		return nil, err
	}
	res, err := s.gw.Search(ctx, domain.SearchRequest{
		Index: domain.JoinAllAliases(v.DomainID(), scope),
		Agg: &domain.TermsAgg{
			Field:   field,
			Size:    opts.Size,
			Include: opts.Include,
		},
	})
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// Refresh makes the latest writes in the view's scope visible to subsequent
// searches. Used after bulk provisioning or before a read that must be
// strongly consistent with a just-completed write.
func (s *Service) Refresh(ctx context.Context, v *document.Entity) error {
	scope, err := scopeOf(v)
	if err != nil {
		return err
	}
	return s.gw.Refresh(ctx, domain.JoinAllAliases(v.DomainID(), scope))
}

// scopeOf reads the view's `collections` field. Absent or empty means the
// whole domain.
func scopeOf(v *document.Entity) ([]string, error) {
	doc, err := v.Data()
	if err != nil {
		return nil, err
	}
	raw, ok := doc["collections"].([]any)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		if s, ok := c.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}
