// Package tenant implements the domain entity kind. Domains are documents
// in the root tenant's ".domains" collection; creating one provisions its
// collection indices and seed entities first, deleting one tears its
// indices down.
package tenant

import (
	"context"
	"log/slog"

	"github.com/quarryhq/quarry/internal/cache"
	"github.com/quarryhq/quarry/internal/domain"
	"github.com/quarryhq/quarry/internal/service/document"
)

// Collection is the root collection domains live in.
const Collection = ".domains"

type gateway interface {
	document.Gateway
	DeleteIndices(ctx context.Context, pattern string) error
}

type provisioner interface {
	InitDomain(ctx context.Context, authorID, domainID string) error
}

// Service composes the document engine with tenant lifecycle.
type Service struct {
	log  *slog.Logger
	gw   gateway
	prov provisioner
	docs *document.Service
}

// New creates the tenant engine.
func New(log *slog.Logger, gw gateway, prov provisioner, cacheCfg cache.Config) *Service {
	return &Service{
		log:  log,
		gw:   gw,
		prov: prov,
		docs: document.New(log, gw, cacheCfg, document.Kind{
			Collection:    Collection,
			DefaultMetaID: ".meta-domain",
		}),
	}
}

// Create provisions the new domain's indices and seed entities, then stores
// the domain document in the root tenant. By the time Create returns, the
// domain is ready for document traffic.
func (s *Service) Create(ctx context.Context, authorID, domainID string, data map[string]any, opts document.CreateOptions) (*document.Entity, error) {
	if err := s.prov.InitDomain(ctx, authorID, domainID); err != nil {
		return nil, err
	}

	e, err := s.docs.Create(ctx, authorID, domain.RootDomain, "", domainID, data, opts)
	if err != nil {
		return nil, err
	}

	s.log.Info("domain created",
		slog.String("domain", domainID),
		slog.String("author", authorID),
	)
	return e, nil
}

// Get returns a domain document by id.
func (s *Service) Get(ctx context.Context, domainID string, opts document.GetOptions) (*document.Entity, error) {
	return s.docs.Get(ctx, domain.RootDomain, "", domainID, opts)
}

// Find searches the registered domains.
func (s *Service) Find(ctx context.Context, q domain.Query, opts document.FindOptions) (document.FindResult, error) {
	return s.docs.Find(ctx, domain.RootDomain, "", q, opts)
}

// Delete removes the domain document and then drops every index the tenant
// owns, snapshots and event logs included.
func (s *Service) Delete(ctx context.Context, authorID string, e *document.Entity) error {
	domainID := e.ID()
	if err := e.Delete(ctx, authorID); err != nil {
		return err
	}
	if err := s.gw.DeleteIndices(ctx, domainID+"~*"); err != nil {
		return err
	}

	s.log.Info("domain deleted",
		slog.String("domain", domainID),
		slog.String("author", authorID),
	)
	return nil
}

// FindCollections searches the domain's collection registry.
func (s *Service) FindCollections(ctx context.Context, domainID string, q domain.Query, opts document.FindOptions) (document.FindResult, error) {
	return s.docs.FindOn(ctx, domain.AllAlias(domainID, ".collections"), q, opts)
}

// DistinctCollections returns the deduplicated values of a field across the
// domain's collection registry, optionally filtered by a wildcard.
func (s *Service) DistinctCollections(ctx context.Context, domainID, field, wildcard string) ([]string, error) {
	res, err := s.gw.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(domainID, ".collections"),
		Agg: &domain.TermsAgg{
			Field:   field,
			Include: wildcard,
		},
	})
	if err != nil {
		return nil, err
	}
	return res.Values, nil
}

// Refresh makes the domain's latest writes visible to searches.
func (s *Service) Refresh(ctx context.Context, domainID string) error {
	return s.gw.Refresh(ctx, domainID+"~*")
}
