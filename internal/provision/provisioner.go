// Package provision bootstraps domains: it creates the backing indices for
// every default collection and writes the seed entities (collections, metas,
// pages, roles, the author's profile, and in the root domain the bootstrap
// users) in one atomic bulk.
package provision

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/quarryhq/quarry/internal/domain"
)

// gateway is the backend surface provisioning consumes.
type gateway interface {
	EnsureIndex(ctx context.Context, name string) error
	BulkWrite(ctx context.Context, ops []domain.BulkOp) error
	Refresh(ctx context.Context, pattern string) error
}

// defaultACL is the baseline grant stamped into every seed.
var defaultACL = domain.ACL{"*": {"roles": {"administrator"}}}

// Config carries the bootstrap credentials written into the root domain.
type Config struct {
	AdminPassword     string `yaml:"admin_password" env:"PROVISION_ADMIN_PASSWORD" env-default:"administrator"`
	AnonymousPassword string `yaml:"anonymous_password" env:"PROVISION_ANONYMOUS_PASSWORD" env-default:"anonymous"`
}

// Provisioner initializes domains against a backend gateway.
type Provisioner struct {
	log *slog.Logger
	gw  gateway
	cfg Config
	now func() int64
}

func New(log *slog.Logger, gw gateway, cfg Config) *Provisioner {
	return &Provisioner{
		log: log,
		gw:  gw,
		cfg: cfg,
		now: func() int64 { return time.Now().UnixMilli() },
	}
}

// InitRoot provisions the root domain. Idempotent: seeds are written as
// upserts, so rerunning refreshes the defaults without touching other
// entities.
func (p *Provisioner) InitRoot(ctx context.Context) error {
	return p.InitDomain(ctx, "administrator", domain.RootDomain)
}

// InitDomain creates the default collections' indices for domainID and seeds
// them. authorID is recorded as the author of every seed and receives a
// profile in the new domain.
func (p *Provisioner) InitDomain(ctx context.Context, authorID, domainID string) error {
	collections := defaultCollections
	if domainID == domain.RootDomain {
		collections = append(append([]seed{}, collections...), rootCollections...)
	}

	if err := p.ensureIndices(ctx, domainID, collections); err != nil {
		return err
	}

	ops, err := p.seedOps(authorID, domainID, collections)
	if err != nil {
		return err
	}
	if err := p.gw.BulkWrite(ctx, ops); err != nil {
		return fmt.Errorf("seed domain %q: %w", domainID, err)
	}
	if err := p.gw.Refresh(ctx, domainID+"~*"); err != nil {
		return fmt.Errorf("refresh domain %q: %w", domainID, err)
	}

	p.log.Info("domain provisioned",
		slog.String("domain", domainID),
		slog.Int("collections", len(collections)),
		slog.Int("seeds", len(ops)))
	return nil
}

// ensureIndices creates the first snapshot and event segment of every
// default collection concurrently.
func (p *Provisioner) ensureIndices(ctx context.Context, domainID string, collections []seed) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, col := range collections {
		eg.Go(func() error {
			if err := p.gw.EnsureIndex(ctx, domain.IndexName(domainID, col.ID, 1)); err != nil {
				return fmt.Errorf("ensure index for %q: %w", col.ID, err)
			}
			return p.gw.EnsureIndex(ctx, domain.EventIndexName(domainID, col.ID, 1))
		})
	}
	return eg.Wait()
}

// seedOps builds the upsert batch for one domain.
func (p *Provisioner) seedOps(authorID, domainID string, collections []seed) ([]domain.BulkOp, error) {
	root := domainID == domain.RootDomain

	var ops []domain.BulkOp
	add := func(collectionID, metaID string, seeds []seed) error {
		for _, s := range seeds {
			op, err := p.seedOp(authorID, domainID, collectionID, metaID, s)
			if err != nil {
				return err
			}
			ops = append(ops, op)
		}
		return nil
	}

	metas := defaultMetas
	if root {
		metas = append(append([]seed{}, metas...), rootMetas...)
	}

	if err := add(".collections", ".meta-collection", collections); err != nil {
		return nil, err
	}
	if err := add(".metas", ".meta", metas); err != nil {
		return nil, err
	}
	if err := add(".pages", ".meta-page", defaultPages); err != nil {
		return nil, err
	}
	if err := add(".roles", ".meta-role", defaultRoles); err != nil {
		return nil, err
	}
	if err := add(".profiles", ".meta-profile", []seed{
		{ID: authorID, Title: authorID},
	}); err != nil {
		return nil, err
	}

	if root {
		users, err := p.bootstrapUsers()
		if err != nil {
			return nil, err
		}
		if err := add(".users", ".meta-user", users); err != nil {
			return nil, err
		}
	}
	return ops, nil
}

// bootstrapUsers builds the administrator and anonymous accounts with their
// configured passwords hashed.
func (p *Provisioner) bootstrapUsers() ([]seed, error) {
	adminHash, err := bcrypt.GenerateFromPassword([]byte(p.cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash administrator password: %w", err)
	}
	anonHash, err := bcrypt.GenerateFromPassword([]byte(p.cfg.AnonymousPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash anonymous password: %w", err)
	}
	return []seed{
		{ID: "administrator", Title: "Administrator", Extra: map[string]any{
			"password": string(adminHash),
			"roles":    []string{"administrator"},
		}},
		{ID: "anonymous", Title: "Anonymous", Extra: map[string]any{
			"password": string(anonHash),
			"roles":    []string{"anonymous"},
		}},
	}, nil
}

// seedOp encodes one seed entity as an unconditional snapshot write against
// the collection's hot alias.
func (p *Provisioner) seedOp(authorID, domainID, collectionID, metaID string, s seed) (domain.BulkOp, error) {
	now := p.now()
	metaACL := s.ACL.Merge(defaultACL)

	doc := map[string]any{
		"id":    s.ID,
		"title": s.Title,
	}
	if collectionID == ".collections" {
		doc["columns"] = defaultColumns
		doc["searchColumns"] = defaultSearchColumns
	}
	for k, v := range s.Extra {
		doc[k] = v
	}
	doc[domain.MetaKey] = domain.Meta{
		Version: 1,
		Created: now,
		Updated: now,
		Author:  authorID,
		ACL:     metaACL,
		MetaID:  metaID,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return domain.BulkOp{}, fmt.Errorf("encode seed %q: %w", s.ID, err)
	}
	return domain.BulkOp{
		Kind:    domain.OpIndexSnapshot,
		Index:   domain.HotAlias(domainID, collectionID),
		ID:      s.ID,
		Version: 1,
		Doc:     raw,
	}, nil
}
