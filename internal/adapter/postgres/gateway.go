// Package postgres implements the backend gateway over PostgreSQL. Snapshots
// and events live in JSONB tables; index and alias names from the naming
// scheme stay first-class and resolve to predicates over index_name, so the
// engine never addresses tables directly.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	gocache "github.com/patrickmn/go-cache"

	"github.com/quarryhq/quarry/internal/domain"
)

// Config tunes gateway behavior.
type Config struct {
	// DefaultPageSize is used when a search names no size.
	DefaultPageSize int
	// MaxPageSize caps caller-supplied sizes.
	MaxPageSize int
	// ScrollTTL bounds the lifetime of scroll cursors between continuations.
	ScrollTTL time.Duration
}

func (c *Config) withDefaults() {
	if c.DefaultPageSize <= 0 {
		c.DefaultPageSize = 20
	}
	if c.MaxPageSize <= 0 {
		c.MaxPageSize = 1000
	}
	if c.ScrollTTL <= 0 {
		c.ScrollTTL = time.Minute
	}
}

// Gateway is the PostgreSQL implementation of the backend store contract:
// get, search, atomic bulk writes with version conditions, and scrolling.
type Gateway struct {
	pool    *pgxpool.Pool
	log     *slog.Logger
	cfg     Config
	scrolls *gocache.Cache
}

// New creates a Gateway on an existing pool.
func New(pool *pgxpool.Pool, log *slog.Logger, cfg Config) *Gateway {
	cfg.withDefaults()
	return &Gateway{
		pool:    pool,
		log:     log,
		cfg:     cfg,
		scrolls: gocache.New(cfg.ScrollTTL, 2*cfg.ScrollTTL),
	}
}

// Get returns the stored snapshot addressed by an index or alias. version 0
// means the current version; a positive version pins that exact version and
// misses otherwise.
func (g *Gateway) Get(ctx context.Context, index, id string, version int64) (domain.Snapshot, error) {
	kind, pred, err := g.resolveTargets(ctx, index)
	if err != nil {
		return domain.Snapshot{}, err
	}
	if kind != domain.KindSnapshots {
		return domain.Snapshot{}, fmt.Errorf("get on event index %q", index)
	}

	// A doc present in several rollover segments resolves to the newest one
	// by registry segment number; unregistered indices sort last.
	sql, args, err := builder().
		Select("snapshots.index_name", "snapshots.version", "snapshots.source").
		From("snapshots").
		LeftJoin("indices ON indices.name = snapshots.index_name").
		Where(pred).
		Where("snapshots.doc_id = ?", id).
		OrderBy("indices.segment DESC NULLS LAST").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("build get query: %w", err)
	}

	snap := domain.Snapshot{ID: id}
	var source []byte
	err = g.pool.QueryRow(ctx, sql, args...).Scan(&snap.Index, &snap.Version, &source)
	if err != nil {
		return domain.Snapshot{}, mapError(err, index, id)
	}
	if version > 0 && snap.Version != version {
		return domain.Snapshot{}, fmt.Errorf("%s/%s@%d: %w", index, id, version, domain.ErrNotFound)
	}
	snap.Source = json.RawMessage(source)
	return snap, nil
}

// BulkWrite executes ops in one transaction. Either all ops commit or none;
// version-conditioned ops surface domain.ErrVersionConflict distinctly from
// other write failures.
func (g *Gateway) BulkWrite(ctx context.Context, ops []domain.BulkOp) error {
	if len(ops) == 0 {
		return nil
	}

	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return mapError(err, "bulk", "")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for i, op := range ops {
		if err := g.applyOp(ctx, tx, op); err != nil {
			return fmt.Errorf("bulk op %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "bulk", "")
	}
	return nil
}

func (g *Gateway) applyOp(ctx context.Context, tx pgx.Tx, op domain.BulkOp) error {
	index, err := g.resolvePhysical(ctx, op.Index)
	if err != nil {
		return err
	}

	switch op.Kind {
	case domain.OpCreateSnapshot:
		tag, err := tx.Exec(ctx,
			`INSERT INTO snapshots (index_name, doc_id, version, source)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (index_name, doc_id) DO NOTHING`,
			index, op.ID, op.Version, []byte(op.Doc),
		)
		if err != nil {
			return mapError(err, index, op.ID)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s/%s: %w", index, op.ID, domain.ErrAlreadyExists)
		}

	case domain.OpIndexSnapshot:
		_, err := tx.Exec(ctx,
			`INSERT INTO snapshots (index_name, doc_id, version, source)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (index_name, doc_id) DO UPDATE
			   SET version = excluded.version,
			       source = excluded.source,
			       updated_at = now()`,
			index, op.ID, op.Version, []byte(op.Doc),
		)
		if err != nil {
			return mapError(err, index, op.ID)
		}

	case domain.OpPutSnapshot:
		tag, err := tx.Exec(ctx,
			`UPDATE snapshots
			 SET version = $1, source = $2, updated_at = now()
			 WHERE index_name = $3 AND doc_id = $4 AND version = $5`,
			op.Version, []byte(op.Doc), index, op.ID, op.ExpectedVersion,
		)
		if err != nil {
			return mapError(err, index, op.ID)
		}
		if tag.RowsAffected() == 0 {
			// Distinguish a lost race from a vanished document.
			var stored int64
			probe := tx.QueryRow(ctx,
				`SELECT version FROM snapshots WHERE index_name = $1 AND doc_id = $2`,
				index, op.ID)
			if scanErr := probe.Scan(&stored); scanErr != nil {
				return fmt.Errorf("%s/%s: %w", index, op.ID, domain.ErrNotFound)
			}
			return fmt.Errorf("%s/%s: stored version %d, expected %d: %w",
				index, op.ID, stored, op.ExpectedVersion, domain.ErrVersionConflict)
		}

	case domain.OpDeleteSnapshot:
		tag, err := tx.Exec(ctx,
			`DELETE FROM snapshots WHERE index_name = $1 AND doc_id = $2`,
			index, op.ID,
		)
		if err != nil {
			return mapError(err, index, op.ID)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%s/%s: %w", index, op.ID, domain.ErrNotFound)
		}

	case domain.OpAppendEvent:
		if op.Event == nil {
			return fmt.Errorf("%s: append without event", index)
		}
		source, err := json.Marshal(op.Event)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO events (index_name, doc_id, version, author, created, source)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			index, op.Event.DocID, op.Event.Version, op.Event.Meta.Author, op.Event.Meta.Created, source,
		)
		if err != nil {
			return mapError(err, index, op.Event.DocID)
		}

	default:
		return fmt.Errorf("unknown bulk op kind %d", op.Kind)
	}
	return nil
}

// resolvePhysical maps a write target to one physical index. Physical names
// pass through; hot aliases resolve through the registry.
func (g *Gateway) resolvePhysical(ctx context.Context, name string) (string, error) {
	a, err := domain.ParseAlias(name)
	if err != nil {
		return "", err
	}
	if a.Physical() {
		return name, nil
	}
	if a.Scope != domain.ScopeHot {
		return "", fmt.Errorf("write target %q must be a physical index or hot alias", name)
	}
	return g.resolveHot(ctx, a)
}

// Refresh forces pending writes to become visible to searches. PostgreSQL is
// read-after-write consistent, so this is a no-op kept for contract parity
// with near-real-time search backends.
func (g *Gateway) Refresh(_ context.Context, _ string) error {
	return nil
}
