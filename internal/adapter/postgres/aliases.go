package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/quarryhq/quarry/internal/domain"
)

// likeEscape makes a literal safe inside a LIKE pattern, then expands the
// naming-scheme wildcard `*` to `%`.
func likeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return strings.ReplaceAll(r.Replace(s), "*", "%")
}

// resolveTargets parses a comma-joined alias list and returns the target
// table kind plus a squirrel predicate over index_name. Hot aliases resolve
// to their current physical segment through the index registry.
func (g *Gateway) resolveTargets(ctx context.Context, names string) (string, sq.Sqlizer, error) {
	aliases := domain.SplitAliases(names)
	if len(aliases) == 0 {
		return "", nil, fmt.Errorf("empty index name")
	}

	kind := ""
	or := sq.Or{}
	for _, name := range aliases {
		a, err := domain.ParseAlias(name)
		if err != nil {
			return "", nil, err
		}
		if kind == "" {
			kind = a.Kind
		} else if kind != a.Kind {
			return "", nil, fmt.Errorf("mixed snapshot and event targets in %q", names)
		}

		switch {
		case a.Physical():
			or = append(or, sq.Eq{"index_name": name})
		case a.Scope == domain.ScopeAll:
			pattern := likeEscape(a.DomainID) + `~` + likeEscape(a.CollectionID) + `~` + a.Kind + `-%`
			or = append(or, sq.Like{"index_name": pattern})
		default: // hot
			physical, err := g.resolveHot(ctx, a)
			if err != nil {
				return "", nil, err
			}
			or = append(or, sq.Eq{"index_name": physical})
		}
	}
	return kind, or, nil
}

// resolveHot returns the physical index a hot alias currently points at.
// An unknown target is registered at segment 1, mirroring search backends
// that auto-create indices on first write.
func (g *Gateway) resolveHot(ctx context.Context, a domain.Alias) (string, error) {
	var name string
	err := g.pool.QueryRow(ctx,
		`SELECT name FROM indices
		 WHERE domain_id = $1 AND collection_id = $2 AND kind = $3
		 ORDER BY segment DESC LIMIT 1`,
		a.DomainID, a.CollectionID, a.Kind,
	).Scan(&name)
	if err == nil {
		return name, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", mapError(err, a.DomainID+"~"+a.CollectionID, "")
	}

	if a.Kind == domain.KindEvents {
		name = domain.EventIndexName(a.DomainID, a.CollectionID, 1)
	} else {
		name = domain.IndexName(a.DomainID, a.CollectionID, 1)
	}
	if err := g.EnsureIndex(ctx, name); err != nil {
		return "", err
	}
	return name, nil
}

// EnsureIndex registers a physical index by name. Idempotent.
func (g *Gateway) EnsureIndex(ctx context.Context, name string) error {
	a, err := domain.ParseAlias(name)
	if err != nil {
		return err
	}
	if !a.Physical() {
		return fmt.Errorf("cannot register alias %q as an index", name)
	}
	_, err = g.pool.Exec(ctx,
		`INSERT INTO indices (name, domain_id, collection_id, kind, segment)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO NOTHING`,
		name, a.DomainID, a.CollectionID, a.Kind, a.Segment,
	)
	return mapError(err, name, "")
}

// DeleteIndices removes every index matching the pattern (wildcards allowed)
// together with its snapshots and events. Used when a tenant is torn down.
func (g *Gateway) DeleteIndices(ctx context.Context, pattern string) error {
	like := likeEscape(pattern)
	tx, err := g.pool.Begin(ctx)
	if err != nil {
		return mapError(err, pattern, "")
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, stmt := range []string{
		`DELETE FROM snapshots WHERE index_name LIKE $1`,
		`DELETE FROM events WHERE index_name LIKE $1`,
		`DELETE FROM indices WHERE name LIKE $1`,
	} {
		if _, err := tx.Exec(ctx, stmt, like); err != nil {
			return mapError(err, pattern, "")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, pattern, "")
	}
	return nil
}
