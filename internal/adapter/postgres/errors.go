package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quarryhq/quarry/internal/domain"
)

// mapError converts pgx/pgconn errors to domain errors.
// context.DeadlineExceeded and context.Canceled are NOT mapped — they pass through.
func mapError(err error, index, id string) error {
	if err == nil {
		return nil
	}

	// context errors pass through as-is
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s/%s: %w", index, id, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s/%s: %w", index, id, domain.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s/%s: %w", index, id, domain.ErrAlreadyExists)
		case "40001": // serialization_failure
			return fmt.Errorf("%s/%s: %w", index, id, domain.ErrVersionConflict)
		}
	}

	// Everything else is a transport/store failure; the caller must re-read
	// to learn the actual state.
	return fmt.Errorf("%s/%s: %v: %w", index, id, err, domain.ErrBackend)
}
