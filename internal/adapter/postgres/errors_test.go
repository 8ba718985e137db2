package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quarryhq/quarry/internal/domain"
)

func TestMapError_Nil(t *testing.T) {
	t.Parallel()

	if got := mapError(nil, "acme~articles~all~snapshots", "a1"); got != nil {
		t.Errorf("mapError(nil) = %v, want nil", got)
	}
}

func TestMapError_NoRows(t *testing.T) {
	t.Parallel()

	got := mapError(pgx.ErrNoRows, "acme~articles~all~snapshots", "a1")
	if !errors.Is(got, domain.ErrNotFound) {
		t.Errorf("mapError(ErrNoRows) does not wrap domain.ErrNotFound: %v", got)
	}
}

func TestMapError_WrappedNoRows(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("scan row: %w", pgx.ErrNoRows)
	got := mapError(wrapped, "acme~articles~all~snapshots", "a1")
	if !errors.Is(got, domain.ErrNotFound) {
		t.Errorf("mapError(wrapped ErrNoRows) does not wrap domain.ErrNotFound: %v", got)
	}
}

func TestMapError_UniqueViolation(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "23505", Message: "duplicate key"}
	got := mapError(pgErr, "acme~articles~hot~snapshots", "a1")
	if !errors.Is(got, domain.ErrAlreadyExists) {
		t.Errorf("mapError(23505) does not wrap domain.ErrAlreadyExists: %v", got)
	}
}

func TestMapError_SerializationFailure(t *testing.T) {
	t.Parallel()

	pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	got := mapError(pgErr, "acme~articles~hot~snapshots", "a1")
	if !errors.Is(got, domain.ErrVersionConflict) {
		t.Errorf("mapError(40001) does not wrap domain.ErrVersionConflict: %v", got)
	}
}

func TestMapError_ContextErrorsPassThrough(t *testing.T) {
	t.Parallel()

	for _, ctxErr := range []error{context.DeadlineExceeded, context.Canceled} {
		got := mapError(ctxErr, "acme~articles~all~snapshots", "a1")
		if !errors.Is(got, ctxErr) {
			t.Errorf("mapError(%v) lost the context error: %v", ctxErr, got)
		}
		if errors.Is(got, domain.ErrBackend) {
			t.Errorf("mapError(%v) must not be classified as a backend failure", ctxErr)
		}
	}
}

func TestMapError_UnknownIsBackend(t *testing.T) {
	t.Parallel()

	got := mapError(errors.New("connection reset"), "acme~articles~all~snapshots", "a1")
	if !errors.Is(got, domain.ErrBackend) {
		t.Errorf("mapError(unknown) does not wrap domain.ErrBackend: %v", got)
	}
}
