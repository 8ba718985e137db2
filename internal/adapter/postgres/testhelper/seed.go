package testhelper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UniqueDomain returns a fresh domain id so parallel tests never collide on
// index names.
func UniqueDomain() string {
	return "d" + uuid.New().String()[:8]
}

// SeedIndex registers a physical index in the registry.
func SeedIndex(t *testing.T, pool *pgxpool.Pool, name, domainID, collectionID, kind string, segment int) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO indices (name, domain_id, collection_id, kind, segment)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO NOTHING`,
		name, domainID, collectionID, kind, segment,
	)
	if err != nil {
		t.Fatalf("testhelper: SeedIndex %s: %v", name, err)
	}
}

// SeedSnapshot inserts one snapshot row directly.
func SeedSnapshot(t *testing.T, pool *pgxpool.Pool, indexName, docID string, version int64, source string) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`INSERT INTO snapshots (index_name, doc_id, version, source, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		indexName, docID, version, []byte(source), time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("testhelper: SeedSnapshot %s/%s: %v", indexName, docID, err)
	}
}
