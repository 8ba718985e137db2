package postgres_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarryhq/quarry/internal/adapter/postgres"
	"github.com/quarryhq/quarry/internal/adapter/postgres/testhelper"
	"github.com/quarryhq/quarry/internal/domain"
)

func newGateway(t *testing.T) *postgres.Gateway {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return postgres.New(pool, log, postgres.Config{ScrollTTL: time.Minute})
}

func doc(id, title string, version int64) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"title":%q,"_meta":{"version":%d,"created":1,"updated":1}}`, id, title, version))
}

func TestGateway_CreateAndGet(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	err := g.BulkWrite(ctx, []domain.BulkOp{{
		Kind:    domain.OpCreateSnapshot,
		Index:   domain.HotAlias(d, "articles"),
		ID:      "a1",
		Version: 1,
		Doc:     doc("a1", "first", 1),
	}})
	require.NoError(t, err)

	snap, err := g.Get(ctx, domain.AllAlias(d, "articles"), "a1", 0)
	require.NoError(t, err)
	assert.Equal(t, "a1", snap.ID)
	assert.Equal(t, int64(1), snap.Version)
	assert.Equal(t, domain.IndexName(d, "articles", 1), snap.Index,
		"the hot alias auto-registered segment 1")
	assert.JSONEq(t, string(doc("a1", "first", 1)), string(snap.Source))
}

func TestGateway_Get_VersionPin(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
		Kind: domain.OpCreateSnapshot, Index: domain.HotAlias(d, "articles"),
		ID: "a1", Version: 3, Doc: doc("a1", "x", 3),
	}}))

	_, err := g.Get(ctx, domain.AllAlias(d, "articles"), "a1", 3)
	require.NoError(t, err)

	_, err = g.Get(ctx, domain.AllAlias(d, "articles"), "a1", 2)
	require.ErrorIs(t, err, domain.ErrNotFound, "pinned version must match the stored one")
}

func TestGateway_Get_Missing(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	d := testhelper.UniqueDomain()

	_, err := g.Get(context.Background(), domain.AllAlias(d, "articles"), "nope", 0)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGateway_Create_Conflict(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	op := domain.BulkOp{
		Kind: domain.OpCreateSnapshot, Index: domain.HotAlias(d, "articles"),
		ID: "a1", Version: 1, Doc: doc("a1", "x", 1),
	}
	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{op}))
	require.ErrorIs(t, g.BulkWrite(ctx, []domain.BulkOp{op}), domain.ErrAlreadyExists)
}

func TestGateway_Put_VersionConditioned(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()
	hot := domain.HotAlias(d, "articles")

	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
		Kind: domain.OpCreateSnapshot, Index: hot, ID: "a1", Version: 1, Doc: doc("a1", "v1", 1),
	}}))

	// Conditioned on the right version: succeeds.
	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
		Kind: domain.OpPutSnapshot, Index: hot, ID: "a1",
		Version: 2, ExpectedVersion: 1, Doc: doc("a1", "v2", 2),
	}}))

	// Conditioned on a stale version: conflict, nothing written.
	err := g.BulkWrite(ctx, []domain.BulkOp{{
		Kind: domain.OpPutSnapshot, Index: hot, ID: "a1",
		Version: 3, ExpectedVersion: 1, Doc: doc("a1", "stale", 3),
	}})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	snap, err := g.Get(ctx, domain.AllAlias(d, "articles"), "a1", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)

	// Put on a vanished document is NotFound, not a conflict.
	err = g.BulkWrite(ctx, []domain.BulkOp{{
		Kind: domain.OpPutSnapshot, Index: hot, ID: "ghost",
		Version: 2, ExpectedVersion: 1, Doc: doc("ghost", "x", 2),
	}})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGateway_BulkWrite_Atomic(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()
	hot := domain.HotAlias(d, "articles")

	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
		Kind: domain.OpCreateSnapshot, Index: hot, ID: "a1", Version: 1, Doc: doc("a1", "v1", 1),
	}}))

	// Event append plus a conflicting put: the whole bulk must roll back.
	ev := domain.Event{DocID: "a1", Version: 2, Meta: domain.EventMeta{Author: "alice", Created: 7}}
	err := g.BulkWrite(ctx, []domain.BulkOp{
		{Kind: domain.OpAppendEvent, Index: domain.EventAlias(d, "articles"), Event: &ev},
		{Kind: domain.OpPutSnapshot, Index: hot, ID: "a1", Version: 2, ExpectedVersion: 99, Doc: doc("a1", "v2", 2)},
	})
	require.ErrorIs(t, err, domain.ErrVersionConflict)

	res, err := g.Search(ctx, domain.SearchRequest{Index: domain.EventAllAlias(d, "articles")})
	require.NoError(t, err)
	assert.Zero(t, res.Total, "the event from the failed bulk must not survive")
}

func TestGateway_Search_PagingAndSort(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()
	hot := domain.HotAlias(d, "articles")

	for i := 1; i <= 5; i++ {
		require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
			Kind: domain.OpCreateSnapshot, Index: hot,
			ID: fmt.Sprintf("a%d", i), Version: 1,
			Doc: []byte(fmt.Sprintf(`{"id":"a%d","rank":"%d"}`, i, 6-i)),
		}}))
	}

	res, err := g.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(d, "articles"),
		Sort:  []domain.SortField{{Field: "rank", Order: domain.SortAsc}},
		From:  0,
		Size:  2,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(5), res.Total)
	require.Len(t, res.Hits, 2)
	assert.Equal(t, "a5", res.Hits[0].ID, "rank 1 sorts first")
	assert.Equal(t, "a4", res.Hits[1].ID)

	next, err := g.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(d, "articles"),
		Sort:  []domain.SortField{{Field: "rank", Order: domain.SortAsc}},
		From:  2,
		Size:  2,
	})
	require.NoError(t, err)
	require.Len(t, next.Hits, 2)
	assert.Equal(t, "a3", next.Hits[0].ID)
}

func TestGateway_Search_TermAndWildcard(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()
	hot := domain.HotAlias(d, "articles")

	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{
		{Kind: domain.OpCreateSnapshot, Index: hot, ID: "a1", Version: 1,
			Doc: []byte(`{"id":"a1","status":"draft","title":"intro to quarries"}`)},
		{Kind: domain.OpCreateSnapshot, Index: hot, ID: "a2", Version: 1,
			Doc: []byte(`{"id":"a2","status":"published","title":"advanced quarries"}`)},
	}))

	res, err := g.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(d, "articles"),
		Query: domain.Query{Term: map[string]any{"status": "draft"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "a1", res.Hits[0].ID)

	res, err = g.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(d, "articles"),
		Query: domain.Query{Wildcard: map[string]string{"title": "intro*"}},
	})
	require.NoError(t, err)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, "a1", res.Hits[0].ID)

	res, err = g.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(d, "articles"),
		Query: domain.Query{Terms: map[string][]any{"id": {"a1", "a2"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)
}

func TestGateway_Search_JoinedAliases(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{
		{Kind: domain.OpCreateSnapshot, Index: domain.HotAlias(d, "a"), ID: "x1", Version: 1, Doc: []byte(`{"id":"x1"}`)},
		{Kind: domain.OpCreateSnapshot, Index: domain.HotAlias(d, "b"), ID: "x2", Version: 1, Doc: []byte(`{"id":"x2"}`)},
		{Kind: domain.OpCreateSnapshot, Index: domain.HotAlias(d, "c"), ID: "x3", Version: 1, Doc: []byte(`{"id":"x3"}`)},
	}))

	res, err := g.Search(ctx, domain.SearchRequest{
		Index: domain.JoinAllAliases(d, []string{"a", "b"}),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)

	// Whole-domain wildcard covers all three.
	res, err = g.Search(ctx, domain.SearchRequest{Index: domain.AllAlias(d, "*")})
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Total)
}

func TestGateway_Search_Aggregate(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()
	hot := domain.HotAlias(d, "articles")

	for i, status := range []string{"draft", "published", "draft", "archived"} {
		require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
			Kind: domain.OpCreateSnapshot, Index: hot,
			ID: fmt.Sprintf("s%d", i), Version: 1,
			Doc: []byte(fmt.Sprintf(`{"id":"s%d","status":%q}`, i, status)),
		}}))
	}

	res, err := g.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(d, "articles"),
		Agg:   &domain.TermsAgg{Field: "status"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"archived", "draft", "published"}, res.Values)

	res, err = g.Search(ctx, domain.SearchRequest{
		Index: domain.AllAlias(d, "articles"),
		Agg:   &domain.TermsAgg{Field: "status", Include: "dra*"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"draft"}, res.Values)
}

func TestGateway_Scroll_WalksAllHits(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()
	hot := domain.HotAlias(d, "articles")

	for i := 0; i < 5; i++ {
		require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
			Kind: domain.OpCreateSnapshot, Index: hot,
			ID: fmt.Sprintf("a%d", i), Version: 1, Doc: []byte(fmt.Sprintf(`{"id":"a%d"}`, i)),
		}}))
	}

	res, err := g.Search(ctx, domain.SearchRequest{
		Index:  domain.AllAlias(d, "articles"),
		Size:   2,
		Scroll: time.Minute,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.ScrollID)

	seen := len(res.Hits)
	id := res.ScrollID
	for {
		res, err = g.Scroll(ctx, id)
		require.NoError(t, err)
		if len(res.Hits) == 0 {
			break
		}
		seen += len(res.Hits)
		assert.Equal(t, id, res.ScrollID, "the cursor keeps its id across continuations")
	}
	assert.Equal(t, 5, seen)

	require.NoError(t, g.ClearScroll(ctx, id))
	_, err = g.Scroll(ctx, id)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGateway_EventLog(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	for v := int64(1); v <= 3; v++ {
		ev := domain.Event{
			DocID:   "a1",
			Version: v,
			Patch:   []domain.Operation{{Op: "replace", Path: "/title"}},
			Meta:    domain.EventMeta{Author: "alice", Created: 1000 + v},
		}
		require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
			Kind: domain.OpAppendEvent, Index: domain.EventAlias(d, "articles"), Event: &ev,
		}}))
	}

	res, err := g.Search(ctx, domain.SearchRequest{
		Index: domain.EventAllAlias(d, "articles"),
		Query: domain.Query{Term: map[string]any{"id.keyword": "a1"}},
		Sort: []domain.SortField{
			{Field: "_meta.created", Order: domain.SortDesc},
			{Field: "version", Order: domain.SortDesc},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.Total)
	require.Len(t, res.Hits, 3)
	assert.Equal(t, int64(3), res.Hits[0].Version, "newest event first")
}

func TestGateway_DeleteIndices_TearsDownTenant(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{
		{Kind: domain.OpCreateSnapshot, Index: domain.HotAlias(d, "a"), ID: "x", Version: 1, Doc: []byte(`{"id":"x"}`)},
		{Kind: domain.OpAppendEvent, Index: domain.EventAlias(d, "a"),
			Event: &domain.Event{DocID: "x", Version: 1, Meta: domain.EventMeta{Created: 1}}},
	}))

	require.NoError(t, g.DeleteIndices(ctx, d+"~*"))

	_, err := g.Get(ctx, domain.AllAlias(d, "a"), "x", 0)
	require.ErrorIs(t, err, domain.ErrNotFound)

	res, err := g.Search(ctx, domain.SearchRequest{Index: domain.EventAllAlias(d, "a")})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
}

func TestGateway_Get_PicksNewestSegmentNumerically(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	g := postgres.New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)), postgres.Config{})
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	// Segment 10 sorts before segment 9 lexicographically; resolution must
	// follow the registry's segment number instead.
	testhelper.SeedIndex(t, pool, domain.IndexName(d, "articles", 9), d, "articles", domain.KindSnapshots, 9)
	testhelper.SeedIndex(t, pool, domain.IndexName(d, "articles", 10), d, "articles", domain.KindSnapshots, 10)
	testhelper.SeedSnapshot(t, pool, domain.IndexName(d, "articles", 9), "a1", 9, `{"id":"a1"}`)
	testhelper.SeedSnapshot(t, pool, domain.IndexName(d, "articles", 10), "a1", 10, `{"id":"a1"}`)

	snap, err := g.Get(ctx, domain.AllAlias(d, "articles"), "a1", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexName(d, "articles", 10), snap.Index)
	assert.Equal(t, int64(10), snap.Version)
}

func TestGateway_EnsureIndex_Idempotent(t *testing.T) {
	t.Parallel()
	g := newGateway(t)
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	name := domain.IndexName(d, "articles", 1)
	require.NoError(t, g.EnsureIndex(ctx, name))
	require.NoError(t, g.EnsureIndex(ctx, name))

	require.Error(t, g.EnsureIndex(ctx, domain.HotAlias(d, "articles")),
		"aliases cannot be registered as indices")
}

func TestGateway_HotAlias_FollowsRollover(t *testing.T) {
	t.Parallel()
	pool := testhelper.SetupTestDB(t)
	g := postgres.New(pool, slog.New(slog.NewTextHandler(io.Discard, nil)), postgres.Config{})
	ctx := context.Background()
	d := testhelper.UniqueDomain()

	// Register two segments; the hot alias must address the newest.
	testhelper.SeedIndex(t, pool, domain.IndexName(d, "articles", 1), d, "articles", domain.KindSnapshots, 1)
	testhelper.SeedIndex(t, pool, domain.IndexName(d, "articles", 2), d, "articles", domain.KindSnapshots, 2)
	testhelper.SeedSnapshot(t, pool, domain.IndexName(d, "articles", 1), "old", 1, `{"id":"old"}`)

	require.NoError(t, g.BulkWrite(ctx, []domain.BulkOp{{
		Kind: domain.OpCreateSnapshot, Index: domain.HotAlias(d, "articles"),
		ID: "fresh", Version: 1, Doc: []byte(`{"id":"fresh"}`),
	}}))

	snap, err := g.Get(ctx, domain.AllAlias(d, "articles"), "fresh", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexName(d, "articles", 2), snap.Index,
		"writes land in the newest segment")

	snap, err = g.Get(ctx, domain.AllAlias(d, "articles"), "old", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexName(d, "articles", 1), snap.Index,
		"the all alias still reads rolled-over segments")
}
