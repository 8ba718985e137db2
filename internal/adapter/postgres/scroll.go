package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/quarryhq/quarry/internal/domain"
)

// scrollState is a live cursor: the originating request plus the absolute
// offset of the next page. Cursors are process-local and expire after the
// configured TTL without a continuation.
type scrollState struct {
	req    domain.SearchRequest
	offset int
}

func (g *Gateway) openScroll(req domain.SearchRequest, served int) string {
	id := uuid.NewString()
	g.scrolls.Set(id, &scrollState{req: req, offset: max(req.From, 0) + served}, req.Scroll)
	return id
}

// Scroll continues a cursor opened by a Search with a scroll TTL. The cursor
// keeps its ID across continuations; an expired or unknown ID is NotFound.
func (g *Gateway) Scroll(ctx context.Context, scrollID string) (domain.SearchResult, error) {
	v, ok := g.scrolls.Get(scrollID)
	if !ok {
		return domain.SearchResult{}, fmt.Errorf("scroll %s: %w", scrollID, domain.ErrNotFound)
	}
	state := v.(*scrollState)

	req := state.req
	req.From = state.offset

	kind, pred, err := g.resolveTargets(ctx, req.Index)
	if err != nil {
		return domain.SearchResult{}, err
	}
	res, err := g.page(ctx, kind, pred, req)
	if err != nil {
		return domain.SearchResult{}, err
	}

	state.offset += len(res.Hits)
	g.scrolls.Set(scrollID, state, state.req.Scroll)

	res.ScrollID = scrollID
	return res, nil
}

// ClearScroll releases a cursor early. Unknown IDs are ignored.
func (g *Gateway) ClearScroll(_ context.Context, scrollID string) error {
	g.scrolls.Delete(scrollID)
	return nil
}
