package document

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/quarryhq/quarry/internal/domain"
)

// Find searches a collection's read-all alias. An empty collectionID (for
// kinds without a fixed collection) searches every collection in the domain.
// Each hit's backend-assigned identity and physical index are denormalized
// back onto the document shape.
func (s *Service) Find(ctx context.Context, domainID, collectionID string, q domain.Query, opts FindOptions) (FindResult, error) {
	collectionID = s.kind.collection(collectionID)
	if collectionID == "" {
		collectionID = "*"
	}
	return s.FindOn(ctx, domain.AllAlias(domainID, collectionID), q, opts)
}

// FindOn runs a shaped search against an explicit alias list. Composing
// kinds use it for joined multi-index queries.
func (s *Service) FindOn(ctx context.Context, index string, q domain.Query, opts FindOptions) (FindResult, error) {
	res, err := s.gw.Search(ctx, domain.SearchRequest{
		Index:  index,
		Query:  q,
		Sort:   opts.Sort,
		From:   opts.From,
		Size:   opts.Size,
		Scroll: opts.Scroll,
	})
	if err != nil {
		return FindResult{}, err
	}

	docs, err := shapeHits(res.Hits)
	if err != nil {
		return FindResult{}, err
	}
	return FindResult{
		Total:     res.Total,
		Offset:    opts.From,
		Documents: docs,
		ScrollID:  res.ScrollID,
	}, nil
}

// Scroll continues a cursor opened by Find with a scroll TTL.
func (s *Service) Scroll(ctx context.Context, scrollID string) (FindResult, error) {
	res, err := s.gw.Scroll(ctx, scrollID)
	if err != nil {
		return FindResult{}, err
	}
	docs, err := shapeHits(res.Hits)
	if err != nil {
		return FindResult{}, err
	}
	return FindResult{
		Total:     res.Total,
		Documents: docs,
		ScrollID:  res.ScrollID,
	}, nil
}

// ClearScroll releases a cursor early.
func (s *Service) ClearScroll(ctx context.Context, scrollID string) error {
	return s.gw.ClearScroll(ctx, scrollID)
}

// shapeHits decodes hit sources and stamps id, _meta.index, and
// _meta.version from the backend row.
func shapeHits(hits []domain.Hit) ([]map[string]any, error) {
	docs := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		var doc map[string]any
		if err := json.Unmarshal(h.Source, &doc); err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", h.ID, err)
		}
		if _, ok := doc["id"]; !ok {
			doc["id"] = h.ID
		}
		meta, _ := doc[domain.MetaKey].(map[string]any)
		if meta == nil {
			meta = map[string]any{}
		}
		meta["index"] = h.Index
		meta["version"] = h.Version
		doc[domain.MetaKey] = meta
		docs = append(docs, doc)
	}
	return docs, nil
}
