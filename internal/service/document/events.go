package document

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/quarryhq/quarry/internal/domain"
)

// Events returns this document's mutation history, most recent first:
// ordered by event-creation time descending, then version descending. The
// version tie-break keeps the order unambiguous when two events share a
// millisecond.
func (e *Entity) Events(ctx context.Context, opts EventsOptions) (EventsResult, error) {
	res, err := e.svc.gw.Search(ctx, domain.SearchRequest{
		Index: domain.EventAllAlias(e.domainID, e.collectionID),
		Query: domain.Query{Term: map[string]any{"id.keyword": e.id}},
		Sort: []domain.SortField{
			{Field: "_meta.created", Order: domain.SortDesc},
			{Field: "version", Order: domain.SortDesc},
		},
		From: opts.From,
		Size: opts.Size,
	})
	if err != nil {
		return EventsResult{}, err
	}

	events := make([]domain.Event, 0, len(res.Hits))
	for _, h := range res.Hits {
		var ev domain.Event
		if err := json.Unmarshal(h.Source, &ev); err != nil {
			return EventsResult{}, fmt.Errorf("decode event for %s: %w", e.id, err)
		}
		ev.Meta.Index = h.Index
		events = append(events, ev)
	}

	return EventsResult{
		Total:  res.Total,
		Offset: opts.From,
		Events: events,
	}, nil
}
