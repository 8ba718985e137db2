package domain

import (
	"time"

	json "github.com/goccy/go-json"
)

// Query is the caller-facing filter model the gateway translates into a
// backend search. Zero value matches everything.
type Query struct {
	// Term filters require field == value. A ".keyword" suffix on the field
	// name is accepted and ignored, matching search-backend conventions.
	Term map[string]any

	// Terms filters require field to equal any of the listed values.
	Terms map[string][]any

	// Wildcard filters match with `*` (any run) and `?` (any single rune).
	Wildcard map[string]string
}

// SortOrder is "asc" or "desc".
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// SortField orders results by one field.
type SortField struct {
	Field string
	Order SortOrder
}

// TermsAgg requests the deduplicated values of a field instead of hits.
type TermsAgg struct {
	Field string
	// Size caps the number of distinct values returned; 0 means the
	// backend default.
	Size int
	// Include keeps only values matching this wildcard, when set.
	Include string
}

// SearchRequest addresses one or more aliases (comma-joined, wildcards
// allowed) with a query plus paging, sorting, scrolling, and aggregation.
type SearchRequest struct {
	Index string
	Query Query
	Sort  []SortField
	From  int
	Size  int
	// Scroll keeps a cursor alive for the given duration when positive.
	Scroll time.Duration
	// Agg switches the request to a distinct-values aggregation.
	Agg *TermsAgg
}

// Hit is one search result.
type Hit struct {
	ID string
	// Index is the physical index the hit resides in.
	Index   string
	Version int64
	Source  json.RawMessage
}

// SearchResult is the outcome of a search or scroll continuation.
type SearchResult struct {
	Total    int64
	Hits     []Hit
	ScrollID string
	// Values holds the deduplicated field values for aggregation requests.
	Values []string
}
