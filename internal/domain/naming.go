package domain

import (
	"fmt"
	"strings"
)

// Index and alias naming scheme, shared by the engine and the backend gateway:
//
//	<domain>~<collection>~snapshots-<segment>   physical snapshot index
//	<domain>~<collection>~events-<segment>      physical event index
//	<domain>~<collection>~hot~snapshots         alias for the current write target
//	<domain>~<collection>~all~snapshots         alias covering all rolled-over segments
//	<domain>~<collection>~hot~events            alias for the event-log write target
//	<domain>~<collection>~all~events            alias covering the full event history
//
// Readers that must see history never address a physical index directly; they
// go through the "all" alias. A `*` in the domain or collection position is a
// wildcard the gateway expands.

const (
	// KindSnapshots addresses materialized entity state.
	KindSnapshots = "snapshots"
	// KindEvents addresses the append-only event log.
	KindEvents = "events"

	// ScopeHot is the current writable segment of an alias.
	ScopeHot = "hot"
	// ScopeAll covers every segment, including rolled-over ones.
	ScopeAll = "all"

	sep = "~"
)

// RootDomain is the reserved tenant that owns cross-domain collections
// (domains themselves, users).
const RootDomain = ".root"

// UniqueID returns the stable cache key for an entity identity.
func UniqueID(domainID, collectionID, docID string) string {
	return domainID + sep + collectionID + sep + docID
}

// VersionedID returns the cache key for a pinned historical version.
func VersionedID(domainID, collectionID, docID string, version int64) string {
	return fmt.Sprintf("%s%s%d", UniqueID(domainID, collectionID, docID), sep, version)
}

// IndexName returns the physical snapshot index for a rollover segment.
func IndexName(domainID, collectionID string, segment int) string {
	return fmt.Sprintf("%s%s%s%ssnapshots-%d", domainID, sep, collectionID, sep, segment)
}

// EventIndexName returns the physical event index for a rollover segment.
func EventIndexName(domainID, collectionID string, segment int) string {
	return fmt.Sprintf("%s%s%s%sevents-%d", domainID, sep, collectionID, sep, segment)
}

// HotAlias returns the alias of the current snapshot write target.
func HotAlias(domainID, collectionID string) string {
	return domainID + sep + collectionID + sep + ScopeHot + sep + KindSnapshots
}

// AllAlias returns the read alias covering all snapshot segments.
func AllAlias(domainID, collectionID string) string {
	return domainID + sep + collectionID + sep + ScopeAll + sep + KindSnapshots
}

// EventAlias returns the alias of the event-log write target.
func EventAlias(domainID, collectionID string) string {
	return domainID + sep + collectionID + sep + ScopeHot + sep + KindEvents
}

// EventAllAlias returns the read alias covering the full event history.
func EventAllAlias(domainID, collectionID string) string {
	return domainID + sep + collectionID + sep + ScopeAll + sep + KindEvents
}

// JoinAllAliases expands a logical collection scope into a comma-joined list
// of all-aliases. An empty scope means every collection in the domain.
func JoinAllAliases(domainID string, collections []string) string {
	if len(collections) == 0 {
		return AllAlias(domainID, "*")
	}
	parts := make([]string, 0, len(collections))
	for _, c := range collections {
		parts = append(parts, AllAlias(domainID, c))
	}
	return strings.Join(parts, ",")
}

// Alias is a parsed index or alias name.
type Alias struct {
	DomainID     string
	CollectionID string
	// Kind is KindSnapshots or KindEvents.
	Kind string
	// Scope is ScopeHot, ScopeAll, or empty for a physical index.
	Scope string
	// Segment is the rollover segment of a physical index, 0 otherwise.
	Segment int
}

// Physical reports whether the name addressed one concrete segment.
func (a Alias) Physical() bool { return a.Scope == "" }

// ParseAlias parses an index or alias name. It accepts physical names,
// hot/all aliases, and `*` wildcards in the domain and collection positions.
func ParseAlias(name string) (Alias, error) {
	parts := strings.Split(name, sep)
	if len(parts) != 4 && len(parts) != 3 {
		return Alias{}, fmt.Errorf("malformed index name %q", name)
	}

	a := Alias{DomainID: parts[0], CollectionID: parts[1]}
	if a.DomainID == "" || a.CollectionID == "" {
		return Alias{}, fmt.Errorf("malformed index name %q", name)
	}

	if len(parts) == 4 {
		a.Scope, a.Kind = parts[2], parts[3]
		if a.Scope != ScopeHot && a.Scope != ScopeAll {
			return Alias{}, fmt.Errorf("unknown alias scope %q in %q", a.Scope, name)
		}
		if a.Kind != KindSnapshots && a.Kind != KindEvents {
			return Alias{}, fmt.Errorf("unknown alias kind %q in %q", a.Kind, name)
		}
		return a, nil
	}

	// Physical name: <kind>-<segment> in the last position.
	kind, seg, ok := strings.Cut(parts[2], "-")
	if !ok || (kind != KindSnapshots && kind != KindEvents) {
		return Alias{}, fmt.Errorf("malformed index name %q", name)
	}
	if _, err := fmt.Sscanf(seg, "%d", &a.Segment); err != nil || a.Segment < 1 {
		return Alias{}, fmt.Errorf("malformed index segment in %q", name)
	}
	a.Kind = kind
	return a, nil
}

// SplitAliases splits a comma-joined alias list.
func SplitAliases(names string) []string {
	parts := strings.Split(names, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
