package domain

import (
	json "github.com/goccy/go-json"
)

// Operation is one RFC 6902 patch operation.
type Operation struct {
	Op    string          `json:"op"`
	Path  string          `json:"path"`
	From  string          `json:"from,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Event is an immutable record of one mutation. For a given document,
// replaying all events in ascending version order reconstructs every
// snapshot including the current one.
type Event struct {
	// DocID is the mutated document's id within its collection.
	DocID string `json:"id"`

	// Patch holds the applied operations. Operation values are serialized to
	// JSON strings so the log format stays stable regardless of the value
	// shape (see StringifyOps).
	Patch []Operation `json:"patch"`

	// Version is the version the patch produced.
	Version int64 `json:"version"`

	Meta EventMeta `json:"_meta"`
}

// EventMeta carries the actor and creation time of an event, plus the
// physical index the record was read from on query results.
type EventMeta struct {
	Author  string `json:"author,omitempty"`
	Created int64  `json:"created"`
	Index   string `json:"index,omitempty"`
}

// StringifyOps returns a copy of ops with every operation value re-encoded
// as a JSON string. Events store values this way for log-format stability.
func StringifyOps(ops []Operation) ([]Operation, error) {
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = op
		if op.Value == nil {
			continue
		}
		s, err := json.Marshal(string(op.Value))
		if err != nil {
			return nil, err
		}
		out[i].Value = s
	}
	return out, nil
}

// CreationEvent builds the synthetic "whole document created" event emitted
// alongside a document's first real mutation: a single add-at-root operation
// capturing the entire pre-mutation state, versioned just below the first
// content event so the log is self-contained.
func CreationEvent(docID string, priorState []byte, version int64, author string, now int64) (Event, error) {
	val, err := json.Marshal(string(priorState))
	if err != nil {
		return Event{}, err
	}
	return Event{
		DocID:   docID,
		Patch:   []Operation{{Op: "add", Path: "", Value: val}},
		Version: version,
		Meta:    EventMeta{Author: author, Created: now},
	}, nil
}

// TombstoneEvent builds the event emitted on delete: a remove-at-root
// operation over the full prior document.
func TombstoneEvent(docID string, priorState []byte, version int64, author string, now int64) (Event, error) {
	val, err := json.Marshal(string(priorState))
	if err != nil {
		return Event{}, err
	}
	return Event{
		DocID:   docID,
		Patch:   []Operation{{Op: "remove", Path: "", Value: val}},
		Version: version,
		Meta:    EventMeta{Author: author, Created: now},
	}, nil
}
