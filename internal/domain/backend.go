package domain

import json "github.com/goccy/go-json"

// Snapshot is the stored current state of an entity as returned by the
// backend gateway.
type Snapshot struct {
	ID      string
	Index   string
	Version int64
	Source  json.RawMessage
}

// BulkOpKind discriminates the operations of one atomic bulk write.
type BulkOpKind int

const (
	// OpCreateSnapshot writes a snapshot that must not yet exist.
	// A collision fails the whole bulk with ErrAlreadyExists.
	OpCreateSnapshot BulkOpKind = iota

	// OpIndexSnapshot writes a snapshot unconditionally (upsert). Used by
	// provisioning seeds.
	OpIndexSnapshot

	// OpPutSnapshot writes a snapshot conditioned on ExpectedVersion still
	// being the stored version. A mismatch fails the whole bulk with
	// ErrVersionConflict; this is the sole mechanism preventing lost updates.
	OpPutSnapshot

	// OpDeleteSnapshot removes the physical snapshot.
	OpDeleteSnapshot

	// OpAppendEvent appends an event record to an event-log alias.
	OpAppendEvent
)

// BulkOp is one operation of an atomic multi-operation write. Either every
// op of a bulk commits, or none does.
type BulkOp struct {
	Kind BulkOpKind

	// Index is the target index or alias.
	Index string
	ID    string

	// Version is the new snapshot version for snapshot writes.
	Version int64
	// ExpectedVersion conditions an OpPutSnapshot.
	ExpectedVersion int64

	// Doc is the snapshot body for snapshot writes.
	Doc json.RawMessage

	// Event is the record for OpAppendEvent.
	Event *Event
}
