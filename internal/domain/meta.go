package domain

// MetaKey is the reserved top-level field carrying entity bookkeeping.
const MetaKey = "_meta"

// Meta is the reserved `_meta` block every entity carries.
type Meta struct {
	// Version starts at 1 and increases by one on every successful mutation.
	// It doubles as the optimistic-concurrency token: each conditioned write
	// names the version it was computed against.
	Version int64 `json:"version"`

	// Created and Updated are millisecond timestamps. Creation sets both
	// equal; their equality marks a document that has never been patched.
	Created int64 `json:"created"`
	Updated int64 `json:"updated"`

	// Author is the actor of the latest change, as supplied by the identity
	// collaborator. It is trusted, not re-validated.
	Author string `json:"author,omitempty"`

	ACL ACL `json:"acl,omitempty"`

	// MetaID references the schema entity governing this entity. Carried as
	// an opaque field.
	MetaID string `json:"metaId,omitempty"`

	// Index is the physical index the snapshot currently resides in. It may
	// change on rollover and is not part of the identity.
	Index string `json:"index,omitempty"`
}

// Fresh reports whether the entity has never been patched since creation.
func (m Meta) Fresh() bool { return m.Created == m.Updated }
