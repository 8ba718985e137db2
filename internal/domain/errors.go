package domain

import "errors"

// Sentinel errors used across all layers.
var (
	// ErrNotFound is returned when an entity or a pinned version is absent.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned on a create collision.
	ErrAlreadyExists = errors.New("already exists")

	// ErrPatchValidation marks a patch that cannot be applied to the current
	// state (test-operation mismatch, missing path, malformed operation).
	// Detected before any I/O; no mutation has been performed.
	ErrPatchValidation = errors.New("patch validation failed")

	// ErrPatchApply marks a failure while applying a structurally valid patch.
	// No mutation has been performed.
	ErrPatchApply = errors.New("patch apply failed")

	// ErrVersionConflict is returned when a version-conditioned write loses a
	// concurrent-write race. The caller must re-fetch and retry; this layer
	// never retries automatically.
	ErrVersionConflict = errors.New("version conflict")

	// ErrBackend wraps I/O and transport failures from the store. The write
	// may or may not have committed; callers must re-read before retrying.
	ErrBackend = errors.New("backend error")
)
