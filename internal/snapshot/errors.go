package snapshot

import "errors"

var (
	// ErrNotFound is returned when no snapshot exists for a system id.
	ErrNotFound = errors.New("snapshot: not found")

	// ErrInvalidInput is returned for a nil system, empty payload or empty id.
	ErrInvalidInput = errors.New("snapshot: invalid input")
)
