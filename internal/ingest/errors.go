package ingest

import (
	"errors"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
)

var (
	// ErrInvalidBundle is returned when the payload is not a single JSON object.
	ErrInvalidBundle = errors.New("ingest: invalid bundle")

	// ErrStoreFailed is returned when the snapshot store keeps failing after retries.
	ErrStoreFailed = errors.New("ingest: storing snapshot failed")
)

// Kind labels an ingest error for metrics, audit rows and API responses.
// Validation failures use the climate error kinds.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidBundle):
		return "invalid_bundle"
	case errors.Is(err, ErrStoreFailed):
		return "store_failed"
	default:
		return climate.Kind(err)
	}
}

// IsValidation reports whether err is a rejection of the payload itself,
// as opposed to a sink failure.
func IsValidation(err error) bool {
	k := Kind(err)
	return k != "" && k != "other" && k != "store_failed"
}
