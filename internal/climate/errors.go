package climate

import (
	"errors"
	"fmt"
)

// Domain errors for the climate package.
//
// Every construction failure wraps exactly one of these, so callers can
// branch with errors.Is() regardless of how deep in the graph it happened:
//
//	if errors.Is(err, climate.ErrMissingStructure) {
//	    // payload shape changed upstream
//	}
var (
	// ErrMissingStructure is returned when an expected nested container is absent.
	ErrMissingStructure = errors.New("climate: missing structure")

	// ErrMissingField is returned when a required leaf field is absent or null.
	ErrMissingField = errors.New("climate: missing field")

	// ErrTypeMismatch is returned when a field's value does not match its declared type.
	ErrTypeMismatch = errors.New("climate: type mismatch")

	// ErrInvalidEnumValue is returned when a token is not a member of its closed set.
	ErrInvalidEnumValue = errors.New("climate: invalid enum value")

	// ErrInvalidRange is returned when an end timestamp precedes its start.
	ErrInvalidRange = errors.New("climate: invalid range")

	// ErrConflictingField is returned when a raw record carries a key the
	// parent injects (system_id).
	ErrConflictingField = errors.New("climate: conflicting field")

	// ErrUnknownField is returned in strict mode for keys outside the field list.
	ErrUnknownField = errors.New("climate: unknown field")

	// ErrDuplicateIndex is returned when two sub-components share an index.
	ErrDuplicateIndex = errors.New("climate: duplicate index")
)

// FieldError identifies the field that failed and the type it should have had.
// It unwraps to one of the package sentinels.
type FieldError struct {
	Path     string
	Expected string
	Err      error
}

func (e *FieldError) Error() string {
	if e.Expected == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v (expected %s)", e.Path, e.Err, e.Expected)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// kinds maps each sentinel to a short label used in metrics and log fields.
var kinds = []struct {
	err  error
	name string
}{
	{ErrMissingStructure, "missing_structure"},
	{ErrMissingField, "missing_field"},
	{ErrTypeMismatch, "type_mismatch"},
	{ErrInvalidEnumValue, "invalid_enum_value"},
	{ErrInvalidRange, "invalid_range"},
	{ErrConflictingField, "conflicting_field"},
	{ErrUnknownField, "unknown_field"},
	{ErrDuplicateIndex, "duplicate_index"},
}

// Kind returns a stable label for the climate error wrapped by err.
// Returns "" for nil and "other" for errors from outside this package.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "other"
}

// atIndex annotates err with the collection and position of the failing record.
func atIndex(collection string, i int, err error) error {
	return fmt.Errorf("%s[%d]: %w", collection, i, err)
}
