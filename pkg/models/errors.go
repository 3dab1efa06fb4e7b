package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the engine, the store and the handlers.
//
// Wrap them with context using fmt.Errorf("...: %w", err) and test with errors.Is.
var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRange is returned when an end date precedes its start date.
	ErrInvalidRange = errors.New("end date is before start date")

	// ErrInvalidAssignment is returned when the starting block does not belong to the assigned shift.
	ErrInvalidAssignment = errors.New("start block does not belong to the assigned shift")

	// ErrAssignmentOverlap is returned when an active assignment already covers part of the range.
	ErrAssignmentOverlap = errors.New("assignment overlaps an existing active assignment")

	// ErrSecondDefault is returned when saving a default state while another one exists.
	ErrSecondDefault = errors.New("another state is already the default")

	// ErrInvalidShift is returned for shifts with no blocks, duplicate positions or non-positive durations.
	ErrInvalidShift = errors.New("invalid shift definition")

	// ErrUnknownKind is returned when a source mapping names a record kind with no adapter.
	ErrUnknownKind = errors.New("unknown record kind")

	// ErrUnknownField is returned when a source mapping names a field the record kind does not expose.
	ErrUnknownField = errors.New("unknown record field")
)

// ValidationError rejects a write. It is never persisted.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Invalid builds a ValidationError for a field
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ConfigurationError marks a malformed source mapping. Resolution skips the
// mapping and carries on with the rest.
type ConfigurationError struct {
	MappingID uint
	Kind      string
	Err       error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("source mapping %d (%s): %v", e.MappingID, e.Kind, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
