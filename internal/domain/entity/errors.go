package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the repository and usecase layers.
var (
	// ErrNotFound is returned when a lookup matches no entity.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned for input that fails structural checks.
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed is returned when an entity fails its own
	// validation rules.
	ErrValidationFailed = errors.New("validation failed")

	// ErrDuplicate is returned when an entity with the same key already
	// exists, typically on a content-hash collision.
	ErrDuplicate = errors.New("duplicate entity")
)

// ValidationError carries the field that failed validation so handlers can
// report it back to API clients.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}
