package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrRunNotFound     = fmt.Errorf("%w: run", ErrNotFound)
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrModelNotFound   = fmt.Errorf("%w: model", ErrNotFound)
	ErrSliceNotFound   = fmt.Errorf("%w: slice", ErrNotFound)

	// Validation errors
	ErrInvalidConfig    = errors.New("invalid evaluation config")
	ErrDuplicateSlice   = errors.New("duplicate slice key")
	ErrMissingColumn    = errors.New("required column missing")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Determinism errors
	ErrHashMismatch = errors.New("hash mismatch")
)

// Error constructors with context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

func NewMissingColumnError(column string, context string) error {
	return fmt.Errorf("%w: %s (%s)", ErrMissingColumn, column, context)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrDuplicateSlice) ||
		errors.Is(err, ErrMissingColumn) ||
		errors.Is(err, ErrInsufficientData)
}
