package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the lifecycle, its adapters and the HTTP surface.
// Callers classify with errors.Is; every layer wraps with %w.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrValidation      = errors.New("validation failed")
	ErrEncoding        = errors.New("encoding failed")
	ErrRenderingFailed = errors.New("rendering failed")

	// ErrCheckpointNotFound is an ErrNotFound scoped to the ledger.
	ErrCheckpointNotFound = fmt.Errorf("checkpoint %w", ErrNotFound)
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
