package types

import (
	"context"
	"errors"
	"fmt"
)

// Common storage and validation errors
var (
	// ErrNotFound indicates the requested entity does not exist
	ErrNotFound = errors.New("entity not found")

	// ErrValidation indicates malformed input
	ErrValidation = errors.New("validation failed")

	// ErrStorageUnavailable indicates the backing store could not serve the request
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrTimeout indicates a storage call exceeded its deadline
	ErrTimeout = errors.New("storage operation timed out")
)

// ValidationError describes a malformed field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is implements error matching against ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error for the given field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// StorageError wraps a failure of the persistence layer.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("storage %s failed", e.Op)
	}
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

// Is matches ErrStorageUnavailable, and ErrTimeout when the cause was a deadline.
func (e *StorageError) Is(target error) bool {
	switch target {
	case ErrStorageUnavailable:
		return true
	case ErrTimeout:
		return errors.Is(e.Err, context.DeadlineExceeded)
	}
	return false
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a StorageError. Not-found and validation
// errors pass through untouched so callers can still tell them apart.
func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
