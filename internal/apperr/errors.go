// Package apperr defines the error kinds shared by the store, the lending
// service and the HTTP layer.
//
// Every carrier unwraps to its kind sentinel and to its reason, so callers can
// branch on either:
//
//	if errors.Is(err, apperr.ErrConflict) { ... }
//	if errors.Is(err, lending.ErrCopyNotAvailable) { ... }
package apperr

import (
	"errors"
	"fmt"
)

// Kinds.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
)

// ErrStaleWrite is the reason carried by a ConflictError when an optimistic
// version check matched no row.
var ErrStaleWrite = errors.New("record was modified concurrently")

// ValidationError reports bad or missing input.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// NotFoundError reports an absent entity.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError reports a uniqueness violation, a stale write, or a deletion
// blocked by references.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return e.Err.Error()
}

func (e *ConflictError) Unwrap() []error {
	return []error{ErrConflict, e.Err}
}

func Validation(field string, reason error) error {
	return &ValidationError{Field: field, Err: reason}
}

func NotFound(entity string, id uint) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func Conflict(reason error) error {
	return &ConflictError{Err: reason}
}

// Kind returns the kind sentinel err belongs to, or nil for unclassified
// errors.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict):
		return ErrConflict
	}
	return nil
}
