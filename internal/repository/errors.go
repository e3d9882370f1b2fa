// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrNotFound indicates that no row matched the given key,
// while ErrConflict signals that an insert collided with an existing
// key (e.g. a competitor listing URL that is already tracked).
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the addressed row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert or update would duplicate an
// existing key. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrUsernameExists is returned by UserRepo.Create for a taken username.
var ErrUsernameExists = fmt.Errorf("username already registered: %w", ErrConflict)

// ValidationError names the field and the constraint a caller violated.
// Handlers should translate this into an HTTP 400 response.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
