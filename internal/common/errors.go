package common

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by repositories, services and the HTTP layer.
// Callers should match them with errors.Is.
var (
	// ErrNotFound covers lookups by caller-supplied keys. It is a normal
	// outcome, not a fault.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned by stores when a staged change violates a
	// uniqueness constraint.
	ErrConflict = errors.New("already exists")

	// ErrIntegrity marks invariant violations: more than one entity matched a
	// key expected to be unique, or the store misbehaved after all guards
	// passed. Fatal for the request.
	ErrIntegrity = errors.New("data integrity fault")

	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
)

// EntityError is a conflict raised by a service with a message safe to show to
// the user (duplicate username, duplicate package version, ...). It wraps
// ErrConflict so errors.Is(err, ErrConflict) still matches.
type EntityError struct {
	msg string
}

func NewEntityError(format string, args ...any) *EntityError {
	return &EntityError{msg: fmt.Sprintf(format, args...)}
}

func (e *EntityError) Error() string { return e.msg }

func (e *EntityError) Unwrap() error { return ErrConflict }
