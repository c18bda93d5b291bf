// Package domain holds the error taxonomy and value objects shared by every
// module. Handlers map these sentinel errors onto HTTP status codes with
// errors.Is; repositories and services wrap them with context via fmt.Errorf.
package domain

import "errors"

var (
	// ErrInvalidArgument flags malformed or missing input, rejected before
	// any side effect.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound flags an operation targeting an unknown record.
	ErrNotFound = errors.New("not found")

	// ErrConflict flags an attempt to open a second position for a stock
	// that already has one.
	ErrConflict = errors.New("position already exists")

	// ErrInsufficientPosition flags a sell larger than the held quantity.
	ErrInsufficientPosition = errors.New("insufficient position quantity")

	// ErrUnauthorized flags a failed credential check.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPersistence flags a storage failure. The failing operation surfaces
	// it immediately; nothing retries internally.
	ErrPersistence = errors.New("persistence failure")
)
