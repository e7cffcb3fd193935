// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict indicates a conditional update matched no row
	// (e.g. the refresh token was rotated by a concurrent request).
	ErrVersionConflict = errors.New("version conflict")

	// ErrUnauthorized indicates failed authentication (bad credentials or token).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller acting on a resource it does not own.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInternal indicates an unexpected failure.
	ErrInternal = errors.New("internal")
)

// Unique-constraint sentinels reported by the credential store.
var (
	ErrEmailTaken    = fmt.Errorf("email %w", ErrAlreadyExists)
	ErrUsernameTaken = fmt.Errorf("username %w", ErrAlreadyExists)
)
