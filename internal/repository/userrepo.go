// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/and161185/filevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// UserRepository provides access to user identity records and the
// single-slot refresh token of each user.
type UserRepository interface {
	// Create inserts a new user. Returns errs.ErrEmailTaken or errs.ErrUsernameTaken on conflicts.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByEmail loads a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetByUsername loads a user by normalized username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	// GetByRefreshToken loads the user currently holding the refresh token with the given fingerprint.
	GetByRefreshToken(ctx context.Context, fingerprint string) (*model.User, error)
	// UpdateProfile changes username and email.
	UpdateProfile(ctx context.Context, id uuid.UUID, username, email string) error
	// UpdatePassword replaces the password hash and salt.
	UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash, salt []byte) error
	// SetRefreshToken overwrites the stored refresh token fingerprint.
	SetRefreshToken(ctx context.Context, id uuid.UUID, fingerprint string) error
	// SwapRefreshToken replaces the fingerprint only if it still equals old.
	// Returns errs.ErrVersionConflict when it does not.
	SwapRefreshToken(ctx context.Context, id uuid.UUID, old, next string) error
	// ClearRefreshToken ends the session if the fingerprint still matches.
	// Returns errs.ErrVersionConflict when it does not.
	ClearRefreshToken(ctx context.Context, id uuid.UUID, fingerprint string) error
}
