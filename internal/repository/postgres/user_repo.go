package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, username, email, pwd_hash, salt_auth, COALESCE(refresh_token_hash, ''), created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash, &u.SaltAuth, &u.RefreshTokenHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, salt_auth)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, u.Email, u.PwdHash, u.SaltAuth)
	if ok, taken := uniqueViolation(err); ok {
		return taken
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, email))
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, username))
}

// GetByRefreshToken selects the user whose active refresh token has the given fingerprint.
func (r *UserRepo) GetByRefreshToken(ctx context.Context, fingerprint string) (*model.User, error) {
	if fingerprint == "" {
		return nil, errs.ErrNotFound
	}
	q := `SELECT ` + userColumns + ` FROM users WHERE refresh_token_hash=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, fingerprint))
}

// UpdateProfile changes username and email of an existing user.
func (r *UserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, username, email string) error {
	const q = `
UPDATE users
SET username = $2, email = $3, updated_at = now()
WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, username, email)
	if ok, taken := uniqueViolation(err); ok {
		return taken
	}
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// UpdatePassword stores a new password hash and salt.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, pwdHash, salt []byte) error {
	const q = `
UPDATE users
SET pwd_hash = $2, salt_auth = $3, updated_at = now()
WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, pwdHash, salt)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SetRefreshToken overwrites the refresh token slot unconditionally.
func (r *UserRepo) SetRefreshToken(ctx context.Context, id uuid.UUID, fingerprint string) error {
	const q = `UPDATE users SET refresh_token_hash = $2, updated_at = now() WHERE id = $1`
	tag, err := r.db.Pool.Exec(ctx, q, id, fingerprint)
	if err != nil {
		return fmt.Errorf("set refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// SwapRefreshToken replaces the refresh token slot only if it still holds old.
func (r *UserRepo) SwapRefreshToken(ctx context.Context, id uuid.UUID, old, next string) error {
	const q = `
UPDATE users
SET refresh_token_hash = $3, updated_at = now()
WHERE id = $1 AND refresh_token_hash = $2`
	tag, err := r.db.Pool.Exec(ctx, q, id, old, next)
	if err != nil {
		return fmt.Errorf("swap refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}

// ClearRefreshToken empties the refresh token slot if it still holds fingerprint.
func (r *UserRepo) ClearRefreshToken(ctx context.Context, id uuid.UUID, fingerprint string) error {
	const q = `
UPDATE users
SET refresh_token_hash = NULL, updated_at = now()
WHERE id = $1 AND refresh_token_hash = $2`
	tag, err := r.db.Pool.Exec(ctx, q, id, fingerprint)
	if err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrVersionConflict
	}
	return nil
}
