// Package model defines domain entities used by services and repositories.
package model

import (
	"io"
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tokens collects an issued access/refresh pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics and cookie max-age)
}

// User represents an account stored on the server. Secrets are never stored in plaintext.
type User struct {
	ID               uuid.UUID // PK
	Username         string    // unique, trimmed, lower-cased
	Email            string    // unique, trimmed, lower-cased
	PwdHash          []byte    // Argon2id(password, SaltAuth)
	SaltAuth         []byte    // per-user auth salt
	RefreshTokenHash string    // SHA-256 of the active refresh token; empty when no session
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Public returns the view of the user that may leave the service layer.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Username: u.Username, Email: u.Email}
}

// PublicUser is the identity exposed to clients and attached to authenticated requests.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
}

// Session is the result of a successful register or login.
type Session struct {
	User   PublicUser
	Tokens Tokens
}

// FileRecord is metadata for one uploaded blob, owned by exactly one user.
type FileRecord struct {
	ID           uuid.UUID `json:"id"`
	Filename     string    `json:"filename"`     // server-generated blob name
	OriginalName string    `json:"originalName"` // client-supplied name
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UserID       uuid.UUID `json:"userId"` // immutable owner
	CreatedAt    time.Time `json:"createdAt"`
}

// BlobRef describes a blob already written to the blob store.
type BlobRef struct {
	Filename     string
	OriginalName string
	Size         int64
	MimeType     string
}

// Upload is an incoming file before it has been written to the blob store.
type Upload struct {
	OriginalName string
	Size         int64
	MimeType     string
	Body         io.Reader
}
