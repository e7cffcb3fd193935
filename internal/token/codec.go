// Package token signs and verifies the access and refresh JWTs.
//
// Access and refresh tokens use independent secrets and lifetimes, so a
// token of one kind never verifies as the other. Neither kind is kept on a
// denylist: an access token stays valid until it expires, and refresh
// tokens are revoked only by the stored-token equality check in the
// session service.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned for malformed, forged or expired tokens.
var ErrInvalid = errors.New("invalid token")

const leeway = 30 * time.Second

// Config holds secrets and lifetimes for both token kinds.
type Config struct {
	AccessSecret  []byte
	AccessTTL     time.Duration
	RefreshSecret []byte
	RefreshTTL    time.Duration
}

// AccessClaims identify the caller for a single request window.
type AccessClaims struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// RefreshClaims carry only the subject id.
type RefreshClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// Subject is the identity an access token is issued for.
type Subject struct {
	ID       uuid.UUID
	Username string
	Email    string
}

// Codec issues and verifies HS256 tokens.
type Codec struct {
	cfg Config
	now func() time.Time
}

// NewCodec validates cfg and returns a Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: empty signing secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token: non-positive ttl")
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

func (c *Codec) registered(userID uuid.UUID, ttl time.Duration) (jwt.RegisteredClaims, time.Time, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return jwt.RegisteredClaims{}, time.Time{}, err
	}
	now := c.now()
	exp := now.Add(ttl)
	return jwt.RegisteredClaims{
		ID:        jti.String(),
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}, exp, nil
}

// IssueAccess creates a signed access token for s and returns it with its expiry.
func (c *Codec) IssueAccess(s Subject) (string, time.Time, error) {
	rc, exp, err := c.registered(s.ID, c.cfg.AccessTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	claims := AccessClaims{
		UserID:           s.ID.String(),
		Username:         s.Username,
		Email:            s.Email,
		RegisteredClaims: rc,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, exp, nil
}

// IssueRefresh creates a signed refresh token for userID. Every call yields
// a distinct token thanks to the random jti.
func (c *Codec) IssueRefresh(userID uuid.UUID) (string, error) {
	rc, _, err := c.registered(userID, c.cfg.RefreshTTL)
	if err != nil {
		return "", err
	}
	claims := RefreshClaims{UserID: userID.String(), RegisteredClaims: rc}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess checks signature and expiry against the access secret.
func (c *Codec) VerifyAccess(tok string) (*AccessClaims, uuid.UUID, error) {
	var claims AccessClaims
	if err := c.parse(tok, &claims, c.cfg.AccessSecret); err != nil {
		return nil, uuid.Nil, err
	}
	id, err := uuid.FromString(claims.UserID)
	if err != nil || claims.Subject != claims.UserID {
		return nil, uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalid)
	}
	return &claims, id, nil
}

// VerifyRefresh checks signature and expiry against the refresh secret.
func (c *Codec) VerifyRefresh(tok string) (uuid.UUID, error) {
	var claims RefreshClaims
	if err := c.parse(tok, &claims, c.cfg.RefreshSecret); err != nil {
		return uuid.Nil, err
	}
	id, err := uuid.FromString(claims.UserID)
	if err != nil || claims.Subject != claims.UserID {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalid)
	}
	return id, nil
}

func (c *Codec) parse(tok string, claims jwt.Claims, key []byte) error {
	parsed, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}
