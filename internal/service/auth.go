// Package service contains the session lifecycle and file ownership services.
package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	pkgcrypto "github.com/and161185/filevault/internal/crypto"
	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/and161185/filevault/internal/repository"
	"github.com/and161185/filevault/internal/token"
	"github.com/gofrs/uuid/v5"
)

const (
	minUsernameLen = 3
	minPasswordLen = 8
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Client-facing messages shared by several operations.
const (
	msgFieldsRequired    = "all fields are required"
	msgInvalidEmail      = "invalid email format"
	msgShortPassword     = "password must be at least 8 characters"
	msgShortUsername     = "username must be at least 3 characters"
	msgEmailTaken        = "email is already registered"
	msgUsernameTaken     = "username is already taken"
	msgInvalidCreds      = "invalid credentials"
	msgRefreshRequired   = "refresh token is required"
	msgInvalidRefresh    = "invalid refresh token"
	msgTokenFailure      = "something went wrong while generating tokens"
	msgNoToken           = "not authorized, no token"
	msgInvalidToken      = "invalid or expired token"
	msgUserNotFound      = "user not found"
	msgPasswordsRequired = "old and new password are required"
)

// AuthService is the session lifecycle: registration, login, token
// rotation, logout and profile management.
type AuthService interface {
	// Register creates a user and opens its first session.
	Register(ctx context.Context, username, email, password string) (model.Session, error)
	// Login verifies credentials and replaces any existing session.
	Login(ctx context.Context, email, password string) (model.Session, error)
	// Logout ends the session held by refreshToken.
	Logout(ctx context.Context, refreshToken string) error
	// Refresh rotates the session: the old refresh token stops working.
	Refresh(ctx context.Context, refreshToken string) (model.Tokens, error)
	// Authenticate resolves an access token to the calling user.
	Authenticate(ctx context.Context, accessToken string) (model.PublicUser, error)
	// GetProfile returns the public view of a user.
	GetProfile(ctx context.Context, userID uuid.UUID) (model.PublicUser, error)
	// UpdateProfile changes username and email.
	UpdateProfile(ctx context.Context, userID uuid.UUID, username, email string) (model.PublicUser, error)
	// UpdatePassword re-verifies the old password and stores a new hash.
	UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error
}

// AuthServiceImpl implements AuthService over a UserRepository and a token Codec.
type AuthServiceImpl struct {
	users  repository.UserRepository
	codec  *token.Codec
	hasher *pkgcrypto.Hasher

	// burned on unknown emails so both login failures cost the same
	dummySalt []byte
	dummyHash []byte
}

var _ AuthService = (*AuthServiceImpl)(nil)

// NewAuthService constructs AuthService with required dependencies.
func NewAuthService(users repository.UserRepository, codec *token.Codec, hasher *pkgcrypto.Hasher) (*AuthServiceImpl, error) {
	hash, salt, err := hasher.Hash("filevault-dummy-password")
	if err != nil {
		return nil, err
	}
	return &AuthServiceImpl{users: users, codec: codec, hasher: hasher, dummySalt: salt, dummyHash: hash}, nil
}

func normalize(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func validateIdentity(username, email string) error {
	if username == "" || email == "" {
		return errs.Validation(msgFieldsRequired)
	}
	if len(username) < minUsernameLen {
		return errs.Validation(msgShortUsername)
	}
	if !emailPattern.MatchString(email) {
		return errs.Validation(msgInvalidEmail)
	}
	return nil
}

// conflict maps store uniqueness sentinels to client messages.
func conflict(err error) error {
	switch {
	case errors.Is(err, errs.ErrEmailTaken):
		return errs.Conflict(msgEmailTaken)
	case errors.Is(err, errs.ErrUsernameTaken):
		return errs.Conflict(msgUsernameTaken)
	}
	return err
}

// Register normalizes and validates input, checks email then username for
// uniqueness, stores the user and issues its first token pair.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) (model.Session, error) {
	username, email = normalize(username), normalize(email)
	if strings.TrimSpace(password) == "" {
		return model.Session{}, errs.Validation(msgFieldsRequired)
	}
	if err := validateIdentity(username, email); err != nil {
		return model.Session{}, err
	}
	if len(password) < minPasswordLen {
		return model.Session{}, errs.Validation(msgShortPassword)
	}

	if err := s.ensureFree(ctx, uuid.Nil, username, email); err != nil {
		return model.Session{}, err
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return model.Session{}, err
	}
	hash, salt, err := s.hasher.Hash(password)
	if err != nil {
		return model.Session{}, err
	}
	u := &model.User{
		ID:       uid,
		Username: username,
		Email:    email,
		PwdHash:  hash,
		SaltAuth: salt,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return model.Session{}, conflict(err)
	}

	tokens, err := s.issue(ctx, uid, "")
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{User: u.Public(), Tokens: tokens}, nil
}

// ensureFree reports a conflict when email or username belongs to a user
// other than self. Email is checked first.
func (s *AuthServiceImpl) ensureFree(ctx context.Context, self uuid.UUID, username, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil && u.ID != self:
		return errs.Conflict(msgEmailTaken)
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		return err
	}
	u, err = s.users.GetByUsername(ctx, username)
	switch {
	case err == nil && u.ID != self:
		return errs.Conflict(msgUsernameTaken)
	case err != nil && !errors.Is(err, errs.ErrNotFound):
		return err
	}
	return nil
}

// Login authenticates by email and password. Unknown email and wrong
// password produce the same error.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (model.Session, error) {
	email = normalize(email)
	if email == "" || password == "" {
		return model.Session{}, errs.Validation(msgFieldsRequired)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, errs.ErrNotFound) {
		s.hasher.Verify(password, s.dummySalt, s.dummyHash)
		return model.Session{}, errs.Auth(msgInvalidCreds)
	}
	if err != nil {
		return model.Session{}, err
	}
	if !s.hasher.Verify(password, u.SaltAuth, u.PwdHash) {
		return model.Session{}, errs.Auth(msgInvalidCreds)
	}

	tokens, err := s.issue(ctx, u.ID, "")
	if err != nil {
		return model.Session{}, err
	}
	return model.Session{User: u.Public(), Tokens: tokens}, nil
}

// issue signs a fresh pair for userID and stores the refresh fingerprint
// before returning. With prev empty the slot is overwritten; otherwise it
// is replaced only if it still holds prev.
func (s *AuthServiceImpl) issue(ctx context.Context, userID uuid.UUID, prev string) (model.Tokens, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.Tokens{}, errs.Internal(msgTokenFailure, err)
	}

	access, exp, err := s.codec.IssueAccess(token.Subject{ID: u.ID, Username: u.Username, Email: u.Email})
	if err != nil {
		return model.Tokens{}, errs.Internal(msgTokenFailure, err)
	}
	refresh, err := s.codec.IssueRefresh(u.ID)
	if err != nil {
		return model.Tokens{}, errs.Internal(msgTokenFailure, err)
	}

	next := pkgcrypto.Fingerprint(refresh)
	if prev == "" {
		err = s.users.SetRefreshToken(ctx, u.ID, next)
	} else {
		err = s.users.SwapRefreshToken(ctx, u.ID, prev, next)
	}
	if errors.Is(err, errs.ErrVersionConflict) {
		return model.Tokens{}, errs.Auth(msgInvalidRefresh)
	}
	if err != nil {
		return model.Tokens{}, errs.Internal(msgTokenFailure, err)
	}
	return model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp}, nil
}

// holder returns the user currently holding refreshToken and its fingerprint.
func (s *AuthServiceImpl) holder(ctx context.Context, refreshToken string) (*model.User, string, error) {
	if refreshToken == "" {
		return nil, "", errs.Validation(msgRefreshRequired)
	}
	fp := pkgcrypto.Fingerprint(refreshToken)
	u, err := s.users.GetByRefreshToken(ctx, fp)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, "", errs.Auth(msgInvalidRefresh)
	}
	if err != nil {
		return nil, "", err
	}
	return u, fp, nil
}

// Logout clears the session slot. A token that was already rotated away
// is rejected rather than treated as logged out.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	u, fp, err := s.holder(ctx, refreshToken)
	if err != nil {
		return err
	}
	err = s.users.ClearRefreshToken(ctx, u.ID, fp)
	if errors.Is(err, errs.ErrVersionConflict) {
		return errs.Auth(msgInvalidRefresh)
	}
	return err
}

// Refresh verifies that refreshToken is both held and validly signed for
// the holder, then rotates it.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Tokens, error) {
	u, fp, err := s.holder(ctx, refreshToken)
	if err != nil {
		return model.Tokens{}, err
	}
	subject, err := s.codec.VerifyRefresh(refreshToken)
	if err != nil || subject != u.ID {
		return model.Tokens{}, errs.Auth(msgInvalidRefresh)
	}
	return s.issue(ctx, u.ID, fp)
}

// Authenticate verifies an access token and loads its user.
func (s *AuthServiceImpl) Authenticate(ctx context.Context, accessToken string) (model.PublicUser, error) {
	if accessToken == "" {
		return model.PublicUser{}, errs.Auth(msgNoToken)
	}
	_, id, err := s.codec.VerifyAccess(accessToken)
	if err != nil {
		return model.PublicUser{}, errs.Auth(msgInvalidToken)
	}
	return s.GetProfile(ctx, id)
}

// GetProfile loads a user and strips secrets.
func (s *AuthServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (model.PublicUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return model.PublicUser{}, errs.NotFound(msgUserNotFound)
	}
	if err != nil {
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

// UpdateProfile applies the registration rules to the new username and email.
func (s *AuthServiceImpl) UpdateProfile(ctx context.Context, userID uuid.UUID, username, email string) (model.PublicUser, error) {
	username, email = normalize(username), normalize(email)
	if err := validateIdentity(username, email); err != nil {
		return model.PublicUser{}, err
	}
	if err := s.ensureFree(ctx, userID, username, email); err != nil {
		return model.PublicUser{}, err
	}

	err := s.users.UpdateProfile(ctx, userID, username, email)
	if errors.Is(err, errs.ErrNotFound) {
		return model.PublicUser{}, errs.NotFound(msgUserNotFound)
	}
	if err != nil {
		return model.PublicUser{}, conflict(err)
	}
	return model.PublicUser{ID: userID, Username: username, Email: email}, nil
}

// UpdatePassword changes the password. The session is left untouched.
func (s *AuthServiceImpl) UpdatePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return errs.Validation(msgPasswordsRequired)
	}
	if len(newPassword) < minPasswordLen {
		return errs.Validation(msgShortPassword)
	}

	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.NotFound(msgUserNotFound)
	}
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, u.SaltAuth, u.PwdHash) {
		return errs.Auth(msgInvalidCreds)
	}

	hash, salt, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash, salt); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.NotFound(msgUserNotFound)
		}
		return err
	}
	return nil
}
