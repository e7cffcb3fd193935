package token

import (
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(Config{
		AccessSecret:  []byte("access-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshTTL:    7 * 24 * time.Hour,
	})
	require.NoError(t, err)
	return c
}

func TestNewCodec_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(Config{AccessSecret: []byte("a"), AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.Error(t, err)

	_, err = NewCodec(Config{AccessSecret: []byte("a"), RefreshSecret: []byte("r"), RefreshTTL: time.Hour})
	require.Error(t, err)
}

func TestCodec_AccessRoundTrip(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	sub := Subject{ID: uuid.Must(uuid.NewV4()), Username: "alice", Email: "alice@x.com"}

	tok, exp, err := c.IssueAccess(sub)
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.WithinDuration(t, time.Now().Add(15*time.Minute), exp, 5*time.Second)

	claims, id, err := c.VerifyAccess(tok)
	require.NoError(t, err)
	require.Equal(t, sub.ID, id)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, "alice@x.com", claims.Email)
}

func TestCodec_RefreshTokensAreDistinct(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	id := uuid.Must(uuid.NewV4())

	t1, err := c.IssueRefresh(id)
	require.NoError(t, err)
	t2, err := c.IssueRefresh(id)
	require.NoError(t, err)
	require.NotEqual(t, t1, t2)

	got, err := c.VerifyRefresh(t1)
	require.NoError(t, err)
	require.Equal(t, id, got)
}

func TestCodec_KindsDoNotCrossVerify(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	id := uuid.Must(uuid.NewV4())

	access, _, err := c.IssueAccess(Subject{ID: id, Username: "u", Email: "u@x.io"})
	require.NoError(t, err)
	refresh, err := c.IssueRefresh(id)
	require.NoError(t, err)

	_, err = c.VerifyRefresh(access)
	require.ErrorIs(t, err, ErrInvalid)
	_, _, err = c.VerifyAccess(refresh)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestCodec_Expired(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	id := uuid.Must(uuid.NewV4())
	c.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }

	refresh, err := c.IssueRefresh(id)
	require.NoError(t, err)
	access, _, err := c.IssueAccess(Subject{ID: id})
	require.NoError(t, err)

	c.now = time.Now
	_, err = c.VerifyRefresh(refresh)
	require.ErrorIs(t, err, ErrInvalid)
	_, _, err = c.VerifyAccess(access)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestCodec_RejectsForeignTokens(t *testing.T) {
	t.Parallel()

	c := newTestCodec(t)
	id := uuid.Must(uuid.NewV4()).String()
	now := time.Now()
	base := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	sign := func(m jwt.SigningMethod, claims jwt.Claims, key []byte) string {
		s, err := jwt.NewWithClaims(m, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	cases := map[string]string{
		"wrong alg":       sign(jwt.SigningMethodHS384, RefreshClaims{UserID: id, RegisteredClaims: base}, []byte("refresh-secret")),
		"wrong secret":    sign(jwt.SigningMethodHS256, RefreshClaims{UserID: id, RegisteredClaims: base}, []byte("other")),
		"no expiry":       sign(jwt.SigningMethodHS256, RefreshClaims{UserID: id, RegisteredClaims: jwt.RegisteredClaims{Subject: id}}, []byte("refresh-secret")),
		"bad subject":     sign(jwt.SigningMethodHS256, RefreshClaims{UserID: "not-a-uuid", RegisteredClaims: jwt.RegisteredClaims{Subject: "not-a-uuid", ExpiresAt: base.ExpiresAt}}, []byte("refresh-secret")),
		"subject differs": sign(jwt.SigningMethodHS256, RefreshClaims{UserID: uuid.Must(uuid.NewV4()).String(), RegisteredClaims: base}, []byte("refresh-secret")),
		"garbage":         "this-is-not-a-jwt",
	}
	for name, tok := range cases {
		_, err := c.VerifyRefresh(tok)
		if !errors.Is(err, ErrInvalid) {
			t.Fatalf("%s: want ErrInvalid, got %v", name, err)
		}
	}
}
