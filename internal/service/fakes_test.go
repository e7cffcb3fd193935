package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/and161185/filevault/internal/blob"
	pkgcrypto "github.com/and161185/filevault/internal/crypto"
	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/and161185/filevault/internal/repository"
	"github.com/and161185/filevault/internal/token"
	"github.com/gofrs/uuid/v5"
)

type fakeUsers struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.User

	createErr error
	getErr    error
	setErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[uuid.UUID]*model.User{}} }

func (f *fakeUsers) find(match func(*model.User) bool) (*model.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, x := range f.byID {
		if x.Email == u.Email {
			return errs.ErrEmailTaken
		}
		if x.Username == u.Username {
			return errs.ErrUsernameTaken
		}
	}
	c := *u
	f.byID[u.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.ID == id })
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(u *model.User) bool { return u.Username == username })
}

func (f *fakeUsers) GetByRefreshToken(_ context.Context, fp string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fp == "" {
		return nil, errs.ErrNotFound
	}
	return f.find(func(u *model.User) bool { return u.RefreshTokenHash == fp })
}

func (f *fakeUsers) UpdateProfile(_ context.Context, id uuid.UUID, username, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.Username, u.Email = username, email
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash, salt []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.PwdHash, u.SaltAuth = hash, salt
	return nil
}

func (f *fakeUsers) SetRefreshToken(_ context.Context, id uuid.UUID, fp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	u, ok := f.byID[id]
	if !ok {
		return errs.ErrNotFound
	}
	u.RefreshTokenHash = fp
	return nil
}

func (f *fakeUsers) SwapRefreshToken(_ context.Context, id uuid.UUID, old, next string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.RefreshTokenHash != old {
		return errs.ErrVersionConflict
	}
	u.RefreshTokenHash = next
	return nil
}

func (f *fakeUsers) ClearRefreshToken(_ context.Context, id uuid.UUID, fp string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok || u.RefreshTokenHash != fp {
		return errs.ErrVersionConflict
	}
	u.RefreshTokenHash = ""
	return nil
}

type fakeFiles struct {
	mu    sync.Mutex
	recs  map[uuid.UUID]*model.FileRecord
	order []uuid.UUID

	createErr error
}

var _ repository.FileRepository = (*fakeFiles)(nil)

func newFakeFiles() *fakeFiles { return &fakeFiles{recs: map[uuid.UUID]*model.FileRecord{}} }

func (f *fakeFiles) Create(_ context.Context, r *model.FileRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	r.CreatedAt = time.Now()
	c := *r
	f.recs[r.ID] = &c
	f.order = append(f.order, r.ID)
	return nil
}

func (f *fakeFiles) GetByID(_ context.Context, id uuid.UUID) (*model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.recs[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (f *fakeFiles) ListByUser(_ context.Context, userID uuid.UUID, offset, limit int) ([]model.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.FileRecord
	for _, id := range f.order {
		r, ok := f.recs[id]
		if !ok || r.UserID != userID {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeFiles) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.recs[id]; !ok {
		return errs.ErrNotFound
	}
	delete(f.recs, id)
	return nil
}

type memBlobs struct {
	mu   sync.Mutex
	data map[string][]byte

	putErr error
}

var _ blob.Store = (*memBlobs)(nil)

func newMemBlobs() *memBlobs { return &memBlobs{data: map[string][]byte{}} }

func (m *memBlobs) Put(_ context.Context, name string, r io.Reader, _ int64, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[name] = b
	return nil
}

func (m *memBlobs) Open(_ context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[name]
	if !ok {
		return nil, blob.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) Remove(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, name)
	return nil
}

func (m *memBlobs) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var testParams = pkgcrypto.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func newTestCodec(t *testing.T) *token.Codec {
	t.Helper()
	c, err := token.NewCodec(token.Config{
		AccessSecret:  []byte("access-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshSecret: []byte("refresh-secret"),
		RefreshTTL:    7 * 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return c
}

func newTestAuth(t *testing.T, users *fakeUsers) *AuthServiceImpl {
	t.Helper()
	s, err := NewAuthService(users, newTestCodec(t), pkgcrypto.NewHasher(testParams))
	if err != nil {
		t.Fatalf("NewAuthService: %v", err)
	}
	return s
}
