package httpserver

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/and161185/filevault/internal/service"
	"github.com/gofrs/uuid/v5"
)

type fakeAuth struct {
	users  map[string]model.PublicUser // access token -> user
	err    error
	panics bool
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) session(u model.PublicUser) model.Session {
	return model.Session{User: u, Tokens: model.Tokens{
		AccessToken:  "acc-" + u.Username,
		RefreshToken: "ref-" + u.Username,
		ExpiresAt:    time.Now().Add(15 * time.Minute),
	}}
}

func (f *fakeAuth) Register(_ context.Context, username, email, _ string) (model.Session, error) {
	if f.err != nil {
		return model.Session{}, f.err
	}
	if f.panics {
		panic("boom")
	}
	return f.session(model.PublicUser{ID: uuid.Must(uuid.NewV4()), Username: username, Email: email}), nil
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (model.Session, error) {
	if f.err != nil {
		return model.Session{}, f.err
	}
	return f.session(model.PublicUser{ID: uuid.Must(uuid.NewV4()), Username: "alice", Email: email}), nil
}

func (f *fakeAuth) Logout(context.Context, string) error { return f.err }

func (f *fakeAuth) Refresh(_ context.Context, tok string) (model.Tokens, error) {
	if f.err != nil {
		return model.Tokens{}, f.err
	}
	return model.Tokens{AccessToken: "acc-new", RefreshToken: tok + "-next", ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, tok string) (model.PublicUser, error) {
	if tok == "" {
		return model.PublicUser{}, errs.Auth("not authorized, no token")
	}
	u, ok := f.users[tok]
	if !ok {
		return model.PublicUser{}, errs.Auth("invalid or expired token")
	}
	return u, nil
}

func (f *fakeAuth) GetProfile(_ context.Context, id uuid.UUID) (model.PublicUser, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return model.PublicUser{}, errs.NotFound("user not found")
}

func (f *fakeAuth) UpdateProfile(_ context.Context, id uuid.UUID, username, email string) (model.PublicUser, error) {
	if f.err != nil {
		return model.PublicUser{}, f.err
	}
	return model.PublicUser{ID: id, Username: username, Email: email}, nil
}

func (f *fakeAuth) UpdatePassword(context.Context, uuid.UUID, string, string) error { return f.err }

type memFiles struct {
	mu    sync.Mutex
	recs  map[uuid.UUID]*model.FileRecord
	blobs map[uuid.UUID][]byte

	listPage, listLimit int
}

var _ service.FileService = (*memFiles)(nil)

func newMemFiles() *memFiles {
	return &memFiles{recs: map[uuid.UUID]*model.FileRecord{}, blobs: map[uuid.UUID][]byte{}}
}

func (m *memFiles) Store(_ context.Context, userID uuid.UUID, up model.Upload) (*model.FileRecord, error) {
	if up.MimeType != "text/plain" {
		return nil, errs.Validation("unsupported file type")
	}
	b, err := io.ReadAll(up.Body)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := &model.FileRecord{
		ID:           uuid.Must(uuid.NewV4()),
		Filename:     "file-1-abc.txt",
		OriginalName: up.OriginalName,
		Size:         int64(len(b)),
		MimeType:     up.MimeType,
		UserID:       userID,
		CreatedAt:    time.Now(),
	}
	m.recs[rec.ID] = rec
	m.blobs[rec.ID] = b
	return rec, nil
}

func (m *memFiles) Upload(context.Context, uuid.UUID, *model.BlobRef) (*model.FileRecord, error) {
	return nil, errs.Validation("file is required")
}

func (m *memFiles) get(id, userID uuid.UUID) (*model.FileRecord, error) {
	rec, ok := m.recs[id]
	if !ok {
		return nil, errs.NotFound("file not found")
	}
	if rec.UserID != userID {
		return nil, errs.Forbidden("unauthorized access")
	}
	return rec, nil
}

func (m *memFiles) GetMetadata(_ context.Context, id, userID uuid.UUID) (*model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(id, userID)
}

func (m *memFiles) Download(_ context.Context, id, userID uuid.UUID) (*model.FileRecord, io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, err := m.get(id, userID)
	if err != nil {
		return nil, nil, err
	}
	return rec, io.NopCloser(bytes.NewReader(m.blobs[id])), nil
}

func (m *memFiles) Delete(_ context.Context, id, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.get(id, userID); err != nil {
		return err
	}
	delete(m.recs, id)
	delete(m.blobs, id)
	return nil
}

func (m *memFiles) List(_ context.Context, userID uuid.UUID, page, limit int) ([]model.FileRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listPage, m.listLimit = page, limit
	if page < 1 || limit < 1 {
		return nil, errs.Validation("page and limit must be positive")
	}
	out := []model.FileRecord{}
	for _, r := range m.recs {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}
