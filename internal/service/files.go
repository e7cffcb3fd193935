package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"slices"
	"time"

	"github.com/and161185/filevault/internal/blob"
	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/and161185/filevault/internal/repository"
	"github.com/gofrs/uuid/v5"
)

const (
	// DefaultPageSize is used by callers when the client sends no limit.
	DefaultPageSize = 10
	maxPageSize     = 100
)

const (
	msgFileRequired    = "file is required"
	msgFileTooLarge    = "file too large"
	msgUnsupportedType = "unsupported file type"
	msgFileNotFound    = "file not found"
	msgBlobMissing     = "file not found on server"
	msgNotOwner        = "unauthorized access"
	msgBadPage         = "page and limit must be positive"
)

// FileService is the resource ownership layer over uploaded files.
type FileService interface {
	// Store validates an incoming upload, writes the blob and records it.
	Store(ctx context.Context, userID uuid.UUID, up model.Upload) (*model.FileRecord, error)
	// Upload records an already written blob for userID. The blob is
	// removed if the record cannot be stored.
	Upload(ctx context.Context, userID uuid.UUID, ref *model.BlobRef) (*model.FileRecord, error)
	// GetMetadata returns the record if userID owns it.
	GetMetadata(ctx context.Context, fileID, userID uuid.UUID) (*model.FileRecord, error)
	// Download returns the record and an open blob reader. Caller closes it.
	Download(ctx context.Context, fileID, userID uuid.UUID) (*model.FileRecord, io.ReadCloser, error)
	// Delete removes the blob and then the record.
	Delete(ctx context.Context, fileID, userID uuid.UUID) error
	// List returns one page of the user's files in upload order.
	List(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.FileRecord, error)
}

// UploadLimits constrain what Store accepts.
type UploadLimits struct {
	MaxSize      int64
	AllowedTypes []string
}

// FileServiceImpl implements FileService over a FileRepository and a blob Store.
type FileServiceImpl struct {
	files  repository.FileRepository
	blobs  blob.Store
	limits UploadLimits
	now    func() time.Time
}

var _ FileService = (*FileServiceImpl)(nil)

// NewFileService constructs FileService.
func NewFileService(files repository.FileRepository, blobs blob.Store, limits UploadLimits) *FileServiceImpl {
	return &FileServiceImpl{files: files, blobs: blobs, limits: limits, now: time.Now}
}

// authorize is the single ownership check for file operations.
func authorize(f *model.FileRecord, userID uuid.UUID) error {
	if f.UserID != userID {
		return errs.Forbidden(msgNotOwner)
	}
	return nil
}

func (s *FileServiceImpl) allowed(mimeType string) bool {
	if len(s.limits.AllowedTypes) == 0 {
		return true
	}
	return slices.Contains(s.limits.AllowedTypes, mimeType)
}

// Store enforces the size limit and type allow-list, writes the blob under
// a fresh server name and hands it to Upload.
func (s *FileServiceImpl) Store(ctx context.Context, userID uuid.UUID, up model.Upload) (*model.FileRecord, error) {
	if up.Body == nil || up.OriginalName == "" {
		return nil, errs.Validation(msgFileRequired)
	}
	if s.limits.MaxSize > 0 && up.Size > s.limits.MaxSize {
		return nil, errs.Validation(msgFileTooLarge)
	}
	mediaType, _, err := mime.ParseMediaType(up.MimeType)
	if err != nil || !s.allowed(mediaType) {
		return nil, errs.Validation(msgUnsupportedType)
	}

	name, err := blob.NewName(up.OriginalName, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, name, up.Body, up.Size, mediaType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	return s.Upload(ctx, userID, &model.BlobRef{
		Filename:     name,
		OriginalName: up.OriginalName,
		Size:         up.Size,
		MimeType:     mediaType,
	})
}

// Upload creates the file record for a stored blob.
func (s *FileServiceImpl) Upload(ctx context.Context, userID uuid.UUID, ref *model.BlobRef) (*model.FileRecord, error) {
	if ref == nil || ref.Filename == "" {
		return nil, errs.Validation(msgFileRequired)
	}
	id, err := uuid.NewV4()
	if err != nil {
		return nil, s.discard(ctx, ref.Filename, err)
	}
	f := &model.FileRecord{
		ID:           id,
		Filename:     ref.Filename,
		OriginalName: ref.OriginalName,
		Size:         ref.Size,
		MimeType:     ref.MimeType,
		UserID:       userID,
	}
	if err := s.files.Create(ctx, f); err != nil {
		return nil, s.discard(ctx, ref.Filename, fmt.Errorf("create file record: %w", err))
	}
	return f, nil
}

// discard removes an orphaned blob and returns cause, joined with the
// removal error if there was one.
func (s *FileServiceImpl) discard(ctx context.Context, name string, cause error) error {
	if err := s.blobs.Remove(context.WithoutCancel(ctx), name); err != nil {
		return errors.Join(cause, fmt.Errorf("remove orphaned blob %s: %w", name, err))
	}
	return cause
}

func (s *FileServiceImpl) owned(ctx context.Context, fileID, userID uuid.UUID) (*model.FileRecord, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.NotFound(msgFileNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := authorize(f, userID); err != nil {
		return nil, err
	}
	return f, nil
}

// GetMetadata returns a record owned by userID.
func (s *FileServiceImpl) GetMetadata(ctx context.Context, fileID, userID uuid.UUID) (*model.FileRecord, error) {
	return s.owned(ctx, fileID, userID)
}

// Download opens the blob of an owned record. A record whose blob is gone
// is reported with its own message.
func (s *FileServiceImpl) Download(ctx context.Context, fileID, userID uuid.UUID) (*model.FileRecord, io.ReadCloser, error) {
	f, err := s.owned(ctx, fileID, userID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, f.Filename)
	if errors.Is(err, blob.ErrNotExist) {
		return nil, nil, errs.NotFound(msgBlobMissing)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open blob: %w", err)
	}
	return f, rc, nil
}

// Delete removes the blob first so a crash in between leaves an orphaned
// blob, never a record without one.
func (s *FileServiceImpl) Delete(ctx context.Context, fileID, userID uuid.UUID) error {
	f, err := s.owned(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, f.Filename); err != nil {
		return fmt.Errorf("remove blob: %w", err)
	}
	err = s.files.Delete(ctx, f.ID)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.NotFound(msgFileNotFound)
	}
	return err
}

// List pages through the user's files; page starts at 1 and limit is
// capped at maxPageSize. An empty page is an empty slice.
func (s *FileServiceImpl) List(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.FileRecord, error) {
	if page < 1 || limit < 1 {
		return nil, errs.Validation(msgBadPage)
	}
	limit = min(limit, maxPageSize)

	out, err := s.files.ListByUser(ctx, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.FileRecord{}
	}
	return out, nil
}
