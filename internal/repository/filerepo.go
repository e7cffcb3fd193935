package repository

import (
	"context"

	"github.com/and161185/filevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FileRepository provides access to uploaded-file metadata.
type FileRepository interface {
	// Create inserts a new file record.
	Create(ctx context.Context, f *model.FileRecord) error

	// GetByID returns a single record by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.FileRecord, error)

	// ListByUser returns records owned by userID in insertion order.
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.FileRecord, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id uuid.UUID) error
}
