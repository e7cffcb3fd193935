package postgres

import (
	"context"
	"fmt"

	"github.com/and161185/filevault/internal/errs"
	"github.com/and161185/filevault/internal/model"
	"github.com/gofrs/uuid/v5"
)

// FileRepo implements FileRepository using PostgreSQL.
type FileRepo struct{ db *DB }

// NewFileRepo constructs a file metadata repository.
func NewFileRepo(db *DB) *FileRepo { return &FileRepo{db: db} }

// Create inserts a file record; CreatedAt is filled from the database.
func (r *FileRepo) Create(ctx context.Context, f *model.FileRecord) error {
	const q = `
INSERT INTO files (id, user_id, filename, original_name, size, mime_type)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at`
	err := r.db.Pool.QueryRow(ctx, q, f.ID, f.UserID, f.Filename, f.OriginalName, f.Size, f.MimeType).
		Scan(&f.CreatedAt)
	if ok, _ := uniqueViolation(err); ok {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// GetByID returns a single record.
func (r *FileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.FileRecord, error) {
	const q = `
SELECT id, user_id, filename, original_name, size, mime_type, created_at
FROM files WHERE id=$1`
	var f model.FileRecord
	err := r.db.Pool.QueryRow(ctx, q, id).
		Scan(&f.ID, &f.UserID, &f.Filename, &f.OriginalName, &f.Size, &f.MimeType, &f.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &f, nil
}

// ListByUser returns a page of the user's records ordered by insertion.
func (r *FileRepo) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]model.FileRecord, error) {
	const q = `
SELECT id, user_id, filename, original_name, size, mime_type, created_at
FROM files
WHERE user_id=$1
ORDER BY seq ASC
OFFSET $2 LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	out := make([]model.FileRecord, 0, limit)
	for rows.Next() {
		var f model.FileRecord
		if err := rows.Scan(&f.ID, &f.UserID, &f.Filename, &f.OriginalName, &f.Size, &f.MimeType, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a record by ID.
func (r *FileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM files WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
