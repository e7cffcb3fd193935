// Package blob stores uploaded file contents under server-generated names.
package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/and161185/filevault/internal/crypto"
)

// ErrNotExist is returned when a blob is missing from the store.
var ErrNotExist = errors.New("blob does not exist")

// ErrBadName is returned for names that are not a single path element.
var ErrBadName = errors.New("invalid blob name")

// Store persists blobs addressed by a flat name.
type Store interface {
	// Put writes r under name and returns only after the blob is durable.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
	// Open returns a reader for the blob; ErrNotExist when missing.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Remove deletes the blob; a missing blob is not an error.
	Remove(ctx context.Context, name string) error
}

// NewName returns a collision-resistant server filename that keeps the
// extension of the client-supplied name: file-<unixmillis>-<12 hex><ext>.
func NewName(original string, now time.Time) (string, error) {
	suffix, err := crypto.RandBytes(6)
	if err != nil {
		return "", fmt.Errorf("random suffix: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(original)))
	if !validExt(ext) {
		ext = ""
	}
	return fmt.Sprintf("file-%d-%s%s", now.UnixMilli(), hex.EncodeToString(suffix), ext), nil
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 16 {
		return false
	}
	for _, r := range ext[1:] {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// checkName rejects anything that could escape the store root.
func checkName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrBadName, name)
	}
	return nil
}
