package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local keeps blobs as files in a single directory; the path of a blob is
// always <root>/<name>.
type Local struct {
	root string
}

var _ Store = (*Local)(nil)

// NewLocal creates root if needed and returns a filesystem store.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Local{root: root}, nil
}

// Path returns the deterministic location of name.
func (l *Local) Path(name string) string { return filepath.Join(l.root, name) }

// Put writes to a temp file, syncs it and renames it into place.
func (l *Local) Put(_ context.Context, name string, r io.Reader, size int64, _ string) (err error) {
	if err := checkName(name); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(l.root, ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	n, err := io.Copy(tmp, r)
	if err != nil {
		return fmt.Errorf("write blob: %w", err)
	}
	if size >= 0 && n != size {
		return fmt.Errorf("write blob: short write %d of %d bytes", n, size)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync blob: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close blob: %w", err)
	}
	if err = os.Rename(tmp.Name(), l.Path(name)); err != nil {
		return fmt.Errorf("rename blob: %w", err)
	}
	return nil
}

// Open opens the blob for reading.
func (l *Local) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(l.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

// Remove deletes the blob, tolerating its absence.
func (l *Local) Remove(_ context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.Remove(l.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}
