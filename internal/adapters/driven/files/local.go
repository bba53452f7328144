// Package files implements the on-disk file store: uploads are spooled
// into a storage directory and moved to archive or failed areas after
// their pipeline run.
package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.FileStore = (*LocalStore)(nil)

const (
	storageDir = "storage"
	archiveDir = "archive"
	failedDir  = "failed"
)

// LocalStore keeps files under a single root with storage, archive and
// failed subdirectories.
type LocalStore struct {
	root string
}

// NewLocalStore creates the directory layout under root.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("file store root is required")
	}
	for _, dir := range []string{storageDir, archiveDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", dir, err)
		}
	}
	return &LocalStore{root: root}, nil
}

// Store spools the reader into the storage directory under a
// collision-safe name derived from filename.
func (s *LocalStore) Store(ctx context.Context, r io.Reader, filename string) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}

	path, f, err := s.createUnique(filepath.Join(s.root, storageDir), filename)
	if err != nil {
		return "", 0, err
	}

	written, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", 0, fmt.Errorf("spool upload: %w", err)
	}
	return path, written, nil
}

// Open opens a stored file for reading
func (s *LocalStore) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// Archive moves a processed file into the archive directory.
func (s *LocalStore) Archive(ctx context.Context, path string) (string, error) {
	return s.moveTo(ctx, path, archiveDir)
}

// MoveToFailed moves a file whose pipeline run failed into the failed
// directory.
func (s *LocalStore) MoveToFailed(ctx context.Context, path string) (string, error) {
	return s.moveTo(ctx, path, failedDir)
}

// Remove deletes a stored file. Used to discard duplicate uploads.
func (s *LocalStore) Remove(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (s *LocalStore) moveTo(ctx context.Context, path, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dest, f, err := s.createUnique(filepath.Join(s.root, dir), filepath.Base(path))
	if err != nil {
		return "", err
	}
	f.Close()

	if err := os.Rename(path, dest); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("move %s to %s: %w", path, dir, err)
	}
	return dest, nil
}

// createUnique opens a new file under dir named after filename,
// appending a counter before the extension on collision.
func (s *LocalStore) createUnique(dir, filename string) (string, *os.File, error) {
	base := sanitizeFilename(filename)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return path, f, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", nil, fmt.Errorf("create %s: %w", path, err)
		}
	}
}

// sanitizeFilename strips path components and characters that could
// escape the storage directory.
func sanitizeFilename(filename string) string {
	base := filepath.Base(filepath.Clean(filename))
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." {
		base = "upload"
	}
	return base
}
