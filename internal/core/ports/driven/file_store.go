package driven

import (
	"context"
	"io"
)

// FileStore handles the on-disk lifecycle of uploaded files: spooling an
// upload into storage, handing it to the parser, and moving it to the
// archive or failed area after a pipeline run.
type FileStore interface {
	// Store spools the reader into the storage root under a collision-safe
	// name derived from filename. Returns the stored path and byte count.
	Store(ctx context.Context, r io.Reader, filename string) (path string, size int64, err error)

	// Open opens a stored file for reading
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Archive moves a processed file into the archive directory and
	// returns its new path
	Archive(ctx context.Context, path string) (string, error)

	// MoveToFailed moves a file whose pipeline run failed into the failed
	// directory and returns its new path
	MoveToFailed(ctx context.Context, path string) (string, error)

	// Remove deletes a stored file. Used to discard duplicate uploads.
	Remove(ctx context.Context, path string) error
}
