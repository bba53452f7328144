package driving

import (
	"context"
	"io"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// IngestService admits uploaded files into the system.
type IngestService interface {
	// Admit validates the upload, fingerprints its content and persists
	// the Document record. It does not enqueue processing; that is the
	// pipeline driver's job. Rejections surface as domain.ErrInvalidInput
	// or a domain.DuplicateError carrying the existing document's ID.
	Admit(ctx context.Context, r io.Reader, filename string, size int64) (*domain.Document, error)
}
