package driving

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// DocumentListRequest filters and paginates document listings
type DocumentListRequest struct {
	Category domain.Category `json:"category,omitempty"`
	FileType string          `json:"file_type,omitempty"`
	Search   string          `json:"search,omitempty"`
	Archived *bool           `json:"archived,omitempty"`
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
}

// DocumentService provides access to ingested documents
type DocumentService interface {
	// Get retrieves a document by ID
	Get(ctx context.Context, id int64) (*domain.Document, error)

	// GetChunks retrieves a document's chunks ordered by index
	GetChunks(ctx context.Context, id int64) ([]*domain.DocumentChunk, error)

	// List retrieves documents matching the request, plus the total
	// count before pagination
	List(ctx context.Context, req DocumentListRequest) ([]*domain.Document, int, error)

	// Delete hard-deletes a document; chunks, vectors and jobs cascade
	Delete(ctx context.Context, id int64) error

	// Stats aggregates corpus-level document counts
	Stats(ctx context.Context) (*domain.DocumentStats, error)
}
