package driven

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// DocumentFilter specifies criteria for listing documents
type DocumentFilter struct {
	// Category filters by classification (optional, empty means all)
	Category domain.Category

	// FileType filters by file type (optional, empty means all)
	FileType string

	// Active filters by the is_active flag (nil means all)
	Active *bool

	// Archived filters by the is_archived flag (nil means all)
	Archived *bool

	// Search matches a substring of the filename (optional)
	Search string

	// Limit is the maximum number of documents to return
	Limit int

	// Offset is the number of documents to skip (for pagination)
	Offset int
}

// DocumentStore handles document persistence (PostgreSQL)
type DocumentStore interface {
	// Save inserts a new document and fills in its generated ID.
	// A content hash collision returns a DuplicateError.
	Save(ctx context.Context, doc *domain.Document) error

	// Update persists changes to an existing document
	Update(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID
	Get(ctx context.Context, id int64) (*domain.Document, error)

	// GetByHash retrieves a document by content hash.
	// Returns domain.ErrNotFound when no document carries the hash.
	GetByHash(ctx context.Context, hash string) (*domain.Document, error)

	// List retrieves documents matching the filter, plus the total count
	// before pagination
	List(ctx context.Context, filter DocumentFilter) ([]*domain.Document, int, error)

	// Delete removes a document. Chunks, vectors and jobs cascade.
	Delete(ctx context.Context, id int64) error

	// Stats aggregates corpus-level document counts
	Stats(ctx context.Context) (*domain.DocumentStats, error)
}

// JobFilter specifies criteria for listing processing jobs
type JobFilter struct {
	// Status filters by job status (optional, empty means all)
	Status domain.JobStatus

	// DocumentID filters by document (optional, zero means all)
	DocumentID int64

	// Limit is the maximum number of jobs to return
	Limit int

	// Offset is the number of jobs to skip (for pagination)
	Offset int
}

// JobStore handles processing job persistence (PostgreSQL)
type JobStore interface {
	// Create inserts a new job record
	Create(ctx context.Context, job *domain.ProcessingJob) error

	// Get retrieves a job by ID
	Get(ctx context.Context, id string) (*domain.ProcessingJob, error)

	// Update persists the job's current state
	Update(ctx context.Context, job *domain.ProcessingJob) error

	// List retrieves jobs matching the filter, plus the total count
	// before pagination
	List(ctx context.Context, filter JobFilter) ([]*domain.ProcessingJob, int, error)

	// Delete removes a terminal job record
	Delete(ctx context.Context, id string) error

	// GetActiveForDocument returns the document's non-terminal job, or
	// domain.ErrNotFound if every job for it is terminal
	GetActiveForDocument(ctx context.Context, documentID int64) (*domain.ProcessingJob, error)

	// Stats aggregates job counts by status
	Stats(ctx context.Context) (*domain.JobStats, error)
}

// ChunkStore handles chunk and embedding persistence (PostgreSQL)
type ChunkStore interface {
	// ReplaceForDocument atomically swaps a document's chunks: existing
	// chunk and vector rows are deleted and the new set inserted in one
	// transaction, so a crash can never leave chunks without vectors.
	// chunks[i].Embedding supplies the vector for chunk i; a nil
	// embedding stores the chunk without a vector row.
	ReplaceForDocument(ctx context.Context, documentID int64, chunks []*domain.DocumentChunk) error

	// Get retrieves a chunk by ID
	Get(ctx context.Context, id int64) (*domain.DocumentChunk, error)

	// GetByIDs retrieves multiple chunks by ID, preserving no particular order
	GetByIDs(ctx context.Context, ids []int64) ([]*domain.DocumentChunk, error)

	// GetByDocument retrieves a document's chunks ordered by chunk_index
	GetByDocument(ctx context.Context, documentID int64) ([]*domain.DocumentChunk, error)

	// KeywordSearch returns chunks whose content contains the query,
	// case-insensitively, honoring the search filters
	KeywordSearch(ctx context.Context, query string, filters domain.Filters, limit int) ([]domain.KeywordHit, error)

	// DeleteByDocument deletes all chunks (and vectors) for a document
	DeleteByDocument(ctx context.Context, documentID int64) error

	// Count returns the total chunk count
	Count(ctx context.Context) (int64, error)
}
