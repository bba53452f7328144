package driven

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// VectorIndex handles vector similarity search over chunk embeddings.
// Vector rows are written through ChunkStore.ReplaceForDocument so they
// commit in the same transaction as the chunk rows; this interface only
// queries and prunes them.
type VectorIndex interface {
	// Search finds the chunks most similar to the query embedding.
	// Results below threshold are excluded; filters narrow the candidate
	// set by document attributes.
	Search(ctx context.Context, embedding []float32, limit int, filters domain.Filters, threshold float64) ([]domain.SemanticHit, error)

	// DeleteByDocument removes all vectors for a document
	DeleteByDocument(ctx context.Context, documentID int64) error

	// Count returns the number of indexed vectors
	Count(ctx context.Context) (int64, error)

	// HealthCheck verifies the index is reachable
	HealthCheck(ctx context.Context) error
}
