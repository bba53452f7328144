package driven

import (
	"context"
)

// EmbeddingService turns chunk text into vectors for the vector index.
// The pipeline driver batches calls to Embed; search uses EmbedQuery.
type EmbeddingService interface {
	// Embed generates one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery embeds a search query. Backends may apply
	// query-specific parameters distinct from document embedding.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the vector size this backend produces.
	// Must stay constant for the lifetime of the service.
	Dimensions() int

	// Model returns the backend model identifier.
	Model() string

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}
