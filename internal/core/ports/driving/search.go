package driving

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// SearchService handles chunk retrieval
type SearchService interface {
	// Search runs a query in the requested mode (hybrid, semantic or
	// keyword) and returns fused, ranked, paginated results
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResult, error)
}
