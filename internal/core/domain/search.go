package domain

import "time"

// SearchMode determines the search strategy
type SearchMode string

const (
	SearchModeHybrid   SearchMode = "hybrid"   // vector + keyword fusion (default)
	SearchModeSemantic SearchMode = "semantic" // vector only
	SearchModeKeyword  SearchMode = "keyword"  // keyword only
)

// SearchOptions configures a search request
type SearchOptions struct {
	Mode           SearchMode `json:"mode"`
	Limit          int        `json:"limit"`
	Offset         int        `json:"offset"`
	Threshold      float64    `json:"threshold"`
	SemanticWeight float64    `json:"semantic_weight"`
	KeywordWeight  float64    `json:"keyword_weight"`
	Filters        Filters    `json:"filters,omitempty"`
}

// Filters provides additional search filters
type Filters struct {
	Categories  []Category `json:"categories,omitempty"`
	FileTypes   []string   `json:"file_types,omitempty"`
	DocumentIDs []int64    `json:"document_ids,omitempty"`
}

// DefaultSearchOptions returns sensible defaults
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Mode:           SearchModeHybrid,
		Limit:          10,
		Offset:         0,
		Threshold:      0.0,
		SemanticWeight: 0.7,
		KeywordWeight:  0.3,
	}
}

// SemanticHit is a vector-index match for a query embedding.
type SemanticHit struct {
	ChunkID int64   `json:"chunk_id"`
	Score   float64 `json:"score"`
}

// KeywordHit is a chunk whose content contains the query string.
type KeywordHit struct {
	ChunkID int64 `json:"chunk_id"`
}

// RankedChunk represents a search result with relevance scores
type RankedChunk struct {
	Chunk         *DocumentChunk `json:"chunk"`
	Document      *Document      `json:"document,omitempty"`
	Score         float64        `json:"score"`
	SemanticScore float64        `json:"semantic_score"`
	KeywordScore  float64        `json:"keyword_score"`
}

// SearchResult represents the result of a search query
type SearchResult struct {
	Query      string         `json:"query"`
	Mode       SearchMode     `json:"mode"`
	Results    []*RankedChunk `json:"results"`
	TotalCount int            `json:"total_count"`
	Took       time.Duration  `json:"took" swaggertype:"integer" example:"1500000"`
}
