package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

const (
	maxSearchLimit = 100
	// minCandidates is the floor on how many hits each retrieval pass
	// fetches, so fusion and pagination have enough material to work with.
	minCandidates = 50
)

type searchService struct {
	chunks    driven.ChunkStore
	vectors   driven.VectorIndex
	documents driven.DocumentStore
	embedding driven.EmbeddingService
	logger    *slog.Logger
}

// SearchServiceConfig holds dependencies for the search service.
type SearchServiceConfig struct {
	ChunkStore    driven.ChunkStore
	VectorIndex   driven.VectorIndex
	DocumentStore driven.DocumentStore
	Embedding     driven.EmbeddingService
	Logger        *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(cfg SearchServiceConfig) driving.SearchService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &searchService{
		chunks:    cfg.ChunkStore,
		vectors:   cfg.VectorIndex,
		documents: cfg.DocumentStore,
		embedding: cfg.Embedding,
		logger:    logger.With("component", "search_service"),
	}
}

// candidate accumulates per-chunk scores across the retrieval passes.
type candidate struct {
	chunkID  int64
	semantic float64
	keyword  float64
}

// Search runs the query in the requested mode and fuses the results.
//
// Hybrid fusion works on a candidate map keyed by chunk ID: the semantic
// pass seeds candidates with their similarity score, the keyword pass
// then either overwrites the keyword component of an existing candidate
// with a lexical frequency score, or inserts a keyword-only candidate at
// full keyword weight. The final score is the weighted sum, thresholded,
// sorted descending with chunk ID as the tie-break, and paginated last
// so offset/limit always apply to the fused ranking.
func (s *searchService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	opts = normalizeOptions(opts)

	fetchLimit := opts.Offset + opts.Limit
	if fetchLimit < minCandidates {
		fetchLimit = minCandidates
	}

	candidates := make(map[int64]*candidate)
	mode := opts.Mode

	if mode == domain.SearchModeHybrid || mode == domain.SearchModeSemantic {
		hits, err := s.semanticPass(ctx, query, fetchLimit, opts.Filters)
		switch {
		case err != nil && mode == domain.SearchModeSemantic:
			return nil, err
		case err != nil:
			// Hybrid degrades to keyword-only rather than failing the
			// whole request.
			s.logger.Warn("semantic pass failed, degrading to keyword search", "error", err)
			mode = domain.SearchModeKeyword
		default:
			for _, hit := range hits {
				candidates[hit.ChunkID] = &candidate{chunkID: hit.ChunkID, semantic: hit.Score}
			}
		}
	}

	if mode == domain.SearchModeHybrid || mode == domain.SearchModeKeyword {
		hits, err := s.chunks.KeywordSearch(ctx, query, opts.Filters, fetchLimit)
		if err != nil {
			return nil, fmt.Errorf("keyword search: %w", err)
		}
		for _, hit := range hits {
			if c, ok := candidates[hit.ChunkID]; ok {
				c.keyword = -1 // lexical score filled in below, needs content
			} else {
				// In hybrid mode a keyword-only hit enters at full keyword
				// weight; in keyword mode everything ranks by frequency.
				kw := 1.0
				if mode == domain.SearchModeKeyword {
					kw = -1
				}
				candidates[hit.ChunkID] = &candidate{chunkID: hit.ChunkID, keyword: kw}
			}
		}
	}

	if len(candidates) == 0 {
		return &domain.SearchResult{
			Query:   query,
			Mode:    opts.Mode,
			Results: []*domain.RankedChunk{},
			Took:    time.Since(start),
		}, nil
	}

	ids := make([]int64, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	chunks, err := s.chunks.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}
	chunkByID := make(map[int64]*domain.DocumentChunk, len(chunks))
	for _, ch := range chunks {
		chunkByID[ch.ID] = ch
	}

	ws, wk := opts.SemanticWeight, opts.KeywordWeight
	if mode == domain.SearchModeSemantic {
		ws, wk = 1, 0
	}
	if mode == domain.SearchModeKeyword {
		ws, wk = 0, 1
	}

	ranked := make([]*domain.RankedChunk, 0, len(candidates))
	for _, c := range candidates {
		chunk, ok := chunkByID[c.chunkID]
		if !ok {
			// Index hit for a chunk deleted since indexing. Skip it.
			continue
		}
		if c.keyword < 0 {
			c.keyword = lexicalScore(chunk, query)
		}
		score := c.semantic*ws + c.keyword*wk
		if score < opts.Threshold {
			continue
		}
		ranked = append(ranked, &domain.RankedChunk{
			Chunk:         chunk,
			Score:         score,
			SemanticScore: c.semantic,
			KeywordScore:  c.keyword,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Chunk.ID < ranked[j].Chunk.ID
	})

	total := len(ranked)
	ranked = paginate(ranked, opts.Offset, opts.Limit)
	s.attachDocuments(ctx, ranked)

	s.logger.Debug("search completed",
		"query", query,
		"mode", opts.Mode,
		"total", total,
		"returned", len(ranked),
		"took", time.Since(start),
	)

	return &domain.SearchResult{
		Query:      query,
		Mode:       opts.Mode,
		Results:    ranked,
		TotalCount: total,
		Took:       time.Since(start),
	}, nil
}

func (s *searchService) semanticPass(ctx context.Context, query string, limit int, filters domain.Filters) ([]domain.SemanticHit, error) {
	embedding, err := s.embedding.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	// The score threshold is applied after fusion, not here, so weighted
	// scores below the raw similarity threshold still make it in.
	hits, err := s.vectors.Search(ctx, embedding, limit, filters, 0)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

func (s *searchService) attachDocuments(ctx context.Context, ranked []*domain.RankedChunk) {
	docs := make(map[int64]*domain.Document)
	for _, rc := range ranked {
		doc, ok := docs[rc.Chunk.DocumentID]
		if !ok {
			var err error
			doc, err = s.documents.Get(ctx, rc.Chunk.DocumentID)
			if err != nil {
				s.logger.Warn("failed to load document for result", "document_id", rc.Chunk.DocumentID, "error", err)
				continue
			}
			docs[rc.Chunk.DocumentID] = doc
		}
		rc.Document = doc
	}
}

// lexicalScore is query occurrence frequency relative to the chunk's
// word count, capped at 1.
func lexicalScore(chunk *domain.DocumentChunk, query string) float64 {
	words := chunk.WordCount
	if words <= 0 {
		words = len(strings.Fields(chunk.Content))
	}
	if words == 0 {
		return 0
	}
	occurrences := strings.Count(strings.ToLower(chunk.Content), strings.ToLower(query))
	score := float64(occurrences) / float64(words)
	if score > 1 {
		score = 1
	}
	return score
}

func normalizeOptions(opts domain.SearchOptions) domain.SearchOptions {
	defaults := domain.DefaultSearchOptions()
	if opts.Mode == "" {
		opts.Mode = defaults.Mode
	}
	if opts.Limit <= 0 {
		opts.Limit = defaults.Limit
	}
	if opts.Limit > maxSearchLimit {
		opts.Limit = maxSearchLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	if opts.SemanticWeight <= 0 && opts.KeywordWeight <= 0 {
		opts.SemanticWeight = defaults.SemanticWeight
		opts.KeywordWeight = defaults.KeywordWeight
	}
	return opts
}

func paginate(ranked []*domain.RankedChunk, offset, limit int) []*domain.RankedChunk {
	if offset >= len(ranked) {
		return []*domain.RankedChunk{}
	}
	end := offset + limit
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[offset:end]
}
