package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven/mocks"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

type searchFixture struct {
	svc       driving.SearchService
	documents *mocks.MockDocumentStore
	chunks    *mocks.MockChunkStore
	vectors   *mocks.MockVectorIndex
	embedding *mocks.MockEmbeddingService
}

func newSearchFixture(t *testing.T, hits []domain.SemanticHit, contents []string) *searchFixture {
	t.Helper()

	documents := mocks.NewMockDocumentStore()
	chunks := mocks.NewMockChunkStore()
	vectors := mocks.NewMockVectorIndex(hits)
	embedding := mocks.NewMockEmbeddingService()

	doc := domain.NewDocument("manual.pdf", "pdf", 1024, "hash", "/archive/manual.pdf")
	if err := documents.Save(context.Background(), doc); err != nil {
		t.Fatal(err)
	}

	rows := make([]*domain.DocumentChunk, len(contents))
	for i, content := range contents {
		rows[i] = &domain.DocumentChunk{
			ChunkIndex: i,
			Content:    content,
			WordCount:  wordCount(content),
			ChunkType:  domain.ChunkTypeText,
		}
	}
	if err := chunks.ReplaceForDocument(context.Background(), doc.ID, rows); err != nil {
		t.Fatal(err)
	}

	svc := NewSearchService(SearchServiceConfig{
		ChunkStore:    chunks,
		VectorIndex:   vectors,
		DocumentStore: documents,
		Embedding:     embedding,
	})
	return &searchFixture{svc: svc, documents: documents, chunks: chunks, vectors: vectors, embedding: embedding}
}

func wordCount(s string) int {
	n, inWord := 0, false
	for _, r := range s {
		if r == ' ' || r == '\n' || r == '\t' {
			inWord = false
			continue
		}
		if !inWord {
			n++
			inWord = true
		}
	}
	return n
}

func approx(t *testing.T, got, want float64, what string) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newSearchFixture(t, nil, nil)
	_, err := f.svc.Search(context.Background(), "  ", domain.DefaultSearchOptions())
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Search() error = %v, want ErrInvalidInput", err)
	}
}

func TestSearch_HybridFusion(t *testing.T) {
	// Chunk 1 matches only semantically at 0.9, chunk 2 only by keyword.
	// With weights 0.7/0.3 and threshold 0.5 the semantic hit fuses to
	// 0.63 and stays in, the keyword-only hit fuses to 0.3 and drops out.
	f := newSearchFixture(t,
		[]domain.SemanticHit{{ChunkID: 1, Score: 0.9}},
		[]string{
			"thermal expansion coefficients for carbon steel piping",
			"the relief valve must be tested annually",
		},
	)

	opts := domain.DefaultSearchOptions()
	opts.Threshold = 0.5
	result, err := f.svc.Search(context.Background(), "valve", opts)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if result.TotalCount != 1 || len(result.Results) != 1 {
		t.Fatalf("got %d results (total %d), want 1", len(result.Results), result.TotalCount)
	}
	top := result.Results[0]
	if top.Chunk.ID != 1 {
		t.Fatalf("top chunk = %d, want 1", top.Chunk.ID)
	}
	approx(t, top.Score, 0.63, "Score")
	approx(t, top.SemanticScore, 0.9, "SemanticScore")
	approx(t, top.KeywordScore, 0, "KeywordScore")
	if top.Document == nil || top.Document.Filename != "manual.pdf" {
		t.Error("result is missing its document")
	}
}

func TestSearch_HybridLexicalOverlap(t *testing.T) {
	// A chunk hit by both passes gets a lexical frequency keyword score
	// rather than the flat 1.0 of keyword-only hits.
	f := newSearchFixture(t,
		[]domain.SemanticHit{{ChunkID: 1, Score: 0.8}},
		[]string{"pump maintenance pump check"},
	)

	result, err := f.svc.Search(context.Background(), "pump", domain.DefaultSearchOptions())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1", len(result.Results))
	}
	top := result.Results[0]
	// 2 occurrences over 4 words
	approx(t, top.KeywordScore, 0.5, "KeywordScore")
	approx(t, top.Score, 0.8*0.7+0.5*0.3, "Score")
}

func TestSearch_TieBreakByChunkID(t *testing.T) {
	f := newSearchFixture(t, nil, []string{
		"valve seat grinding procedure",
		"valve stem clearance table",
		"valve spring compression limits",
	})

	result, err := f.svc.Search(context.Background(), "valve", domain.DefaultSearchOptions())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Results) != 3 {
		t.Fatalf("got %d results, want 3", len(result.Results))
	}
	for i, rc := range result.Results {
		if rc.Chunk.ID != int64(i+1) {
			t.Errorf("result %d chunk = %d, want ascending chunk IDs on equal scores", i, rc.Chunk.ID)
		}
	}
}

func TestSearch_Pagination(t *testing.T) {
	f := newSearchFixture(t, nil, []string{
		"valve one", "valve two", "valve three",
	})

	opts := domain.DefaultSearchOptions()
	opts.Limit = 2
	result, err := f.svc.Search(context.Background(), "valve", opts)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.TotalCount != 3 || len(result.Results) != 2 {
		t.Errorf("page 1: got %d of %d, want 2 of 3", len(result.Results), result.TotalCount)
	}

	opts.Offset = 2
	result, err = f.svc.Search(context.Background(), "valve", opts)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.TotalCount != 3 || len(result.Results) != 1 {
		t.Errorf("page 2: got %d of %d, want 1 of 3", len(result.Results), result.TotalCount)
	}

	opts.Offset = 10
	result, err = f.svc.Search(context.Background(), "valve", opts)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Results) != 0 {
		t.Errorf("offset past end: got %d results, want 0", len(result.Results))
	}
}

func TestSearch_SemanticModeFailsWithoutEmbeddings(t *testing.T) {
	f := newSearchFixture(t, nil, []string{"valve text"})
	f.embedding.EmbedErr = errors.New("model offline")

	opts := domain.DefaultSearchOptions()
	opts.Mode = domain.SearchModeSemantic
	if _, err := f.svc.Search(context.Background(), "valve", opts); err == nil {
		t.Error("semantic search should fail when embedding fails")
	}
}

func TestSearch_HybridDegradesToKeyword(t *testing.T) {
	f := newSearchFixture(t, nil, []string{"the relief valve must be tested"})
	f.embedding.EmbedErr = errors.New("model offline")

	result, err := f.svc.Search(context.Background(), "valve", domain.DefaultSearchOptions())
	if err != nil {
		t.Fatalf("hybrid search should degrade, got error %v", err)
	}
	if len(result.Results) != 1 {
		t.Fatalf("got %d results, want 1 from the keyword pass", len(result.Results))
	}
	if result.Results[0].SemanticScore != 0 {
		t.Error("degraded search must not carry semantic scores")
	}
}

func TestSearch_KeywordModeRanksByFrequency(t *testing.T) {
	f := newSearchFixture(t, nil, []string{
		"valve",
		"valve and another valve word",
	})

	opts := domain.DefaultSearchOptions()
	opts.Mode = domain.SearchModeKeyword
	result, err := f.svc.Search(context.Background(), "valve", opts)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(result.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(result.Results))
	}
	// chunk 1 is a single-word exact hit (1/1), chunk 2 is 2/5
	if result.Results[0].Chunk.ID != 1 {
		t.Errorf("top result = chunk %d, want the denser match first", result.Results[0].Chunk.ID)
	}
	approx(t, result.Results[1].KeywordScore, 0.4, "KeywordScore")
}

func TestSearch_NoMatches(t *testing.T) {
	f := newSearchFixture(t, nil, []string{"unrelated content"})

	result, err := f.svc.Search(context.Background(), "turbine", domain.DefaultSearchOptions())
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if result.TotalCount != 0 || len(result.Results) != 0 {
		t.Errorf("got %d results, want none", len(result.Results))
	}
}
