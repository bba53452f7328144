package ai

import (
	"context"
	"math"
	"testing"
)

func TestNewLocalEmbedding_DefaultDimensions(t *testing.T) {
	e := NewLocalEmbedding(0)
	if e.Dimensions() != DefaultLocalDimensions {
		t.Errorf("expected %d dimensions, got %d", DefaultLocalDimensions, e.Dimensions())
	}
}

func TestLocalEmbedding_Deterministic(t *testing.T) {
	e := NewLocalEmbedding(64)
	ctx := context.Background()

	a, err := e.EmbedQuery(ctx, "pump maintenance schedule")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.EmbedQuery(ctx, "pump maintenance schedule")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embeddings differ at index %d: %f vs %f", i, a[i], b[i])
		}
	}
}

func TestLocalEmbedding_Normalized(t *testing.T) {
	e := NewLocalEmbedding(64)

	vec, err := e.EmbedQuery(context.Background(), "relief valve inspection procedure")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestLocalEmbedding_SimilarTextsCloser(t *testing.T) {
	e := NewLocalEmbedding(128)
	ctx := context.Background()

	base, _ := e.EmbedQuery(ctx, "pump maintenance inspection")
	similar, _ := e.EmbedQuery(ctx, "pump maintenance checklist")
	unrelated, _ := e.EmbedQuery(ctx, "quarterly financial budget report")

	simScore := dot(base, similar)
	unrelScore := dot(base, unrelated)
	if simScore <= unrelScore {
		t.Errorf("expected similar text to score higher: similar=%f unrelated=%f", simScore, unrelScore)
	}
}

func TestLocalEmbedding_Batch(t *testing.T) {
	e := NewLocalEmbedding(32)

	embeddings, err := e.Embed(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(embeddings))
	}
	for i, vec := range embeddings {
		if len(vec) != 32 {
			t.Errorf("embedding %d has %d dimensions, expected 32", i, len(vec))
		}
	}
}

func TestLocalEmbedding_EmptyInput(t *testing.T) {
	e := NewLocalEmbedding(32)

	embeddings, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if embeddings != nil {
		t.Errorf("expected nil for empty input, got %d embeddings", len(embeddings))
	}
}

func TestLocalEmbedding_HealthCheck(t *testing.T) {
	e := NewLocalEmbedding(32)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected health check error: %v", err)
	}
	if e.Model() != "local-hash" {
		t.Errorf("unexpected model name %s", e.Model())
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
