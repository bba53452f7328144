package ai

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// Ensure LocalEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*LocalEmbedding)(nil)

// DefaultLocalDimensions matches the dimension of the small sentence
// transformer models this embedder stands in for.
const DefaultLocalDimensions = 384

// LocalEmbedding is an offline fallback embedder. It hashes token
// unigrams and bigrams into a fixed-size vector and L2-normalizes the
// result, so cosine similarity still reflects lexical overlap. It is
// deterministic and needs no external service, which also makes it the
// embedder of choice in tests.
type LocalEmbedding struct {
	dimensions int
}

// NewLocalEmbedding creates a local hashing embedder.
// A non-positive dimensions falls back to DefaultLocalDimensions.
func NewLocalEmbedding(dimensions int) *LocalEmbedding {
	if dimensions <= 0 {
		dimensions = DefaultLocalDimensions
	}
	return &LocalEmbedding{dimensions: dimensions}
}

// Embed generates embeddings for multiple texts
func (e *LocalEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		embeddings[i] = e.embed(text)
	}
	return embeddings, nil
}

// EmbedQuery generates an embedding for a search query
func (e *LocalEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size
func (e *LocalEmbedding) Dimensions() int {
	return e.dimensions
}

// Model returns the model name being used
func (e *LocalEmbedding) Model() string {
	return "local-hash"
}

// HealthCheck verifies the embedding service is available
func (e *LocalEmbedding) HealthCheck(ctx context.Context) error {
	return nil
}

// Close releases resources held by the embedding service
func (e *LocalEmbedding) Close() error {
	return nil
}

func (e *LocalEmbedding) embed(text string) []float32 {
	vec := make([]float32, e.dimensions)

	tokens := tokenize(text)
	if len(tokens) == 0 {
		return vec
	}

	for i, token := range tokens {
		e.accumulate(vec, token, 1.0)
		if i+1 < len(tokens) {
			// Bigrams carry some word-order signal
			e.accumulate(vec, token+" "+tokens[i+1], 0.5)
		}
	}

	// L2-normalize so dot product equals cosine similarity
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (e *LocalEmbedding) accumulate(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()

	idx := int(sum % uint64(e.dimensions))
	// Use one hash bit as the sign so collisions tend to cancel
	// instead of piling up.
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
