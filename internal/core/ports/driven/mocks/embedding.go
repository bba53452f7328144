package mocks

import (
	"context"
	"hash/fnv"
	"sync"
)

// MockEmbeddingService is a mock implementation of EmbeddingService.
// Embeddings are deterministic functions of the input text so tests can
// rely on repeatable vectors.
type MockEmbeddingService struct {
	mu    sync.Mutex
	calls int

	// Dim is the embedding dimension (defaults to 8)
	Dim int
	// EmbedErr forces Embed and EmbedQuery to fail when set
	EmbedErr error
	// HealthErr forces HealthCheck to fail when set
	HealthErr error
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{Dim: 8}
}

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.vector(text)
	}
	return out, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.vector(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.Dim
}

func (m *MockEmbeddingService) Model() string {
	return "mock-embedding"
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return m.HealthErr
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

func (m *MockEmbeddingService) vector(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.Dim)
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(seed%1000)/1000.0 - 0.5
	}
	return vec
}

// Helper methods for testing

func (m *MockEmbeddingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
