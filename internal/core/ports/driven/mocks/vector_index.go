package mocks

import (
	"context"
	"sync"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// MockVectorIndex is a mock implementation of VectorIndex for testing
type MockVectorIndex struct {
	mu      sync.Mutex
	deleted []int64

	// Hits is returned from Search, filtered by threshold and limit
	Hits []domain.SemanticHit
	// SearchErr forces Search to fail when set
	SearchErr error
}

// NewMockVectorIndex creates an index returning the given hits
func NewMockVectorIndex(hits []domain.SemanticHit) *MockVectorIndex {
	return &MockVectorIndex{Hits: hits}
}

func (m *MockVectorIndex) Search(ctx context.Context, embedding []float32, limit int, filters domain.Filters, threshold float64) ([]domain.SemanticHit, error) {
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	var out []domain.SemanticHit
	for _, hit := range m.Hits {
		if hit.Score < threshold {
			continue
		}
		out = append(out, hit)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockVectorIndex) DeleteByDocument(ctx context.Context, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, documentID)
	return nil
}

func (m *MockVectorIndex) Count(ctx context.Context) (int64, error) {
	return int64(len(m.Hits)), nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	return nil
}

// Helper methods for testing

func (m *MockVectorIndex) DeletedDocuments() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.deleted...)
}
