package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// MockChunkStore is a mock implementation of ChunkStore for testing
type MockChunkStore struct {
	mu         sync.RWMutex
	chunks     map[int64]*domain.DocumentChunk
	byDocument map[int64][]*domain.DocumentChunk
	nextID     int64

	// ReplaceErr forces ReplaceForDocument to fail when set
	ReplaceErr error
}

// NewMockChunkStore creates a new MockChunkStore
func NewMockChunkStore() *MockChunkStore {
	return &MockChunkStore{
		chunks:     make(map[int64]*domain.DocumentChunk),
		byDocument: make(map[int64][]*domain.DocumentChunk),
	}
}

func (m *MockChunkStore) ReplaceForDocument(ctx context.Context, documentID int64, chunks []*domain.DocumentChunk) error {
	if m.ReplaceErr != nil {
		return m.ReplaceErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, old := range m.byDocument[documentID] {
		delete(m.chunks, old.ID)
	}
	delete(m.byDocument, documentID)

	for _, chunk := range chunks {
		m.nextID++
		chunk.ID = m.nextID
		chunk.DocumentID = documentID
		m.chunks[chunk.ID] = chunk
		m.byDocument[documentID] = append(m.byDocument[documentID], chunk)
	}
	return nil
}

func (m *MockChunkStore) Get(ctx context.Context, id int64) (*domain.DocumentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunk, ok := m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return chunk, nil
}

func (m *MockChunkStore) GetByIDs(ctx context.Context, ids []int64) ([]*domain.DocumentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.DocumentChunk
	for _, id := range ids {
		if chunk, ok := m.chunks[id]; ok {
			out = append(out, chunk)
		}
	}
	return out, nil
}

func (m *MockChunkStore) GetByDocument(ctx context.Context, documentID int64) ([]*domain.DocumentChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	chunks := append([]*domain.DocumentChunk(nil), m.byDocument[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].ChunkIndex < chunks[j].ChunkIndex })
	return chunks, nil
}

func (m *MockChunkStore) KeywordSearch(ctx context.Context, query string, filters domain.Filters, limit int) ([]domain.KeywordHit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var hits []domain.KeywordHit
	for id := int64(1); id <= m.nextID; id++ {
		chunk, ok := m.chunks[id]
		if !ok {
			continue
		}
		if len(filters.DocumentIDs) > 0 && !containsID(filters.DocumentIDs, chunk.DocumentID) {
			continue
		}
		if strings.Contains(strings.ToLower(chunk.Content), needle) {
			hits = append(hits, domain.KeywordHit{ChunkID: chunk.ID})
			if limit > 0 && len(hits) >= limit {
				break
			}
		}
	}
	return hits, nil
}

func (m *MockChunkStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, chunk := range m.byDocument[documentID] {
		delete(m.chunks, chunk.ID)
	}
	delete(m.byDocument, documentID)
	return nil
}

func (m *MockChunkStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.chunks)), nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// Helper methods for testing

func (m *MockChunkStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks = make(map[int64]*domain.DocumentChunk)
	m.byDocument = make(map[int64][]*domain.DocumentChunk)
	m.nextID = 0
}

func (m *MockChunkStore) TotalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}
