package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// MockDocumentStore is a mock implementation of DocumentStore for testing
type MockDocumentStore struct {
	mu     sync.RWMutex
	docs   map[int64]*domain.Document
	byHash map[string]int64
	nextID int64

	// SaveErr forces Save to fail when set
	SaveErr error
	// UpdateErr forces Update to fail when set
	UpdateErr error
}

// NewMockDocumentStore creates a new MockDocumentStore
func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{
		docs:   make(map[int64]*domain.Document),
		byHash: make(map[string]int64),
	}
}

func (m *MockDocumentStore) Save(ctx context.Context, doc *domain.Document) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.byHash[doc.ContentHash]; ok {
		return &domain.DuplicateError{ExistingID: existing}
	}
	m.nextID++
	doc.ID = m.nextID
	m.docs[doc.ID] = doc
	m.byHash[doc.ContentHash] = doc.ID
	return nil
}

func (m *MockDocumentStore) Update(ctx context.Context, doc *domain.Document) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *MockDocumentStore) Get(ctx context.Context, id int64) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *MockDocumentStore) GetByHash(ctx context.Context, hash string) (*domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byHash[hash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return m.docs[id], nil
}

func (m *MockDocumentStore) List(ctx context.Context, filter driven.DocumentFilter) ([]*domain.Document, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.Document
	for id := int64(1); id <= m.nextID; id++ {
		doc, ok := m.docs[id]
		if !ok {
			continue
		}
		if filter.Category != "" && doc.Category != filter.Category {
			continue
		}
		if filter.FileType != "" && doc.FileType != filter.FileType {
			continue
		}
		if filter.Active != nil && doc.IsActive != *filter.Active {
			continue
		}
		if filter.Archived != nil && doc.IsArchived != *filter.Archived {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(doc.Filename), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, doc)
	}

	total := len(matched)
	if filter.Offset > len(matched) {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (m *MockDocumentStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(m.byHash, doc.ContentHash)
	delete(m.docs, id)
	return nil
}

func (m *MockDocumentStore) Stats(ctx context.Context) (*domain.DocumentStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.DocumentStats{
		ByCategory: make(map[string]int64),
		ByFileType: make(map[string]int64),
	}
	for _, doc := range m.docs {
		stats.TotalDocuments++
		stats.TotalChunks += int64(doc.ChunkCount)
		stats.TotalWords += int64(doc.WordCount)
		stats.ByCategory[string(doc.Category)]++
		stats.ByFileType[doc.FileType]++
	}
	return stats, nil
}

// Helper methods for testing

func (m *MockDocumentStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[int64]*domain.Document)
	m.byHash = make(map[string]int64)
	m.nextID = 0
}

func (m *MockDocumentStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
