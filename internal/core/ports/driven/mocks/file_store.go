package mocks

import (
	"bytes"
	"context"
	"io"
	"path"
	"sync"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// MockFileStore is an in-memory mock implementation of FileStore
type MockFileStore struct {
	mu    sync.Mutex
	files map[string][]byte

	archived []string
	failed   []string
	removed  []string

	// StoreErr forces Store to fail when set
	StoreErr error
	// OpenErr forces Open to fail when set
	OpenErr error
}

// NewMockFileStore creates a new MockFileStore
func NewMockFileStore() *MockFileStore {
	return &MockFileStore{
		files: make(map[string][]byte),
	}
}

func (m *MockFileStore) Store(ctx context.Context, r io.Reader, filename string) (string, int64, error) {
	if m.StoreErr != nil {
		return "", 0, m.StoreErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	p := "/storage/" + filename
	m.mu.Lock()
	m.files[p] = data
	m.mu.Unlock()
	return p, int64(len(data)), nil
}

func (m *MockFileStore) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if m.OpenErr != nil {
		return nil, m.OpenErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MockFileStore) Archive(ctx context.Context, p string) (string, error) {
	return m.move(p, "/archive/", &m.archived)
}

func (m *MockFileStore) MoveToFailed(ctx context.Context, p string) (string, error) {
	return m.move(p, "/failed/", &m.failed)
}

func (m *MockFileStore) move(p, prefix string, log *[]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return "", domain.ErrNotFound
	}
	newPath := prefix + path.Base(p)
	delete(m.files, p)
	m.files[newPath] = data
	*log = append(*log, newPath)
	return newPath, nil
}

func (m *MockFileStore) Remove(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; !ok {
		return domain.ErrNotFound
	}
	delete(m.files, p)
	m.removed = append(m.removed, p)
	return nil
}

// Helper methods for testing

func (m *MockFileStore) Archived() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.archived...)
}

func (m *MockFileStore) Failed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.failed...)
}

func (m *MockFileStore) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

func (m *MockFileStore) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[p]
	return ok
}
