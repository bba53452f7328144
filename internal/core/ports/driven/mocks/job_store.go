package mocks

import (
	"context"
	"sync"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

// MockJobStore is a mock implementation of JobStore for testing
type MockJobStore struct {
	mu    sync.RWMutex
	jobs  map[string]*domain.ProcessingJob
	order []string

	// UpdateErr forces Update to fail when set
	UpdateErr error
}

// NewMockJobStore creates a new MockJobStore
func NewMockJobStore() *MockJobStore {
	return &MockJobStore{
		jobs: make(map[string]*domain.ProcessingJob),
	}
}

func (m *MockJobStore) Create(ctx context.Context, job *domain.ProcessingJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	m.order = append(m.order, job.ID)
	return nil
}

func (m *MockJobStore) Get(ctx context.Context, id string) (*domain.ProcessingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *MockJobStore) Update(ctx context.Context, job *domain.ProcessingJob) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *MockJobStore) List(ctx context.Context, filter driven.JobFilter) ([]*domain.ProcessingJob, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*domain.ProcessingJob
	// Newest first
	for i := len(m.order) - 1; i >= 0; i-- {
		job, ok := m.jobs[m.order[i]]
		if !ok {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.DocumentID != 0 && job.DocumentID != filter.DocumentID {
			continue
		}
		matched = append(matched, job)
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

func (m *MockJobStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.jobs, id)
	for i, jid := range m.order {
		if jid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MockJobStore) GetActiveForDocument(ctx context.Context, documentID int64) (*domain.ProcessingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, job := range m.jobs {
		if job.DocumentID == documentID && !job.IsTerminal() {
			return job, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockJobStore) Stats(ctx context.Context) (*domain.JobStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := &domain.JobStats{}
	for _, job := range m.jobs {
		stats.Total++
		switch job.Status {
		case domain.JobStatusPending:
			stats.Pending++
		case domain.JobStatusProgress:
			stats.Progress++
		case domain.JobStatusSuccess:
			stats.Success++
		case domain.JobStatusFailure:
			stats.Failure++
		case domain.JobStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// Helper methods for testing

func (m *MockJobStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = make(map[string]*domain.ProcessingJob)
	m.order = nil
}

func (m *MockJobStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}
