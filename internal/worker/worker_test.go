package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driving"
)

// mockTaskQueue implements driven.TaskQueue for testing
type mockTaskQueue struct {
	mu           sync.Mutex
	tasks        []*domain.Task
	dequeueDelay time.Duration
	dequeueFn    func() (*domain.Task, error)
	ackFn        func(string) error
	nackFn       func(string, string) error
	pingFn       func() error
}

func newMockTaskQueue() *mockTaskQueue {
	return &mockTaskQueue{
		tasks: make([]*domain.Task, 0),
	}
}

func (m *mockTaskQueue) Enqueue(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskQueue) Dequeue(ctx context.Context) (*domain.Task, error) {
	if m.dequeueFn != nil {
		return m.dequeueFn()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return nil, nil
	}
	task := m.tasks[0]
	m.tasks = m.tasks[1:]
	return task, nil
}

func (m *mockTaskQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	if m.dequeueDelay > 0 {
		select {
		case <-time.After(m.dequeueDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return m.Dequeue(ctx)
}

func (m *mockTaskQueue) Ack(ctx context.Context, taskID string) error {
	if m.ackFn != nil {
		return m.ackFn(taskID)
	}
	return nil
}

func (m *mockTaskQueue) Nack(ctx context.Context, taskID string, reason string) error {
	if m.nackFn != nil {
		return m.nackFn(taskID, reason)
	}
	return nil
}

func (m *mockTaskQueue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTaskQueue) PurgeTasks(ctx context.Context, olderThan int) (int, error) {
	return 0, nil
}

func (m *mockTaskQueue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	return &driven.QueueStats{
		PendingCount: int64(len(m.tasks)),
	}, nil
}

func (m *mockTaskQueue) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn()
	}
	return nil
}

func (m *mockTaskQueue) Close() error {
	return nil
}

// Test that mock implements the interface
func TestMockTaskQueueInterface(t *testing.T) {
	var _ driven.TaskQueue = (*mockTaskQueue)(nil)
}

// stubDriver implements driving.PipelineDriver for testing
type stubDriver struct {
	runFn func(ctx context.Context, task *domain.Task) (*domain.TaskResult, error)
}

func (s *stubDriver) EnqueueDocument(ctx context.Context, documentID int64, reprocess bool) (*domain.ProcessingJob, error) {
	return nil, errors.New("not implemented")
}

func (s *stubDriver) RequeueJob(ctx context.Context, job *domain.ProcessingJob) error {
	return errors.New("not implemented")
}

func (s *stubDriver) RunTask(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
	if s.runFn != nil {
		return s.runFn(ctx, task)
	}
	return &domain.TaskResult{TaskID: task.ID, Success: true}, nil
}

// Test that the stub implements the interface
func TestStubDriverInterface(t *testing.T) {
	var _ driving.PipelineDriver = (*stubDriver)(nil)
}

func TestNew(t *testing.T) {
	queue := newMockTaskQueue()
	logger := slog.Default()

	w := New(Config{
		TaskQueue:      queue,
		Driver:         &stubDriver{},
		Logger:         logger,
		Concurrency:    2,
		DequeueTimeout: 5,
	})

	if w == nil {
		t.Fatal("expected non-nil worker")
	}
	if w.concurrency != 2 {
		t.Errorf("expected concurrency 2, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected dequeue timeout 5, got %d", w.dequeueTimeout)
	}
}

func TestNew_Defaults(t *testing.T) {
	queue := newMockTaskQueue()

	w := New(Config{
		TaskQueue:      queue,
		Driver:         &stubDriver{},
		Concurrency:    0, // Should default to 1
		DequeueTimeout: 0, // Should default to 5
	})

	if w.concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", w.concurrency)
	}
	if w.dequeueTimeout != 5 {
		t.Errorf("expected default dequeue timeout 5, got %d", w.dequeueTimeout)
	}
	if w.logger == nil {
		t.Error("expected default logger")
	}
}

func TestWorker_StartStop(t *testing.T) {
	queue := newMockTaskQueue()
	// Add delay so workers don't spin too fast
	queue.dequeueDelay = 100 * time.Millisecond

	w := New(Config{
		TaskQueue:      queue,
		Driver:         &stubDriver{},
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Verify worker is running
	health := w.Health(ctx)
	if !health.Running {
		t.Error("expected worker to be running")
	}

	// Start again should be no-op
	err = w.Start(ctx)
	if err != nil {
		t.Errorf("second start should not error: %v", err)
	}

	// Stop the worker
	w.Stop()

	// Verify worker is stopped
	health = w.Health(ctx)
	if health.Running {
		t.Error("expected worker to be stopped")
	}

	// Stop again should be no-op
	w.Stop() // Should not panic
}

func TestWorker_Health(t *testing.T) {
	queue := newMockTaskQueue()

	w := New(Config{
		TaskQueue:   queue,
		Driver:      &stubDriver{},
		Concurrency: 1,
	})

	ctx := context.Background()

	// Not running initially
	health := w.Health(ctx)
	if health.Running {
		t.Error("expected not running")
	}
	if !health.QueueHealth {
		t.Error("expected queue to be healthy")
	}
}

func TestWorker_Health_QueueError(t *testing.T) {
	queue := newMockTaskQueue()
	queue.pingFn = func() error {
		return errors.New("connection failed")
	}

	w := New(Config{
		TaskQueue:   queue,
		Driver:      &stubDriver{},
		Concurrency: 1,
	})

	ctx := context.Background()

	health := w.Health(ctx)
	if health.QueueHealth {
		t.Error("expected queue to be unhealthy")
	}
	if health.Error != "connection failed" {
		t.Errorf("expected error message, got %q", health.Error)
	}
}

func TestWorker_ProcessTask_UnknownType(t *testing.T) {
	queue := newMockTaskQueue()

	var nacked []string
	queue.nackFn = func(taskID, reason string) error {
		nacked = append(nacked, taskID)
		return nil
	}

	task := &domain.Task{
		ID:   "task-123",
		Type: domain.TaskType("unknown_type"),
	}

	w := New(Config{
		TaskQueue:   queue,
		Driver:      &stubDriver{},
		Concurrency: 1,
	})

	ctx := context.Background()
	w.processTask(ctx, task, slog.Default())

	// Should be nacked due to unknown type
	if len(nacked) != 1 {
		t.Errorf("expected 1 nack for unknown type, got %d", len(nacked))
	}
}

func TestWorker_ProcessTask_Success(t *testing.T) {
	queue := newMockTaskQueue()

	var acked []string
	queue.ackFn = func(taskID string) error {
		acked = append(acked, taskID)
		return nil
	}

	w := New(Config{
		TaskQueue: queue,
		Driver: &stubDriver{
			runFn: func(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
				return &domain.TaskResult{TaskID: task.ID, Success: true, ItemsCount: 7}, nil
			},
		},
		Concurrency: 1,
	})

	task := domain.NewProcessDocumentTask(42)
	w.processTask(context.Background(), task, slog.Default())

	if len(acked) != 1 {
		t.Errorf("expected 1 ack, got %d", len(acked))
	}
}

func TestWorker_ProcessTask_StageFailureStillAcks(t *testing.T) {
	// A failed pipeline run is recorded on the job; redelivering the task
	// would re-run a job already marked FAILURE.
	queue := newMockTaskQueue()

	var acked, nacked []string
	queue.ackFn = func(taskID string) error {
		acked = append(acked, taskID)
		return nil
	}
	queue.nackFn = func(taskID, reason string) error {
		nacked = append(nacked, taskID)
		return nil
	}

	w := New(Config{
		TaskQueue: queue,
		Driver: &stubDriver{
			runFn: func(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
				return &domain.TaskResult{TaskID: task.ID, Success: false, Error: "stage parse: corrupt file"}, nil
			},
		},
		Concurrency: 1,
	})

	task := domain.NewProcessDocumentTask(42)
	w.processTask(context.Background(), task, slog.Default())

	if len(acked) != 1 {
		t.Errorf("expected 1 ack, got %d", len(acked))
	}
	if len(nacked) != 0 {
		t.Errorf("expected 0 nacks, got %d", len(nacked))
	}
}

func TestWorker_ProcessTask_InfrastructureErrorNacks(t *testing.T) {
	queue := newMockTaskQueue()

	var nacked []string
	queue.nackFn = func(taskID, reason string) error {
		nacked = append(nacked, taskID)
		return nil
	}

	w := New(Config{
		TaskQueue: queue,
		Driver: &stubDriver{
			runFn: func(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
				return nil, errors.New("database connection failed")
			},
		},
		Concurrency: 1,
	})

	task := domain.NewReprocessDocumentTask(42)
	w.processTask(context.Background(), task, slog.Default())

	if len(nacked) != 1 {
		t.Errorf("expected 1 nack, got %d", len(nacked))
	}
}

func TestWorker_ContextCancellation(t *testing.T) {
	queue := newMockTaskQueue()
	// Slow dequeue so we can cancel
	queue.dequeueDelay = 500 * time.Millisecond

	w := New(Config{
		TaskQueue:      queue,
		Driver:         &stubDriver{},
		Concurrency:    1,
		DequeueTimeout: 10,
	})

	ctx, cancel := context.WithCancel(context.Background())

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Cancel context after short delay
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	// Wait for worker to stop
	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Good, worker stopped
	case <-time.After(2 * time.Second):
		t.Error("worker did not stop after context cancellation")
		w.Stop() // Force stop
	}
}

func TestWorker_ProcessLoop_WithTasks(t *testing.T) {
	queue := newMockTaskQueue()

	task := domain.NewProcessDocumentTask(1)
	_ = queue.Enqueue(context.Background(), task)

	var mu sync.Mutex
	var acked []string
	queue.ackFn = func(taskID string) error {
		mu.Lock()
		defer mu.Unlock()
		acked = append(acked, taskID)
		return nil
	}

	w := New(Config{
		TaskQueue:      queue,
		Driver:         &stubDriver{},
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	ctx, cancel := context.WithCancel(context.Background())

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Wait for task to be processed
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(acked)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(acked) != 1 {
		t.Errorf("expected 1 ack, got %d", len(acked))
	}
}

func TestWorker_ProcessLoop_DequeueError(t *testing.T) {
	queue := newMockTaskQueue()
	var mu sync.Mutex
	callCount := 0
	queue.dequeueFn = func() (*domain.Task, error) {
		mu.Lock()
		defer mu.Unlock()
		callCount++
		if callCount < 3 {
			return nil, errors.New("temporary error")
		}
		return nil, nil // No more errors
	}

	w := New(Config{
		TaskQueue:      queue,
		Driver:         &stubDriver{},
		Concurrency:    1,
		DequeueTimeout: 1,
	})

	// Use a longer timeout since there's a 1s backoff after errors
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := w.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start worker: %v", err)
	}

	// Wait for worker to process and handle errors (need time for backoff)
	time.Sleep(2 * time.Second)
	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	if callCount < 2 {
		t.Errorf("expected at least 2 dequeue attempts, got %d", callCount)
	}
}

func TestWorker_Ack_Error(t *testing.T) {
	queue := newMockTaskQueue()

	ackCalled := false
	queue.ackFn = func(taskID string) error {
		ackCalled = true
		return errors.New("ack failed")
	}

	w := New(Config{
		TaskQueue:   queue,
		Driver:      &stubDriver{},
		Concurrency: 1,
	})

	task := domain.NewProcessDocumentTask(42)
	// This should not panic even if ack fails
	w.processTask(context.Background(), task, slog.Default())

	if !ackCalled {
		t.Error("expected ack to be called")
	}
}

func TestWorker_Nack_Error(t *testing.T) {
	queue := newMockTaskQueue()

	nackCalled := false
	queue.nackFn = func(taskID, reason string) error {
		nackCalled = true
		return errors.New("nack failed")
	}

	w := New(Config{
		TaskQueue: queue,
		Driver: &stubDriver{
			runFn: func(ctx context.Context, task *domain.Task) (*domain.TaskResult, error) {
				return nil, errors.New("run failed")
			},
		},
		Concurrency: 1,
	})

	task := domain.NewProcessDocumentTask(42)
	// This should not panic even if nack fails
	w.processTask(context.Background(), task, slog.Default())

	if !nackCalled {
		t.Error("expected nack to be called")
	}
}
