package driven

import (
	"context"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// TaskQueue carries pipeline tasks from the API to the workers. Redis
// Streams is the preferred backend; the PostgreSQL tasks table is the
// fallback. Delivery is at-least-once: the pipeline driver tolerates a
// replayed task by checking job state before running.
type TaskQueue interface {
	// Enqueue adds a task. Tasks with ScheduledFor in the future stay
	// invisible to workers until due.
	Enqueue(ctx context.Context, task *domain.Task) error

	// Dequeue claims the next due task, blocking until one is
	// available or the context is cancelled. A claimed task is marked
	// processing and hidden from other workers. Non-blocking
	// implementations return (nil, nil) when empty.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout claims the next due task, waiting up to
	// timeout seconds. Returns (nil, nil) when nothing arrived.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack marks a claimed task completed and drops it from the queue.
	Ack(ctx context.Context, taskID string) error

	// Nack reports a failed attempt. The task is rescheduled with its
	// backoff while retry attempts remain, then marked failed.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask returns a task by id for status inspection.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// PurgeTasks deletes terminal tasks older than the given age in
	// seconds and returns how many were removed.
	PurgeTasks(ctx context.Context, olderThan int) (int, error)

	// Stats reports queue depth.
	Stats(ctx context.Context) (*QueueStats, error)

	// Ping checks if the queue backend is healthy.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// QueueStats is a point-in-time snapshot of queue depth.
type QueueStats struct {
	PendingCount    int64 `json:"pending_count"`
	ProcessingCount int64 `json:"processing_count"`
	CompletedCount  int64 `json:"completed_count"`
	FailedCount     int64 `json:"failed_count"`

	// OldestPendingAge is the age of the oldest pending task in
	// seconds; zero when the queue is empty or the backend cannot
	// compute it cheaply.
	OldestPendingAge int64 `json:"oldest_pending_age"`
}
