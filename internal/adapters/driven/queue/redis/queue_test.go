package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

func setupTestQueue(t *testing.T) (*Queue, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	q, err := NewQueue(client, "test-worker")
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}

	return q, func() {
		client.Close()
		mr.Close()
	}
}

func TestNewQueue_NilClient(t *testing.T) {
	_, err := NewQueue(nil, "worker")
	if err == nil {
		t.Error("expected error for nil client")
	}
}

func TestQueue_EnqueueDequeueAck(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessDocumentTask(42)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected dequeue error: %v", err)
	}
	if got == nil {
		t.Fatal("expected a task")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
	if got.Type != domain.TaskTypeProcessDocument {
		t.Errorf("unexpected task type %s", got.Type)
	}
	if got.DocumentID() != 42 {
		t.Errorf("expected document 42, got %d", got.DocumentID())
	}
	if got.Status != domain.TaskStatusProcessing {
		t.Errorf("expected processing status, got %s", got.Status)
	}
	if got.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", got.Attempts)
	}

	if err := q.Ack(ctx, task.ID); err != nil {
		t.Fatalf("unexpected ack error: %v", err)
	}

	stored, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if stored.Status != domain.TaskStatusCompleted {
		t.Errorf("expected completed status after ack, got %s", stored.Status)
	}
}

func TestQueue_Nack_Reschedules(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessDocumentTask(7)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("dequeue failed: task=%v err=%v", got, err)
	}

	if err := q.Nack(ctx, task.ID, "embedding backend down"); err != nil {
		t.Fatalf("unexpected nack error: %v", err)
	}

	stored, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if stored.Status != domain.TaskStatusPending {
		t.Errorf("expected pending status after nack, got %s", stored.Status)
	}
	if stored.Error != "embedding backend down" {
		t.Errorf("expected error to be recorded, got %q", stored.Error)
	}
	if !stored.ScheduledFor.After(time.Now()) {
		t.Error("expected retry to be scheduled in the future")
	}
}

func TestQueue_Nack_MaxAttemptsFails(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessDocumentTask(7)
	task.MaxAttempts = 1
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil || got == nil {
		t.Fatalf("dequeue failed: task=%v err=%v", got, err)
	}

	if err := q.Nack(ctx, task.ID, "still failing"); err != nil {
		t.Fatalf("unexpected nack error: %v", err)
	}

	stored, err := q.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("unexpected get error: %v", err)
	}
	if stored.Status != domain.TaskStatusFailed {
		t.Errorf("expected failed status after exhausting retries, got %s", stored.Status)
	}
}

func TestQueue_ScheduledTaskHeldBack(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	task := domain.NewProcessDocumentTask(9)
	task.ScheduledFor = time.Now().Add(time.Hour)
	if err := q.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected dequeue error: %v", err)
	}
	if got != nil {
		t.Errorf("expected no task before scheduled time, got %s", got.ID)
	}
}

func TestQueue_ScheduledTaskPromoted(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	task := domain.NewProcessDocumentTask(9)
	task.ScheduledFor = time.Now().Add(50 * time.Millisecond)
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("unexpected enqueue error: %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	got, err := q.DequeueWithTimeout(ctx, 1)
	if err != nil {
		t.Fatalf("unexpected dequeue error: %v", err)
	}
	if got == nil {
		t.Fatal("expected task after scheduled time")
	}
	if got.ID != task.ID {
		t.Errorf("expected task %s, got %s", task.ID, got.ID)
	}
}

func TestQueue_GetTask_NotFound(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	task, err := q.GetTask(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Errorf("expected nil task, got %v", task)
	}
}

func TestQueue_Stats(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := q.Enqueue(ctx, domain.NewProcessDocumentTask(int64(i+1))); err != nil {
			t.Fatalf("unexpected enqueue error: %v", err)
		}
	}

	stats, err := q.Stats(ctx)
	if err != nil {
		t.Fatalf("unexpected stats error: %v", err)
	}
	if stats.PendingCount != 2 {
		t.Errorf("expected 2 pending tasks, got %d", stats.PendingCount)
	}
}

func TestQueue_Ping(t *testing.T) {
	q, cleanup := setupTestQueue(t)
	defer cleanup()

	if err := q.Ping(context.Background()); err != nil {
		t.Errorf("unexpected ping error: %v", err)
	}
}
