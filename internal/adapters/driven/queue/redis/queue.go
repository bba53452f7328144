// Package redis implements the task queue on Redis Streams. A consumer
// group gives at-least-once delivery with per-worker pending lists;
// delayed tasks (retry backoff) sit in a sorted set until due.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

const (
	stream     = "docflow:tasks"
	group      = "docflow:workers"
	delayedSet = "docflow:scheduled"
	keyPrefix  = "docflow:task:"

	// Task records expire on their own if cleanup never runs.
	recordTTL = 24 * time.Hour

	// A delivered but unacked message older than this is considered
	// abandoned and may be claimed by another worker.
	abandonAfter = 5 * time.Minute
)

var _ driven.TaskQueue = (*Queue)(nil)

// Queue is a Redis Streams task queue. The full task record lives in a
// plain key; the stream message carries only the task id, so Ack and
// Nack can update the record without touching the stream payload.
type Queue struct {
	client   *redis.Client
	consumer string
}

// NewQueue creates the queue and its consumer group. consumer must be
// unique per worker instance; empty falls back to a timestamped name.
func NewQueue(client *redis.Client, consumer string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumer == "" {
		consumer = fmt.Sprintf("worker-%d", time.Now().UnixNano())
	}

	q := &Queue{client: client, consumer: consumer}

	err := client.XGroupCreateMkStream(context.Background(), stream, group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

func taskKey(id string) string { return keyPrefix + id }
func msgKey(id string) string  { return keyPrefix + id + ":msg" }

// Enqueue stores the task record and publishes it. Tasks scheduled in
// the future go to the delayed set instead of the stream; Dequeue
// promotes them once due.
func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, taskKey(task.ID), data, recordTTL)
	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, delayedSet, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		q.publish(ctx, pipe, task)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

func (q *Queue) publish(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) {
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"task_id":  task.ID,
			"type":     string(task.Type),
			"priority": task.Priority,
		},
	})
}

// Dequeue blocks until a task is available or the context is cancelled.
func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.DequeueWithTimeout(ctx, 0)
}

// DequeueWithTimeout waits up to timeout seconds for a task. A zero
// timeout blocks indefinitely. Returns (nil, nil) when nothing arrived.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// Promotion is best effort; a failure here only delays retries.
	_ = q.promoteDue(ctx)

	if task, err := q.claimAbandoned(ctx); err == nil && task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: q.consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("read from stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}

	return q.adopt(ctx, streams[0].Messages[0])
}

// adopt resolves a stream message to its task record, marks the task
// processing and remembers the message id for later ack/nack. Messages
// without a resolvable record are dropped.
func (q *Queue) adopt(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	id, ok := msg.Values["task_id"].(string)
	if !ok {
		q.discard(ctx, msg.ID)
		return nil, nil
	}

	task, err := q.GetTask(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load task record: %w", err)
	}
	if task == nil {
		q.discard(ctx, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	q.saveTask(ctx, task)
	q.client.Set(ctx, msgKey(task.ID), msg.ID, recordTTL)
	return task, nil
}

func (q *Queue) saveTask(ctx context.Context, task *domain.Task) {
	data, _ := json.Marshal(task)
	q.client.Set(ctx, taskKey(task.ID), data, recordTTL)
}

func (q *Queue) discard(ctx context.Context, msgID string) {
	q.client.XAck(ctx, stream, group, msgID)
	q.client.XDel(ctx, stream, msgID)
}

// Ack marks a task completed and removes its stream message.
func (q *Queue) Ack(ctx context.Context, taskID string) error {
	msgID, err := q.client.Get(ctx, msgKey(taskID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("get message id: %w", err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, stream, group, msgID)
		pipe.XDel(ctx, stream, msgID)
	}
	if task, err := q.GetTask(ctx, taskID); err == nil && task != nil {
		task.MarkCompleted()
		data, _ := json.Marshal(task)
		pipe.Set(ctx, taskKey(taskID), data, recordTTL)
	}
	pipe.Del(ctx, msgKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack task: %w", err)
	}
	return nil
}

// Nack records a failed attempt. Tasks with retry attempts left are
// rescheduled with the task's backoff; exhausted tasks are marked
// failed and stay only as a record.
func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("load task record: %w", err)
	}
	if task == nil {
		return errors.New("task not found")
	}

	msgID, _ := q.client.Get(ctx, msgKey(taskID)).Result()

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, stream, group, msgID)
		pipe.XDel(ctx, stream, msgID)
	}

	if task.CanRetry() {
		task.Retry(reason)
		data, _ := json.Marshal(task)
		pipe.Set(ctx, taskKey(taskID), data, recordTTL)
		pipe.ZAdd(ctx, delayedSet, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		task.MarkFailed(reason)
		data, _ := json.Marshal(task)
		pipe.Set(ctx, taskKey(taskID), data, recordTTL)
	}
	pipe.Del(ctx, msgKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("nack task: %w", err)
	}
	return nil
}

// GetTask returns the stored task record, or nil when unknown.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKey(taskID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}

	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("unmarshal task: %w", err)
	}
	return &task, nil
}

// PurgeTasks deletes terminal task records older than the given age.
func (q *Queue) PurgeTasks(ctx context.Context, olderThanSeconds int) (int, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	purged := 0

	err := q.scanTasks(ctx, func(key string, task *domain.Task) {
		terminal := task.Status == domain.TaskStatusCompleted || task.Status == domain.TaskStatusFailed
		if terminal && task.UpdatedAt.Before(cutoff) {
			q.client.Del(ctx, key)
			purged++
		}
	})
	return purged, err
}

// Stats reports queue depth. The completed/failed counts walk all task
// records and are proportional to the retained record count.
func (q *Queue) Stats(ctx context.Context) (*driven.QueueStats, error) {
	stats := &driven.QueueStats{}

	info, err := q.client.XInfoStream(ctx, stream).Result()
	switch {
	case err == nil:
		stats.PendingCount = int64(info.Length)
	case errors.Is(err, redis.Nil) || isMissingStream(err):
		// stream not created yet
	default:
		return nil, fmt.Errorf("stream info: %w", err)
	}

	delayed, err := q.client.ZCard(ctx, delayedSet).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("delayed count: %w", err)
	}
	stats.PendingCount += delayed

	if groups, err := q.client.XInfoGroups(ctx, stream).Result(); err == nil {
		for _, g := range groups {
			if g.Name == group {
				stats.ProcessingCount = int64(g.Pending)
				break
			}
		}
	}

	_ = q.scanTasks(ctx, func(_ string, task *domain.Task) {
		switch task.Status {
		case domain.TaskStatusCompleted:
			stats.CompletedCount++
		case domain.TaskStatusFailed:
			stats.FailedCount++
		}
	})

	return stats, nil
}

// scanTasks walks every stored task record.
func (q *Queue) scanTasks(ctx context.Context, fn func(key string, task *domain.Task)) error {
	var cursor uint64
	for {
		keys, next, err := q.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan tasks: %w", err)
		}
		for _, key := range keys {
			if strings.HasSuffix(key, ":msg") {
				continue
			}
			data, err := q.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			var task domain.Task
			if json.Unmarshal([]byte(data), &task) == nil {
				fn(key, &task)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Ping checks if the queue backend is healthy.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the redis client is owned by the caller.
func (q *Queue) Close() error {
	return nil
}

// promoteDue moves delayed tasks whose time has come onto the stream.
func (q *Queue) promoteDue(ctx context.Context) error {
	due, err := q.client.ZRangeByScore(ctx, delayedSet, &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil || len(due) == 0 {
		return err
	}

	pipe := q.client.Pipeline()
	for _, id := range due {
		task, err := q.GetTask(ctx, id)
		if err == nil && task != nil {
			q.publish(ctx, pipe, task)
		}
		pipe.ZRem(ctx, delayedSet, id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// claimAbandoned takes over a message another worker delivered but
// never acked within the abandon window.
func (q *Queue) claimAbandoned(ctx context.Context) (*domain.Task, error) {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   abandonAfter,
	}).Result()
	if err != nil {
		return nil, err
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   stream,
			Group:    group,
			Consumer: q.consumer,
			MinIdle:  abandonAfter,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		if task, err := q.adopt(ctx, claimed[0]); err == nil && task != nil {
			return task, nil
		}
	}
	return nil, nil
}

func isMissingStream(err error) bool {
	return err != nil && (err.Error() == "ERR no such key" ||
		err.Error() == "ERR The XINFO subcommand requires the key to exist")
}
