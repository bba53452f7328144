package driven

import (
	"context"
	"time"
)

// DistributedLock serializes admission work across instances. The
// pipeline driver holds a short-lived per-document lock around its
// job-existence check and enqueue so two upload paths cannot race a
// second job into the queue.
type DistributedLock interface {
	// Acquire attempts to take a named lock with the given TTL.
	// Returns false when another holder already has it. The lock
	// expires on its own after TTL where the backend supports it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release gives up a named lock. Best-effort: safe to call when
	// the lock is not held or has already expired.
	Release(ctx context.Context, name string) error

	// Extend renews the TTL of a lock held by this instance. Backends
	// without TTL support (advisory locks) may return an error.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
