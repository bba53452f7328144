package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/docflow-labs/docflow-core/internal/core/ports/driven"
)

var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock backs the distributed lock with pg_try_advisory_lock.
// Advisory locks are connection-scoped rather than TTL-based: the ttl
// argument is ignored, Extend is a no-op, and a dropped connection
// releases the lock. Redis is the preferred backend when available;
// this keeps single-store deployments working.
type AdvisoryLock struct {
	db *DB
}

// NewAdvisoryLock creates an advisory lock adapter over the shared pool.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// lockID hashes the lock name to the bigint key advisory locks need.
func lockID(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("docflow:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries the lock without blocking. The ttl is ignored; the
// lock holds until released or the session ends.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID(name)).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Release unlocks. An unlock of a lock this session does not hold
// returns false from PostgreSQL, which is not an error here.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	var released bool
	return l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", lockID(name)).Scan(&released)
}

// Extend is a no-op; advisory locks have no TTL to renew.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
