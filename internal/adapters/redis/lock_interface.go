package redis

import "context"

// TaskLock defines interface for distributed task locking
// This allows swapping implementations (Redis, PostgreSQL, etcd, etc.)
type TaskLock interface {
	// TryAcquire attempts to acquire exclusive lock for the task
	// Returns true if lock was acquired, false if already locked
	TryAcquire(ctx context.Context) (bool, error)

	// Release releases the lock
	Release(ctx context.Context) error

	// CheckLockHeld verifies if we still hold the lock
	CheckLockHeld(ctx context.Context) (bool, error)

	// GetTaskID returns the task ID this lock is for
	GetTaskID() string
}
