package redis

import (
	"context"

	"github.com/amyangfei/redlock-go/v3/redlock"
)

// LockFactory creates distributed locks for evaluation tasks
type LockFactory interface {
	CreateTaskLock(taskID string) TaskLock
}

// RedisLockFactory creates Redis-based distributed locks
type RedisLockFactory struct {
	lockManager *redlock.RedLock
}

// NewRedisLockFactory creates new Redis lock factory
func NewRedisLockFactory(lockManager *redlock.RedLock) *RedisLockFactory {
	return &RedisLockFactory{
		lockManager: lockManager,
	}
}

// CreateTaskLock creates a distributed lock for a specific task
func (f *RedisLockFactory) CreateTaskLock(taskID string) TaskLock {
	return NewDistributedLock(f.lockManager, taskID)
}

// MockLockFactory for testing (always succeeds)
type MockLockFactory struct{}

// NewMockLockFactory creates mock lock factory for tests
func NewMockLockFactory() *MockLockFactory {
	return &MockLockFactory{}
}

// CreateTaskLock creates a mock lock that always succeeds
func (f *MockLockFactory) CreateTaskLock(taskID string) TaskLock {
	return &MockLock{taskID: taskID}
}

// MockLock is a no-op lock for testing
type MockLock struct {
	taskID string
}

func (l *MockLock) TryAcquire(ctx context.Context) (bool, error) {
	return true, nil // Always succeeds
}

func (l *MockLock) Release(ctx context.Context) error {
	return nil // Always succeeds
}

func (l *MockLock) CheckLockHeld(ctx context.Context) (bool, error) {
	return true, nil // Always held
}

func (l *MockLock) GetTaskID() string {
	return l.taskID
}
