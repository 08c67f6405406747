package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/compozy/monorelease/internal/domain"
	"github.com/gofrs/flock"
)

const (
	// LockFileName is created inside the .git directory.
	LockFileName = "monorelease.lock"
	// LockTimeout bounds how long a second invocation waits before giving up.
	LockTimeout = 2 * time.Second
	// LockRetryInterval defines the interval between lock retry attempts
	LockRetryInterval = 100 * time.Millisecond
)

// ReleaseLock serializes release invocations across processes.
type ReleaseLock struct {
	lock    *flock.Flock
	timeout time.Duration
}

// NewReleaseLock creates a lock file inside gitDir.
func NewReleaseLock(gitDir string) *ReleaseLock {
	return &ReleaseLock{
		lock:    flock.New(filepath.Join(gitDir, LockFileName)),
		timeout: LockTimeout,
	}
}

// Acquire takes the exclusive lock or fails once the timeout elapses.
func (l *ReleaseLock) Acquire(ctx context.Context) error {
	lockCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	locked, err := acquireLockWithContext(lockCtx, l.lock)
	if errors.Is(err, context.DeadlineExceeded) || (err == nil && !locked) {
		return &domain.ConfigError{
			Field:  "lock",
			Reason: fmt.Sprintf("another release is in progress (%s is held)", l.lock.Path()),
		}
	}
	if err != nil {
		return fmt.Errorf("failed to acquire release lock: %w", err)
	}
	return nil
}

// Release unlocks the lock file.
func (l *ReleaseLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// acquireLockWithContext attempts to acquire an exclusive lock with context support
func acquireLockWithContext(ctx context.Context, lock *flock.Flock) (bool, error) {
	if locked, err := lock.TryLock(); err != nil || locked {
		return locked, err
	}
	ticker := time.NewTicker(LockRetryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
			locked, err := lock.TryLock()
			if err != nil {
				return false, err
			}
			if locked {
				return true, nil
			}
		}
	}
}
