package shared

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// SessionLock is an advisory file lock held by the process owning the DJ dashboard.
type SessionLock struct {
	lock *flock.Flock
}

// AcquireSessionLock takes the dashboard lock at path without blocking.
//
// Returns [ErrSessionLocked] when another process holds it.
func AcquireSessionLock(path string) (*SessionLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire session lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: lock held at %s", ErrSessionLocked, path)
	}

	return &SessionLock{lock: lock}, nil
}

// Path returns the lock file path.
func (l *SessionLock) Path() string {
	return l.lock.Path()
}

// Release unlocks the session. Safe to call on a nil lock.
func (l *SessionLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
