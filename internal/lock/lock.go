// Package lock serializes sync runs against the same watermark file across
// processes, so a watch loop and a manual run cannot interleave.
package lock

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	synerr "github.com/Aman-CERP/hexosearch/internal/errors"
)

// Suffix is appended to the guarded file's path to name the lock file.
const Suffix = ".lock"

// RunLock is a cross-process exclusive lock tied to a guarded file.
type RunLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// ForFile returns the lock guarding path. The lock file is <path>.lock.
func ForFile(path string) *RunLock {
	lockPath := path + Suffix
	return &RunLock{
		path:  lockPath,
		flock: flock.New(lockPath),
	}
}

// Acquire takes the lock without blocking. If another process holds it the
// returned error carries ErrCodeLocked.
func (l *RunLock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return synerr.New(synerr.ErrCodeLocked, "another sync run is in progress", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the other run to finish, or remove " + l.path + " if no run is active")
	}

	l.locked = true
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *RunLock) Release() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *RunLock) Path() string {
	return l.path
}

func (l *RunLock) held() bool {
	return l.locked
}
