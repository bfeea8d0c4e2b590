// Package filelock serializes runs against a workspace. The delegated
// worker mutates the workspace in place, so two concurrent runs over the
// same directory would interleave edits; a second run is rejected
// outright rather than queued.
package filelock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrWorkspaceBusy indicates another run already holds the workspace lock.
var ErrWorkspaceBusy = errors.New("workspace is locked by another run")

// lockFileName is the lock file kept under <workspace>/.foreman/.
const lockFileName = "run.lock"

// RunLock is an exclusive, process-level lock on a workspace.
type RunLock struct {
	flock *flock.Flock
	path  string
}

// NewRunLock creates the run lock for the given workspace directory.
func NewRunLock(workspace string) (*RunLock, error) {
	dir := filepath.Join(workspace, ".foreman")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(dir, lockFileName)
	return &RunLock{
		flock: flock.New(path),
		path:  path,
	}, nil
}

// Acquire attempts to take the lock without blocking. A workspace held
// by another run returns ErrWorkspaceBusy.
func (rl *RunLock) Acquire() error {
	acquired, err := rl.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", rl.path, err)
	}
	if !acquired {
		return fmt.Errorf("%s: %w", rl.path, ErrWorkspaceBusy)
	}
	return nil
}

// Release releases the lock.
func (rl *RunLock) Release() error {
	if err := rl.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock on %s: %w", rl.path, err)
	}
	return nil
}
