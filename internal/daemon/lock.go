package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the single-instance lock kept in the working directory.
const LockFileName = "cinesync.lock"

// ErrAlreadyRunning is returned when another watcher holds the lock.
var ErrAlreadyRunning = errors.New("another cinesync watcher is already running for this working directory")

// Lock guards a working directory against a second watcher
type Lock struct {
	path string
	lock *flock.Flock
}

func NewLock(workDir string) *Lock {
	path := filepath.Join(workDir, LockFileName)
	return &Lock{
		path: path,
		lock: flock.New(path),
	}
}

// Acquire takes the lock without blocking.
func (l *Lock) Acquire() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	return nil
}

func (l *Lock) Release() error {
	return l.lock.Unlock()
}

func (l *Lock) Path() string {
	return l.path
}
