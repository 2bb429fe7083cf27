package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockFileName   = "store.lock"
	lockTimeout    = 500 * time.Millisecond
	initialBackoff = 5 * time.Millisecond
	maxBackoff     = 50 * time.Millisecond
)

// writeLocker manages exclusive write access to the database using OS file
// locks. The lock is released automatically when the process exits.
type writeLocker struct {
	lockPath string
	lockFile *os.File
}

func newWriteLocker(baseDir string) *writeLocker {
	return &writeLocker{
		lockPath: filepath.Join(baseDir, dbDir, lockFileName),
	}
}

// acquire attempts to get an exclusive write lock within the timeout,
// retrying with capped backoff.
func (l *writeLocker) acquire(timeout time.Duration) error {
	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	l.lockFile = f

	deadline := time.Now().Add(timeout)
	backoff := initialBackoff

	for {
		if err := l.tryLock(); err == nil {
			fmt.Fprintf(l.lockFile, "%d\n", os.Getpid())
			return nil
		}

		if time.Now().After(deadline) {
			l.lockFile.Close()
			l.lockFile = nil
			return fmt.Errorf("write lock timeout after %v (another quill process may be writing)", timeout)
		}

		time.Sleep(backoff)
		if backoff *= 2; backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// release unlocks and closes the lock file.
func (l *writeLocker) release() {
	if l.lockFile == nil {
		return
	}
	l.unlock()
	l.lockFile.Close()
	l.lockFile = nil
}
