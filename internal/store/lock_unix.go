//go:build unix

package store

import (
	"golang.org/x/sys/unix"
)

// tryLock attempts to acquire an exclusive lock without blocking.
func (l *writeLocker) tryLock() error {
	return unix.Flock(int(l.lockFile.Fd()), unix.LOCK_EX|unix.LOCK_NB)
}

// unlock releases the exclusive lock.
func (l *writeLocker) unlock() {
	unix.Flock(int(l.lockFile.Fd()), unix.LOCK_UN)
}
