//go:build !windows && !plan9

package store

import (
	"os"
	"syscall"
)

// Lock attempts to acquire the file lock in shared or exclusive mode. If
// block is false and the lock is unavailable, Lock returns an error
// immediately (F_SETLK); if block is true, Lock waits until the lock is
// acquired (F_SETLKW).
func (l *locker) Lock(shared, block bool) error {
	lockType := int16(syscall.F_WRLCK)
	if shared {
		lockType = syscall.F_RDLCK
	}
	spec := syscall.Flock_t{
		Type:   lockType,
		Whence: int16(os.SEEK_SET),
		Start:  0,
		Len:    0,
	}
	operation := syscall.F_SETLK
	if block {
		operation = syscall.F_SETLKW
	}
	return syscall.FcntlFlock(l.file.Fd(), operation, &spec)
}

// Unlock releases the file lock.
func (l *locker) Unlock() error {
	spec := syscall.Flock_t{
		Type:   syscall.F_UNLCK,
		Whence: int16(os.SEEK_SET),
		Start:  0,
		Len:    0,
	}
	return syscall.FcntlFlock(l.file.Fd(), syscall.F_SETLK, &spec)
}
