package store

import (
	"os"

	"github.com/pkg/errors"
)

// locker provides cross-process file locking with shared (read) and
// exclusive (write) modes, grounded on the teacher's
// pkg/filesystem/locking.Locker but generalized from exclusive-only to
// shared-or-exclusive per spec.md §5 ("the store is guarded by a
// cross-process file lock with two modes - shared (reads) and exclusive
// (writes)").
type locker struct {
	file *os.File
}

// newLocker opens (creating if necessary) the lock file at path. The lock is
// returned in an unlocked state.
func newLocker(path string, permissions os.FileMode) (*locker, error) {
	mode := os.O_RDWR | os.O_CREATE
	file, err := os.OpenFile(path, mode, permissions)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open lock file")
	}
	return &locker{file: file}, nil
}

// Close closes the underlying lock file, implicitly releasing any lock held
// on it.
func (l *locker) Close() error {
	return l.file.Close()
}
