// Package lock guards a store directory against use by two processes at once.
//
// The storage engine itself does not lock; front ends acquire a DirLock for
// as long as they hold a store open.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// LockFileName is created inside the guarded directory.
const LockFileName = "LOCK"

// ErrLocked is returned when another process holds the directory.
var ErrLocked = errors.New("directory already in use by another kvs process")

// DirLock is an acquired directory lock. The lock file handle stays open
// until Release.
type DirLock struct {
	file *os.File
}

// Acquire takes an exclusive, non-blocking lock on dir. The directory must
// already exist.
func Acquire(dir string) (*DirLock, error) {
	f, err := lockDirectory(filepath.Join(dir, LockFileName))
	if err != nil {
		return nil, err
	}
	return &DirLock{file: f}, nil
}

// Release drops the lock. It is safe to call more than once.
func (l *DirLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	if err := unlockDirectory(f); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
