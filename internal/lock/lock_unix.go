//go:build unix

package lock

import (
	"fmt"
	"os"
	"syscall"
)

// On Unix systems, this uses flock(2) to place an exclusive lock on the lock
// file. flock locks belong to the open file description, so a second Acquire
// fails even from the same process.
func lockDirectory(lockFilePath string) (*os.File, error) {
	f, err := os.OpenFile(lockFilePath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("unable to open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		f.Close()
		return nil, ErrLocked
	}

	return f, nil
}

// The lock file itself is left in place; only the flock is released.
func unlockDirectory(f *os.File) error {
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_UN); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
