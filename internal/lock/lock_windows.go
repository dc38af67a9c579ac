//go:build windows

package lock

import (
	"os"
)

// On Windows, this is implemented by atomically creating the lock file. If
// the file already exists, the directory is assumed to be in use.
func lockDirectory(lockFilePath string) (*os.File, error) {
	f, err := os.OpenFile(lockFilePath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		return nil, ErrLocked
	}

	return f, nil
}

// On Windows, this removes the lock file from disk.
func unlockDirectory(f *os.File) error {
	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
