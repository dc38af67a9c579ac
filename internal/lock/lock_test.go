package lock_test

import (
	"errors"
	"testing"

	"github.com/0xRadioAc7iv/go-kvs/internal/lock"
)

func TestDirLock(t *testing.T) {
	t.Run("second acquire fails while lock is held", func(t *testing.T) {
		dir := t.TempDir()

		l, err := lock.Acquire(dir)
		if err != nil {
			t.Fatalf("could not acquire initial lock: %v", err)
		}
		defer l.Release()

		if _, err := lock.Acquire(dir); !errors.Is(err, lock.ErrLocked) {
			t.Fatalf("expected ErrLocked, got %v", err)
		}
	})

	t.Run("acquire succeeds after release", func(t *testing.T) {
		dir := t.TempDir()

		l, err := lock.Acquire(dir)
		if err != nil {
			t.Fatalf("could not acquire lock: %v", err)
		}
		if err := l.Release(); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if err := l.Release(); err != nil {
			t.Fatalf("second Release should be a no-op, got %v", err)
		}

		l2, err := lock.Acquire(dir)
		if err != nil {
			t.Fatalf("lock was supposed to be free: %v", err)
		}
		l2.Release()
	})

	t.Run("missing directory", func(t *testing.T) {
		if _, err := lock.Acquire(t.TempDir() + "/missing"); err == nil {
			t.Fatal("expected error for missing directory")
		}
	})
}
