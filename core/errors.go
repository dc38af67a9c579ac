package core

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned by Remove when the key has no live entry.
	ErrKeyNotFound = errors.New("key not found")

	// ErrUnexpectedCommandType is returned when the index points at a record
	// that is not a Set. The index and the log disagree; treat the store as corrupt.
	ErrUnexpectedCommandType = errors.New("unexpected command type")

	// ErrSerialization wraps every failure to parse a log record.
	ErrSerialization = errors.New("serialization error")

	// ErrCompactionFailed is wrapped around a failed automatic compaction
	// triggered by Set. The Set itself has already taken effect.
	ErrCompactionFailed = errors.New("value stored, compaction failed")

	// ErrClosed is returned by operations on a closed Store.
	ErrClosed = errors.New("store is closed")
)

// IOError reports a failed filesystem operation on the store's files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}

func serializationError(context string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSerialization, context, err)
}
