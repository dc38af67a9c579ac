// Package core implements the storage engine: an append-only command log,
// an in-memory index from keys to log positions, replay on open, and
// compaction of superseded commands.
//
// A Store is meant for a single caller. It performs no locking; callers
// that share a directory across processes must serialize access themselves
// (see internal/lock).
package core

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/internal/logfile"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

type Store struct {
	dir    string
	path   string
	reader *logfile.Reader
	writer *logfile.Writer
	keyDir KeyDir

	// staleBytes counts log bytes no longer reachable through keyDir:
	// superseded Sets, removed keys' Sets, and the Remove records themselves.
	staleBytes  uint64
	compactions uint64

	opts   Options
	logger *zap.Logger
	closed bool
}

// Stats is a snapshot of the store's accounting.
type Stats struct {
	Keys                int
	StaleBytes          uint64
	LogSize             uint64
	Compactions         uint64
	CompactionThreshold uint64
}

// Open opens the store in dir, creating the directory and its log file if
// needed, and rebuilds the index by replaying the log.
func Open(dir string, opts ...Option) (*Store, error) {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	s := &Store{
		dir:    dir,
		path:   filepath.Join(dir, LogFileName),
		opts:   options,
		logger: options.Logger.With(zap.String("dir", dir)),
	}

	// 0 (special bit - ignored), 7 (rwx - owner), 5 (r-x - user group), 5 (r-x - others)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, ioError("create directory", dir, err)
	}

	// A compaction that crashed before its rename leaves the old log intact.
	tmpPath := s.path + CompactFileSuffix
	if utils.PathExists(tmpPath) {
		s.logger.Warn("removing unfinished compaction output", zap.String("path", tmpPath))
		if err := os.Remove(tmpPath); err != nil {
			return nil, ioError("remove", tmpPath, err)
		}
	}

	if err := utils.EnsureFile(s.path); err != nil {
		return nil, ioError("create", s.path, err)
	}

	reader, err := logfile.OpenReader(s.path)
	if err != nil {
		return nil, ioError("open", s.path, err)
	}

	keyDir, stale, end, err := replay(reader)
	if err != nil {
		reader.Close()
		return nil, err
	}

	writer, err := logfile.OpenWriter(s.path, end)
	if err != nil {
		reader.Close()
		return nil, ioError("open", s.path, err)
	}

	s.reader = reader
	s.writer = writer
	s.keyDir = keyDir
	s.staleBytes = stale

	s.logger.Info("store opened",
		zap.Int("keys", keyDir.Len()),
		zap.Uint64("stale_bytes", stale),
		zap.Uint64("log_size", end),
	)

	return s, nil
}

// Set stores value under key, superseding any previous value. It may run a
// compaction before returning; if that compaction fails the value is still
// stored and the error wraps ErrCompactionFailed.
func (s *Store) Set(key string, value []byte) error {
	if s.closed {
		return ErrClosed
	}

	cmd := record.NewSet(key, value)
	pos, err := s.appendCommand(&cmd)
	if err != nil {
		return err
	}

	if prev, ok := s.keyDir.Insert(key, pos); ok {
		s.staleBytes += prev.Length
	}

	if s.staleBytes > s.opts.CompactionThreshold {
		if err := s.Compact(); err != nil {
			return fmt.Errorf("%w: %w", ErrCompactionFailed, err)
		}
	}

	return nil
}

// Get returns the value stored under key. A missing key is not an error:
// found is false and err is nil.
func (s *Store) Get(key string) (value []byte, found bool, err error) {
	if s.closed {
		return nil, false, ErrClosed
	}

	pos, ok := s.keyDir.Get(key)
	if !ok {
		return nil, false, nil
	}

	cmd, err := s.readCommand(pos)
	if err != nil {
		return nil, false, err
	}

	if cmd.Kind != record.KindSet {
		return nil, false, fmt.Errorf("%w: %s record at offset %d for key %q",
			ErrUnexpectedCommandType, cmd.Kind, pos.Offset, key)
	}

	return cmd.Value, true, nil
}

// Remove deletes key. It returns ErrKeyNotFound, without touching the log,
// if key has no live value.
func (s *Store) Remove(key string) error {
	if s.closed {
		return ErrClosed
	}

	if _, ok := s.keyDir.Get(key); !ok {
		return fmt.Errorf("remove %q: %w", key, ErrKeyNotFound)
	}

	cmd := record.NewRemove(key)
	pos, err := s.appendCommand(&cmd)
	if err != nil {
		return err
	}

	prev, _ := s.keyDir.Remove(key)

	// The Remove record is reclaimable as soon as it has taken effect.
	s.staleBytes += prev.Length + pos.Length

	return nil
}

// Contains reports whether key has a live value. A closed store contains nothing.
func (s *Store) Contains(key string) bool {
	if s.closed {
		return false
	}
	_, ok := s.keyDir.Get(key)
	return ok
}

// Len returns the number of live keys, or 0 once the store is closed.
func (s *Store) Len() int {
	if s.closed {
		return 0
	}
	return s.keyDir.Len()
}

// Keys returns every live key in no particular order, or nil once the store
// is closed.
func (s *Store) Keys() []string {
	if s.closed {
		return nil
	}

	keys := make([]string, 0, s.keyDir.Len())
	for k := range s.keyDir {
		keys = append(keys, k)
	}
	return keys
}

// Stats returns the current accounting. A closed store reports zero Stats.
func (s *Store) Stats() Stats {
	if s.closed {
		return Stats{}
	}

	return Stats{
		Keys:                s.keyDir.Len(),
		StaleBytes:          s.staleBytes,
		LogSize:             s.writer.Offset(),
		Compactions:         s.compactions,
		CompactionThreshold: s.opts.CompactionThreshold,
	}
}

// Close flushes and syncs the log and releases both file handles. The store
// cannot be used afterwards.
func (s *Store) Close() error {
	if s.closed {
		return ErrClosed
	}
	s.closed = true

	var firstErr error
	if err := s.writer.Sync(); err != nil {
		firstErr = ioError("sync", s.path, err)
	}
	if err := s.writer.Close(); err != nil && firstErr == nil {
		firstErr = ioError("close", s.path, err)
	}
	if err := s.reader.Close(); err != nil && firstErr == nil {
		firstErr = ioError("close", s.path, err)
	}

	s.logger.Info("store closed", zap.Int("keys", s.keyDir.Len()), zap.Uint64("stale_bytes", s.staleBytes))

	return firstErr
}

// appendCommand writes cmd at the end of the log and makes it readable
// (and durable, under SyncAlways) before returning its position.
func (s *Store) appendCommand(cmd *record.Command) (logfile.Pos, error) {
	encoded, err := record.EncodeCommandToBytes(cmd, s.opts.Compression)
	if err != nil {
		return logfile.Pos{}, serializationError("encode", err)
	}

	pos, err := s.writer.Append(encoded)
	if err != nil {
		return logfile.Pos{}, ioError("write", s.path, err)
	}

	if s.opts.SyncMode == SyncAlways {
		err = s.writer.Sync()
	} else {
		err = s.writer.Flush()
	}
	if err != nil {
		return logfile.Pos{}, ioError("write", s.path, err)
	}

	return pos, nil
}

func (s *Store) readCommand(pos logfile.Pos) (*record.Command, error) {
	frame, err := s.reader.ReadRange(pos)
	if errors.Is(err, logfile.ErrShortRead) {
		return nil, serializationError(fmt.Sprintf("record at offset %d", pos.Offset), err)
	}
	if err != nil {
		return nil, ioError("read", s.path, err)
	}

	cmd, err := record.DecodeCommandFromBytes(frame)
	if err != nil {
		return nil, serializationError(fmt.Sprintf("record at offset %d", pos.Offset), err)
	}

	return cmd, nil
}
