package core

import (
	"os"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/internal/logfile"
	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

// Compact rewrites the log so that it holds only the live record of every
// indexed key, then swaps the new file in and remaps the index.
//
// The new log is written next to the old one and renamed over it only after
// it has been fully flushed and synced, so a crash at any point leaves one
// complete log on disk. The remapped index is built separately and replaces
// the old one in a single assignment.
func (s *Store) Compact() error {
	if s.closed {
		return ErrClosed
	}

	before := s.writer.Offset()
	tmpPath := s.path + CompactFileSuffix

	s.logger.Info("compaction started",
		zap.Int("keys", s.keyDir.Len()),
		zap.Uint64("stale_bytes", s.staleBytes),
		zap.Uint64("log_size", before),
	)

	keyDir, end, err := s.rewriteLiveRecords(tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return err
	}

	if err := s.swapLog(tmpPath, end); err != nil {
		return err
	}

	s.keyDir = keyDir
	s.staleBytes = 0
	s.compactions++

	s.logger.Info("compaction finished",
		zap.Int("keys", keyDir.Len()),
		zap.Uint64("log_size_before", before),
		zap.Uint64("log_size_after", end),
	)

	return nil
}

// rewriteLiveRecords copies every indexed record verbatim into a fresh file
// at path and returns the index remapped onto that file.
func (s *Store) rewriteLiveRecords(path string) (KeyDir, uint64, error) {
	w, err := logfile.CreateWriter(path)
	if err != nil {
		return nil, 0, ioError("create", path, err)
	}

	keyDir := make(KeyDir, s.keyDir.Len())

	for key, pos := range s.keyDir {
		frame, err := s.reader.ReadRange(pos)
		if err != nil {
			w.Close()
			return nil, 0, ioError("read", s.path, err)
		}

		newPos, err := w.Append(frame)
		if err != nil {
			w.Close()
			return nil, 0, ioError("write", path, err)
		}

		keyDir.Insert(key, newPos)
	}

	end := w.Offset()

	if err := w.Sync(); err != nil {
		w.Close()
		return nil, 0, ioError("sync", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, 0, ioError("close", path, err)
	}

	return keyDir, end, nil
}

// swapLog renames the compacted file at tmpPath over the live log and
// repoints both handles at it. On failure the store keeps serving the old log.
func (s *Store) swapLog(tmpPath string, end uint64) error {
	oldEnd := s.writer.Offset()

	// Handles are released before the rename; Windows refuses to replace open files.
	if err := s.writer.Close(); err != nil {
		os.Remove(tmpPath)
		return s.reopen(oldEnd, ioError("close", s.path, err))
	}
	if err := s.reader.Close(); err != nil {
		os.Remove(tmpPath)
		return s.reopen(oldEnd, ioError("close", s.path, err))
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return s.reopen(oldEnd, ioError("rename", tmpPath, err))
	}

	if err := utils.SyncDir(s.dir); err != nil {
		s.logger.Warn("could not sync store directory after compaction", zap.Error(err))
	}

	return s.reopen(end, nil)
}

// reopen opens fresh read and write handles on the log with the write cursor
// at end, and returns cause (or the reopen failure, if any).
func (s *Store) reopen(end uint64, cause error) error {
	reader, err := logfile.OpenReader(s.path)
	if err != nil {
		s.closed = true
		return ioError("open", s.path, err)
	}

	writer, err := logfile.OpenWriter(s.path, end)
	if err != nil {
		reader.Close()
		s.closed = true
		return ioError("open", s.path, err)
	}

	s.reader = reader
	s.writer = writer

	return cause
}
