package core

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/internal/record"
)

// SyncMode determines when appended commands are forced to stable storage.
type SyncMode int

const (
	// SyncAlways fsyncs the log after every Set and Remove. An acknowledged
	// write survives a crash or power loss.
	SyncAlways SyncMode = iota
	// SyncNever flushes every write to the OS but leaves writeback to the
	// kernel. A process crash loses nothing; a power loss may lose writes
	// acknowledged since the last writeback.
	SyncNever
)

func (m SyncMode) String() string {
	switch m {
	case SyncAlways:
		return "always"
	case SyncNever:
		return "never"
	default:
		return fmt.Sprintf("syncmode(%d)", int(m))
	}
}

func ParseSyncMode(s string) (SyncMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "always":
		return SyncAlways, nil
	case "never":
		return SyncNever, nil
	default:
		return SyncAlways, fmt.Errorf("unknown sync mode %q", s)
	}
}

// Compression selects the codec used for newly appended records.
type Compression = record.Codec

const (
	NoCompression     = record.NoCompression
	SnappyCompression = record.SnappyCompression
	LZ4Compression    = record.LZ4Compression
	ZstdCompression   = record.ZstdCompression
)

// Options are read once by Open and never changed by the Store afterwards.
type Options struct {
	CompactionThreshold uint64 // Stale bytes that must be exceeded before compaction runs
	SyncMode            SyncMode
	Compression         Compression
	Logger              *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		CompactionThreshold: DefaultCompactionThreshold,
		SyncMode:            SyncAlways,
		Compression:         NoCompression,
		Logger:              zap.NewNop(),
	}
}

type Option func(*Options)

func WithCompactionThreshold(bytes uint64) Option {
	return func(o *Options) {
		o.CompactionThreshold = bytes
	}
}

func WithSyncMode(mode SyncMode) Option {
	return func(o *Options) {
		o.SyncMode = mode
	}
}

func WithCompression(c Compression) Option {
	return func(o *Options) {
		o.Compression = c
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}
