package internal

import (
	"fmt"
	"os"

	"code.cloudfoundry.org/bytefmt"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"github.com/0xRadioAc7iv/go-kvs/core"
	"github.com/0xRadioAc7iv/go-kvs/internal/record"
)

const DEFAULT_DIR = "./kvs-data"
const DEFAULT_LOG_LEVEL = "warn"

// Config is the file-level configuration of a store, as read from kvs.yaml.
type Config struct {
	Dir                 string
	CompactionThreshold uint64
	SyncMode            core.SyncMode
	Compression         core.Compression
	LogLevel            string
}

func DefaultConfig() *Config {
	return &Config{
		Dir:                 DEFAULT_DIR,
		CompactionThreshold: core.DefaultCompactionThreshold,
		SyncMode:            core.SyncAlways,
		Compression:         core.NoCompression,
		LogLevel:            DEFAULT_LOG_LEVEL,
	}
}

// Parse overlays the YAML document in data onto c. Keys that are absent
// keep their current values.
func (c *Config) Parse(data []byte) error {
	var aux struct {
		Dir                 string `yaml:"dir"`
		CompactionThreshold string `yaml:"compaction_threshold"`
		Sync                string `yaml:"sync"`
		Compression         string `yaml:"compression"`
		LogLevel            string `yaml:"log_level"`
	}

	if err := yaml.UnmarshalStrict(data, &aux); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if aux.Dir != "" {
		c.Dir = aux.Dir
	}

	if aux.CompactionThreshold != "" {
		threshold, err := bytefmt.ToBytes(aux.CompactionThreshold)
		if err != nil {
			return fmt.Errorf("parse config: compaction_threshold: %w", err)
		}
		c.CompactionThreshold = threshold
	}

	if aux.Sync != "" {
		mode, err := core.ParseSyncMode(aux.Sync)
		if err != nil {
			return fmt.Errorf("parse config: sync: %w", err)
		}
		c.SyncMode = mode
	}

	if aux.Compression != "" {
		codec, err := record.ParseCodec(aux.Compression)
		if err != nil {
			return fmt.Errorf("parse config: compression: %w", err)
		}
		c.Compression = codec
	}

	if aux.LogLevel != "" {
		c.LogLevel = aux.LogLevel
	}

	return nil
}

// LoadConfig reads the YAML file at path on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Parse(data); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Options converts the configuration into engine options.
func (c *Config) Options(logger *zap.Logger) []core.Option {
	return []core.Option{
		core.WithCompactionThreshold(c.CompactionThreshold),
		core.WithSyncMode(c.SyncMode),
		core.WithCompression(c.Compression),
		core.WithLogger(logger),
	}
}
