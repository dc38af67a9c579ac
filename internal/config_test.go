package internal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0xRadioAc7iv/go-kvs/core"
)

func TestConfigParse(t *testing.T) {
	t.Run("all keys", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Parse([]byte(`
dir: /var/lib/kvs
compaction_threshold: 4M
sync: never
compression: zstd
log_level: debug
`))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if cfg.Dir != "/var/lib/kvs" {
			t.Errorf("Dir = %q", cfg.Dir)
		}
		if cfg.CompactionThreshold != 4*core.OneMegabyte {
			t.Errorf("CompactionThreshold = %d, want %d", cfg.CompactionThreshold, 4*core.OneMegabyte)
		}
		if cfg.SyncMode != core.SyncNever {
			t.Errorf("SyncMode = %v", cfg.SyncMode)
		}
		if cfg.Compression != core.ZstdCompression {
			t.Errorf("Compression = %v", cfg.Compression)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q", cfg.LogLevel)
		}
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		if err := cfg.Parse([]byte("compression: snappy\n")); err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		want := DefaultConfig()
		want.Compression = core.SnappyCompression
		if *cfg != *want {
			t.Errorf("got %+v, want %+v", *cfg, *want)
		}
	})

	invalid := []struct {
		name string
		doc  string
	}{
		{"bad threshold", "compaction_threshold: lots\n"},
		{"bad sync", "sync: sometimes\n"},
		{"bad compression", "compression: brotli\n"},
		{"unknown key", "port: 9999\n"},
	}

	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if err := DefaultConfig().Parse([]byte(tt.doc)); err == nil {
				t.Errorf("expected error for %q", tt.doc)
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvs.yaml")
	if err := os.WriteFile(path, []byte("compaction_threshold: 512K\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.CompactionThreshold != 512*core.OneKilobyte {
		t.Errorf("CompactionThreshold = %d", cfg.CompactionThreshold)
	}
	if cfg.Dir != DEFAULT_DIR {
		t.Errorf("Dir = %q, want default", cfg.Dir)
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestConfigOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.CompactionThreshold = 1

	s, err := core.Open(cfg.Dir, cfg.Options(nil)...)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if s.Stats().CompactionThreshold != 1 {
		t.Errorf("threshold option not applied: %+v", s.Stats())
	}
}
