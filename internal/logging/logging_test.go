package logging

import (
	"testing"

	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		wantErr bool
	}{
		{"debug", false},
		{"info", false},
		{"WARN", false},
		{"error", false},
		{"", false},
		{"verbose", true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for level %q", tt.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("New(%q) failed: %v", tt.level, err)
			}
			logger.Sync()
		})
	}

	t.Run("level is applied", func(t *testing.T) {
		logger, err := New("warn")
		if err != nil {
			t.Fatal(err)
		}
		if logger.Core().Enabled(zap.InfoLevel) {
			t.Errorf("info should be disabled at warn level")
		}
		if !logger.Core().Enabled(zap.ErrorLevel) {
			t.Errorf("error should be enabled at warn level")
		}
	})
}
