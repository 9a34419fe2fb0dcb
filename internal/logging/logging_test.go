package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("default options", func(t *testing.T) {
		logger, err := New(Options{})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if !logger.Core().Enabled(zapcore.InfoLevel) {
			t.Error("info should be enabled at the default level")
		}
		if logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug should be disabled at the default level")
		}
	})

	t.Run("debug level", func(t *testing.T) {
		logger, err := New(Options{Level: "debug"})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			t.Error("debug should be enabled")
		}
	})

	t.Run("unknown level is an error", func(t *testing.T) {
		if _, err := New(Options{Level: "loud"}); err == nil {
			t.Error("New() = nil error, want unknown level failure")
		}
	})

	t.Run("file output duplicates logs", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "boardroom.log")
		logger, err := New(Options{File: path})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		logger.Info("file sink probe")
		logger.Sync()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("log file not written: %v", err)
		}
		if !strings.Contains(string(data), "file sink probe") {
			t.Errorf("log file missing entry, got: %s", data)
		}
	})
}

func TestFor(t *testing.T) {
	t.Parallel()

	t.Run("nil parent yields no-op", func(t *testing.T) {
		logger := For(nil, CategoryPipeline)
		if logger == nil {
			t.Fatal("For(nil) returned nil")
		}
		logger.Info("must not panic")
	})

	t.Run("named child", func(t *testing.T) {
		parent, err := New(Options{})
		if err != nil {
			t.Fatalf("New() error: %v", err)
		}
		child := For(parent, CategoryGateway)
		if child == parent {
			t.Error("For() returned the parent unchanged")
		}
	})
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseLevel(%q) = %v, want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseLevel(%q) error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
