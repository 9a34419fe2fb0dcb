// Package logging builds the shared zap logger for boardroom. Components
// receive their logger through constructors and never read ambient
// process state; this package is only called from the CLI boundary.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names used with For. Each subsystem logs under its own name
// so runs can be filtered per concern.
const (
	CategoryPipeline = "pipeline"
	CategoryGateway  = "gateway"
	CategoryStore    = "store"
	CategoryLedger   = "ledger"
	CategoryWatch    = "watch"
)

// Options configures the logger built by New.
type Options struct {
	// Level is one of debug, info, warn, error (default: info).
	Level string
	// JSONFormat switches the encoder from console to JSON lines.
	JSONFormat bool
	// File, when set, duplicates log output to the given path in
	// addition to stderr. The parent directory is created if absent.
	File string
}

// New builds a zap logger from Options.
func New(opts Options) (*zap.Logger, error) {
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if opts.JSONFormat {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	cores := []zapcore.Core{
		zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level),
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(f), level))
	}

	return zap.New(zapcore.NewTee(cores...)), nil
}

// For returns a category-named child logger. A nil parent yields a no-op
// logger so library code can log unconditionally.
func For(parent *zap.Logger, category string) *zap.Logger {
	if parent == nil {
		return zap.NewNop()
	}
	return parent.Named(category)
}

// parseLevel maps a level string to a zap level.
func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
}
