package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type loggerOptions struct {
	dir string
	now func() time.Time
}

// LoggerOption configures NewLogger.
type LoggerOption func(*loggerOptions)

// WithLogDir also writes log entries to a daily file (kotae_YYYYMMDD.log) under dir.
// An empty dir leaves output on stderr only.
func WithLogDir(dir string) LoggerOption {
	return func(o *loggerOptions) {
		o.dir = dir
	}
}

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool, opts ...LoggerOption) (*zap.Logger, error) {
	o := loggerOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	if o.dir != "" {
		if err := os.MkdirAll(o.dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = append(cfg.OutputPaths, DailyLogPath(o.dir, o.now()))
	}
	return cfg.Build()
}

// DailyLogPath returns the log file for the day of t under dir.
func DailyLogPath(dir string, t time.Time) string {
	return filepath.Join(dir, "kotae_"+t.Format("20060102")+".log")
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
