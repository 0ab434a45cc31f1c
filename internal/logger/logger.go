// Package logger constructs the zap loggers used across serial-to-alsa.
//
// All components receive a *zap.Logger from here so log lines share the same
// encoding, level plumbing, and output routing.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string
	// Format is "console" for human-readable output or "json" for
	// machine-readable structured output.
	Format string
}

// New builds a zap logger from the provided options.
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", opts.Level, err)
	}

	var cfg zap.Config
	switch opts.Format {
	case "", "console":
		cfg = zap.NewDevelopmentConfig()
	case "json":
		cfg = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

// NewNop returns a logger that discards everything. Intended for tests and
// wiring code that cannot fail.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
