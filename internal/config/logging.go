package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ErrInvalidValue indicates a configuration value outside its allowed set.
var ErrInvalidValue = errors.New("invalid configuration value")

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: log_level %q", ErrInvalidValue, name)
	}
}

// NewLogger builds the application logger described by cfg.
func NewLogger(cfg *Config, w io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(cfg.LogLevel)
	opts := &slog.HandlerOptions{Level: lvl}

	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
