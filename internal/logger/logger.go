// Package logger builds the platform's structured logger: slog writing
// to a lumberjack-rotated file plus a colorized stdout stream, grounded
// on the teacher's internal/logger package (lumberjack rotation
// constants) and its color_text_handler.go (ANSI level coloring).
package logger

import (
	"log/slog"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation parameters, unchanged from the teacher's constants.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 7
)

// Config describes where and how the platform logger writes.
type Config struct {
	Dir        string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	JSON       bool
}

// New builds a slog.Logger that fans out to stdout (colorized text, or
// JSON when Config.JSON is set) and, when Dir is non-empty, to a
// lumberjack-rotated file named monitor.log under Dir.
func New(cfg Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var fileHandler slog.Handler

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, err
		}
		fileWriter := &lj.Logger{
			Filename:   filepath.Join(cfg.Dir, "monitor.log"),
			MaxSize:    valOr(cfg.MaxSizeMB, DefaultMaxSizeMB),
			MaxBackups: valOr(cfg.MaxBackups, DefaultMaxBackups),
			MaxAge:     valOr(cfg.MaxAgeDays, DefaultMaxAgeDays),
			Compress:   cfg.Compress,
		}
		fileHandler = slog.NewJSONHandler(fileWriter, opts)
	}

	var stdoutHandler slog.Handler
	if cfg.JSON {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = NewColorTextHandler(os.Stdout, opts, true)
	}

	if fileHandler == nil {
		return slog.New(stdoutHandler), nil
	}
	return slog.New(&fanoutHandler{handlers: []slog.Handler{stdoutHandler, fileHandler}}), nil
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
