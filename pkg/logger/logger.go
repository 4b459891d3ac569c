// Package logger holds the process-wide structured logger of the balanced
// flow tools.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log is the process-wide logger. It discards records until Init or
// InitWithConfig runs.
var Log = slog.New(slog.DiscardHandler)

// Config configures the logger.
type Config struct {
	Level      string
	Format     string // json, text
	Output     string // stdout, stderr, file
	FilePath   string
	MaxSize    int // MB
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// Init sets up a JSON logger on stdout with the given level.
func Init(level string) {
	InitWithConfig(Config{
		Level:  level,
		Format: "json",
		Output: "stdout",
	})
}

// InitWithConfig replaces Log with a logger built from cfg.
func InitWithConfig(cfg Config) {
	Log = New(cfg, nil)
}

// New builds a logger from cfg. A non-nil w overrides the configured output.
func New(cfg Config, w io.Writer) *slog.Logger {
	lvl := ParseLevel(cfg.Level)
	if w == nil {
		w = writer(cfg)
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	switch cfg.Format {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}
	return slog.New(handler)
}

// ParseLevel maps a level name onto slog levels, info for unknown names.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

func writer(cfg Config) io.Writer {
	switch cfg.Output {
	case "stderr":
		return os.Stderr
	case "file":
		if cfg.FilePath == "" {
			cfg.FilePath = "logs/balflow.log"
		}
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return os.Stdout
		}
		return &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	default:
		return os.Stdout
	}
}

// WithService returns a logger tagged with the service name.
func WithService(service string) *slog.Logger {
	return Log.With("service", service)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Log.Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Log.Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Log.Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Log.Error(msg, args...)
}

// Fatal logs at error level and exits with status 1.
func Fatal(msg string, args ...any) {
	Log.Error(msg, args...)
	os.Exit(1)
}
