// Package logger provides the process-wide structured logger. It wraps
// log/slog with a colorized text handler for terminals, a JSON handler
// for machine consumption, and a level that can be retuned at runtime
// (used by the config watcher).
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Config selects the logger's level, format and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	currentLevel  atomic.Int32 // holds a slog.Level
	currentFormat atomic.Value // "text" or "json"

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stderr
	useColor bool
)

func init() {
	currentLevel.Store(int32(slog.LevelInfo))
	currentFormat.Store("text")
	useColor = isTerminal(os.Stderr.Fd())
	rebuild()
}

// rebuild swaps in a new slog handler reflecting the current settings.
func rebuild() {
	mu.Lock()
	defer mu.Unlock()

	level := new(slog.LevelVar)
	level.Set(slog.Level(currentLevel.Load()))
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format, _ := currentFormat.Load().(string); format == "json" {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = newTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init configures the logger from config. Output may be "stdout",
// "stderr", or a file path (opened append-only).
func Init(cfg Config) error {
	if cfg.Output != "" {
		mu.Lock()
		switch strings.ToLower(cfg.Output) {
		case "stdout":
			output = os.Stdout
			useColor = isTerminal(os.Stdout.Fd())
		case "stderr":
			output = os.Stderr
			useColor = isTerminal(os.Stderr.Fd())
		default:
			f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				mu.Unlock()
				return fmt.Errorf("failed to open log file %q: %w", cfg.Output, err)
			}
			output = f
			useColor = false
		}
		mu.Unlock()
	}

	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	rebuild()
	return nil
}

// InitWithWriter points the logger at an arbitrary writer. Used by tests.
func InitWithWriter(w io.Writer, level, format string) {
	mu.Lock()
	output = w
	useColor = false
	mu.Unlock()

	if level != "" {
		SetLevel(level)
	}
	if format != "" {
		SetFormat(format)
	}
	rebuild()
}

// SetLevel changes the minimum level. Unknown names are ignored so a
// botched config reload cannot silence the process.
func SetLevel(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return
	}
	currentLevel.Store(int32(l))
	rebuild()
}

// SetFormat switches between "text" and "json" output.
func SetFormat(format string) {
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return
	}
	currentFormat.Store(format)
	rebuild()
}

// Level reports the current minimum level name.
func Level() string {
	return slog.Level(currentLevel.Load()).String()
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// enabled is a cheap pre-check so disabled levels skip argument work.
func enabled(l slog.Level) bool {
	return l >= slog.Level(currentLevel.Load())
}

// Debug logs at debug level: Debug("msg", "key", value, ...).
func Debug(msg string, args ...any) {
	if !enabled(slog.LevelDebug) {
		return
	}
	get().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	if !enabled(slog.LevelInfo) {
		return
	}
	get().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	if !enabled(slog.LevelWarn) {
		return
	}
	get().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// With returns a child logger with pre-bound attributes, e.g. one per
// session: logger.With(logger.KeySessionID, id).
func With(args ...any) *slog.Logger {
	return get().With(args...)
}

// Duration converts the time since start into fractional milliseconds
// for the duration_ms field.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
