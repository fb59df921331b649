// Package logger provides structured logging for the NewsLookout pipeline.
// Stages log through package-level functions so they do not need a logger
// handle threaded through every call. Output goes to stderr by default;
// verbose mode lowers the level to debug.
package logger

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	log     = newLogger(os.Stderr)
	verbose bool
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetVerbose enables or disables debug-level logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if debug logging is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput redirects log output. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log = newLogger(w)
}

// Debug logs a debug message with key-value attributes.
func Debug(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Debug(msg, args...)
}

// Info logs an informational message with key-value attributes.
func Info(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Info(msg, args...)
}

// Warn logs a warning with key-value attributes.
func Warn(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Warn(msg, args...)
}

// Error logs an error with key-value attributes.
func Error(msg string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	log.Error(msg, args...)
}
