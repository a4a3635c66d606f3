// Package logger provides the zerolog loggers used across the normalizer.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu            sync.RWMutex
	defaultLogger = New(os.Stderr, zerolog.InfoLevel)
)

// New creates a JSON logger writing to w at the given level.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewConsole creates a human-readable logger for development.
func NewConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}

// ForEnv returns a console logger in development and a JSON logger otherwise.
func ForEnv(env, level string) zerolog.Logger {
	lvl := ParseLevel(level)
	if env == "development" {
		return NewConsole(os.Stderr, lvl)
	}
	return New(os.Stderr, lvl)
}

// ParseLevel parses a level name, falling back to info.
func ParseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// Default returns the default logger.
func Default() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// SetDefault sets the default logger.
func SetDefault(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// SetLevel sets the level of the default logger.
func SetLevel(level zerolog.Level) {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = defaultLogger.Level(level)
}

// Disable disables all logging on the default logger.
func Disable() {
	SetLevel(zerolog.Disabled)
}

// Package-level convenience functions.

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event {
	l := Default()
	return l.Debug()
}

// Info starts an info event on the default logger.
func Info() *zerolog.Event {
	l := Default()
	return l.Info()
}

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event {
	l := Default()
	return l.Warn()
}

// Error starts an error event on the default logger.
func Error() *zerolog.Event {
	l := Default()
	return l.Error()
}
