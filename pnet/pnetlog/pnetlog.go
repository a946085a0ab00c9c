// Package pnetlog wraps charmbracelet/log with the field set the core
// state machines attach to every message (AR endpoint, error class/code).
package pnetlog

import (
	"os"

	"github.com/charmbracelet/log"
)

// Level mirrors charmbracelet/log's levels so callers need not import that
// package directly.
type Level = log.Level

const (
	LevelDebug = log.DebugLevel
	LevelInfo  = log.InfoLevel
	LevelWarn  = log.WarnLevel
	LevelError = log.ErrorLevel
)

// Logger is the core's structured logger.
type Logger struct {
	inner *log.Logger
}

// New builds a Logger writing to stderr with a timestamp and the given
// minimum level.
func New(level Level) *Logger {
	var l = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
		Prefix:          "pnet",
	})

	return &Logger{inner: l}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)   { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)   { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any)  { l.inner.Error(msg, kv...) }

// With returns a derived Logger that always attaches the given key/value
// pairs, used at AR creation to bind "arep" once.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}
