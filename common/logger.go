package common

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards all records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var (
	loggerPtr atomic.Pointer[slog.Logger]
	warnedMu  sync.Mutex
	warned    = make(map[string]struct{})
)

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger installs the logger used by every oxy-fx package.
// Passing nil restores the silent default.
//
// Parameters:
//   - l: the logger to install, or nil to discard all output
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the currently installed logger. It is never nil.
//
// Returns:
//   - *slog.Logger: the active logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// WarnOnce logs a warning the first time it is called with a given key and is silent afterwards.
// Used for capability gaps that degrade quality but should not flood the log every frame.
//
// Parameters:
//   - key: the deduplication key
//   - msg: the log message
//   - args: slog key/value attributes
func WarnOnce(key, msg string, args ...any) {
	warnedMu.Lock()
	_, seen := warned[key]
	if !seen {
		warned[key] = struct{}{}
	}
	warnedMu.Unlock()
	if !seen {
		Logger().Warn(msg, args...)
	}
}

// ResetWarnings forgets every key recorded by WarnOnce.
func ResetWarnings() {
	warnedMu.Lock()
	warned = make(map[string]struct{})
	warnedMu.Unlock()
}

// WarnKey builds a WarnOnce key from a category and any identifying values.
//
// Parameters:
//   - category: the warning category
//   - parts: values distinguishing one occurrence from another
//
// Returns:
//   - string: the combined key
func WarnKey(category string, parts ...any) string {
	return category + fmt.Sprint(parts...)
}
