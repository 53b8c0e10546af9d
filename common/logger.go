package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler discards every record. It backs the default logger so the engine is
// silent unless the application installs its own.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger replaces the logger used by every engine package. Passing nil restores
// the silent default.
//
// Parameters:
//   - l: the logger to install, or nil
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the current engine logger. Never nil.
//
// Returns:
//   - *slog.Logger: the installed logger
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
