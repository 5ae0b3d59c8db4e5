package logger

import (
	"io"
	"log/slog"

	"collateral_monitor/internal/app/port"
)

// slogAdapter implements port.Logger on top of the package-level logger.
type slogAdapter struct{}

// NewSlogAdapter returns a port.Logger backed by the global slog logger.
func NewSlogAdapter() port.Logger {
	return &slogAdapter{}
}

func (a *slogAdapter) Info(msg string, args ...any)  { Info(msg, args...) }
func (a *slogAdapter) Debug(msg string, args ...any) { Debug(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { Error(msg, args...) }

// boundLogger implements port.Logger on an explicit slog.Logger.
type boundLogger struct {
	l *slog.Logger
}

// New wraps an explicit slog.Logger as a port.Logger.
func New(l *slog.Logger) port.Logger {
	return &boundLogger{l: l}
}

// Discard returns a port.Logger that drops everything. Used by tests.
func Discard() port.Logger {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func (b *boundLogger) Info(msg string, args ...any)  { b.l.Info(msg, args...) }
func (b *boundLogger) Debug(msg string, args ...any) { b.l.Debug(msg, args...) }
func (b *boundLogger) Warn(msg string, args ...any)  { b.l.Warn(msg, args...) }
func (b *boundLogger) Error(msg string, args ...any) { b.l.Error(msg, args...) }
