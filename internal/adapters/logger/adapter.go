// Package logger provides adapters for the logging interface.
package logger

import (
	"context"

	"github.com/samber/lo"
)

// Logger defines the logging interface used throughout the application.
// External loggers that implement these methods can be wrapped with ZapAdapter.
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]any)
	Debug(ctx context.Context, msg string, fields map[string]any)
	Warn(ctx context.Context, msg string, fields map[string]any)
	Error(ctx context.Context, msg string, err error, fields map[string]any)
}

// ZapAdapter adapts a Logger to the application's logging interface and
// attaches its base fields to every entry.
type ZapAdapter struct {
	log  Logger
	base map[string]any
}

// NewZapAdapter creates a new ZapAdapter wrapping the given logger.
func NewZapAdapter(log Logger) *ZapAdapter {
	return &ZapAdapter{log: log}
}

// WithComponent returns an adapter that tags every entry with component.
// The receiver is not modified.
func (a *ZapAdapter) WithComponent(component string) *ZapAdapter {
	return a.WithFields(map[string]any{"component": component})
}

// WithFields returns an adapter whose entries carry fields in addition to the
// receiver's base fields. Per-call fields win over base fields.
func (a *ZapAdapter) WithFields(fields map[string]any) *ZapAdapter {
	return &ZapAdapter{
		log:  a.log,
		base: lo.Assign(a.base, fields),
	}
}

// Info logs an info message.
func (a *ZapAdapter) Info(ctx context.Context, msg string, fields map[string]any) {
	a.log.Info(ctx, msg, a.merge(fields))
}

// Debug logs a debug message.
func (a *ZapAdapter) Debug(ctx context.Context, msg string, fields map[string]any) {
	a.log.Debug(ctx, msg, a.merge(fields))
}

// Warn logs a warning message.
func (a *ZapAdapter) Warn(ctx context.Context, msg string, fields map[string]any) {
	a.log.Warn(ctx, msg, a.merge(fields))
}

// Error logs an error message.
func (a *ZapAdapter) Error(ctx context.Context, msg string, err error, fields map[string]any) {
	a.log.Error(ctx, msg, err, a.merge(fields))
}

// merge returns fields unchanged when there are no base fields, otherwise a
// new map. The caller's map is never mutated.
func (a *ZapAdapter) merge(fields map[string]any) map[string]any {
	if len(a.base) == 0 {
		return fields
	}
	return lo.Assign(a.base, fields)
}
