// Package log holds logger adapters used when wiring the application layer.
package log

import "github.com/bft-labs/embedredis/internal/ports"

// Discard returns a logger that drops every message.
func Discard() ports.Logger {
	return discard{}
}

type discard struct{}

func (discard) Debug(msg string, fields ...ports.Field) {}
func (discard) Info(msg string, fields ...ports.Field)  {}
func (discard) Warn(msg string, fields ...ports.Field)  {}
func (discard) Error(msg string, fields ...ports.Field) {}

// Tagged wraps a logger and appends a fixed set of fields to every message.
type Tagged struct {
	next   ports.Logger
	fields []ports.Field
}

// NewTagged creates a logger that tags every message with fields.
// A nil next logger discards everything.
func NewTagged(next ports.Logger, fields ...ports.Field) *Tagged {
	if next == nil {
		next = discard{}
	}
	return &Tagged{next: next, fields: fields}
}

func (t *Tagged) with(fields []ports.Field) []ports.Field {
	out := make([]ports.Field, 0, len(t.fields)+len(fields))
	out = append(out, t.fields...)
	return append(out, fields...)
}

// Debug logs a debug-level message.
func (t *Tagged) Debug(msg string, fields ...ports.Field) { t.next.Debug(msg, t.with(fields)...) }

// Info logs an info-level message.
func (t *Tagged) Info(msg string, fields ...ports.Field) { t.next.Info(msg, t.with(fields)...) }

// Warn logs a warning-level message.
func (t *Tagged) Warn(msg string, fields ...ports.Field) { t.next.Warn(msg, t.with(fields)...) }

// Error logs an error-level message.
func (t *Tagged) Error(msg string, fields ...ports.Field) { t.next.Error(msg, t.with(fields)...) }
