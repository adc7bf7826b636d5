package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// NewContext creates a new context carrying the logger and a fresh trace ID.
func NewContext(ctx context.Context, l *Logger) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l = l.WithField("trace_id", traceID)
	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, loggerKey, l)
	return ctx, l
}

// FromContext retrieves the logger from context, or a no-op logger when
// the context carries none.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Nop()
}

// TraceIDFromContext returns the trace ID, or "" when the context carries none.
func TraceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(traceIDKey).(string); ok {
		return id
	}
	return ""
}
