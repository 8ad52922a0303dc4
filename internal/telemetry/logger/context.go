package logger

import (
	"context"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	// loggerKey is the context key for the logger.
	loggerKey contextKey = "snapmesh.logger"
	// processKey is the context key for the process ID.
	processKey contextKey = "snapmesh.process_id"
	// sessionKey is the context key for the snapshot session ID.
	sessionKey contextKey = "snapmesh.session_id"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext extracts the logger from context.
// Returns the default logger if none is set.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(loggerKey).(Logger); ok {
		return l
	}
	return Default()
}

// WithProcess adds a process ID to the context.
func WithProcess(ctx context.Context, p domain.ProcessID) context.Context {
	return context.WithValue(ctx, processKey, p)
}

// ProcessFromContext extracts the process ID from context.
func ProcessFromContext(ctx context.Context) domain.ProcessID {
	if p, ok := ctx.Value(processKey).(domain.ProcessID); ok {
		return p
	}
	return ""
}

// WithSession adds a snapshot session ID to the context.
func WithSession(ctx context.Context, s domain.SessionID) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext extracts the snapshot session ID from context.
func SessionFromContext(ctx context.Context) domain.SessionID {
	if s, ok := ctx.Value(sessionKey).(domain.SessionID); ok {
		return s
	}
	return ""
}

// L is a shorthand for FromContext that also enriches the logger with
// process ID and session ID from the context.
func L(ctx context.Context) Logger {
	l := FromContext(ctx)

	if p := ProcessFromContext(ctx); p != "" {
		l = l.With("process_id", string(p))
	}
	if s := SessionFromContext(ctx); s != "" {
		l = l.With("session_id", string(s))
	}

	return l
}
