package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyPackID    contextKey = "pack_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithPackID tags work done on behalf of a pack.
func WithPackID(ctx context.Context, packID string) context.Context {
	return context.WithValue(ctx, ContextKeyPackID, packID)
}

// PackIDFromContext extracts the pack ID from context
func PackIDFromContext(ctx context.Context) string {
	if packID, ok := ctx.Value(ContextKeyPackID).(string); ok {
		return packID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout; a non-positive
// timeout returns a cancelable context without a deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
