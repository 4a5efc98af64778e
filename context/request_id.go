// Package context provides context utilities for request tracking
package context

import (
	stdctx "context"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey int

const (
	// RequestIDKey is the context key for request IDs
	RequestIDKey contextKey = iota
	// SenderKey holds the address of the agent that sent the message being handled
	SenderKey
	// MessageIDKey holds the msg_id of the chat message being handled
	MessageIDKey
)

// NewRequestID generates a new unique request ID
func NewRequestID() string {
	return uuid.New().String()
}

// WithRequestID adds a request ID to the context
func WithRequestID(parent stdctx.Context, requestID string) stdctx.Context {
	return stdctx.WithValue(parent, RequestIDKey, requestID)
}

// RequestIDFromContext extracts the request ID from the context
func RequestIDFromContext(ctx stdctx.Context) string {
	return stringValue(ctx, RequestIDKey)
}

func WithSender(parent stdctx.Context, sender string) stdctx.Context {
	return stdctx.WithValue(parent, SenderKey, sender)
}

func SenderFromContext(ctx stdctx.Context) string {
	return stringValue(ctx, SenderKey)
}

func WithMessageID(parent stdctx.Context, msgID string) stdctx.Context {
	return stdctx.WithValue(parent, MessageIDKey, msgID)
}

func MessageIDFromContext(ctx stdctx.Context) string {
	return stringValue(ctx, MessageIDKey)
}

// EnsureRequestID returns ctx unchanged if it already carries a request ID,
// otherwise a child context with a fresh one.
func EnsureRequestID(ctx stdctx.Context) stdctx.Context {
	if RequestIDFromContext(ctx) != "" {
		return ctx
	}
	return WithRequestID(ctx, NewRequestID())
}

func stringValue(ctx stdctx.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
