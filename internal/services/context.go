package services

import "context"

type contextKey string

const (
	queueIDKey   contextKey = "queue_id"
	guestIDKey   contextKey = "guest_id"
	requestIDKey contextKey = "request_id"
)

// WithQueueID annotates context with the enrichment queue identifier.
func WithQueueID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, queueIDKey, id)
}

// QueueIDFromContext extracts the enrichment queue identifier if present.
func QueueIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(queueIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithGuestID annotates context with the guest being enriched.
func WithGuestID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, guestIDKey, id)
}

// GuestIDFromContext extracts the guest identifier if present.
func GuestIDFromContext(ctx context.Context) (int64, bool) {
	switch v := ctx.Value(guestIDKey).(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
