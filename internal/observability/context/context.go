package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type firmIDKey struct{}

// WithRequestID stores the request correlation ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, strings.TrimSpace(requestID))
}

// RequestIDFromContext returns the request correlation ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(requestIDKey{}).(string); ok {
		return value
	}
	return ""
}

// WithFirmID stores the firm identifier for log correlation.
func WithFirmID(ctx context.Context, firmID string) context.Context {
	return context.WithValue(ctx, firmIDKey{}, strings.TrimSpace(firmID))
}

// FirmIDFromContext returns the firm identifier for log correlation, or "".
func FirmIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(firmIDKey{}).(string); ok {
		return value
	}
	return ""
}
