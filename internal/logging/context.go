package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// RequestIDKey is where the request id middleware stores the id. Fiber locals
// are reachable through the fasthttp request context under the same key.
const RequestIDKey = "request_id"

type contextKey string

const requestIDCtxKey contextKey = RequestIDKey

// ContextWithRequestID attaches id to ctx for code running outside a fiber handler.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey, id)
}

// RequestIDFromContext returns the request id carried by ctx, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDCtxKey).(string); ok {
		return id
	}
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with the request id found in ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if id := RequestIDFromContext(ctx); id != "" {
		l = l.With().Str("request_id", id).Logger()
	}
	return &l
}
