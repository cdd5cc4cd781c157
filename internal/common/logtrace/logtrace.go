// Package logtrace provides logging setup and request tracing helpers.
package logtrace

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with Unix timestamp format,
// writing structured logs to stderr.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

type requestIdContextKey string

// RequestIdKey is the context key under which the request logger middleware
// stores the request identifier.
const RequestIdKey = requestIdContextKey("requestId")

// WithRequestId stores a request identifier in the context.
func WithRequestId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIdKey, id)
}

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or carries no request ID.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(RequestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}
