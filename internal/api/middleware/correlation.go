package middleware

import (
	"context"
	"net/http"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// RequestIDKey is the context key for the request correlation ID
	RequestIDKey contextKey = "request_id"

	RequestIDHeader = "X-Request-ID"

	maxRequestIDLength = 128
)

// RequestID assigns every request a fresh correlation ID, echoes it in the
// X-Request-ID response header and attaches a logger carrying it. An inbound
// X-Request-ID is never reused; when it is safe to log it is recorded as
// upstream_request_id.
func RequestID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()
			w.Header().Set(RequestIDHeader, requestID)

			logCtx := logger.With().Str("request_id", requestID)
			if upstream := r.Header.Get(RequestIDHeader); validRequestID(upstream) {
				logCtx = logCtx.Str("upstream_request_id", upstream)
			}
			reqLogger := logCtx.Logger()
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = reqLogger.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validRequestID accepts proxy supplied IDs that are short and printable so
// they are safe to log.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		if r > unicode.MaxASCII || !unicode.IsPrint(r) || r == ' ' {
			return false
		}
	}
	return true
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// LoggerFromContext returns the request logger, or a no-op logger outside a
// request.
func LoggerFromContext(ctx context.Context) *zerolog.Logger {
	logger := zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		noop := zerolog.Nop()
		return &noop
	}
	return logger
}
