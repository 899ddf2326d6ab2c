package middleware

import (
	"net/http"
)

// DefaultMaxBodySize bounds JSON bodies. The largest legitimate payload is a
// full schedule replacement.
const DefaultMaxBodySize int64 = 1 << 20

// RequestSize wraps the body with http.MaxBytesReader. Decoding an oversized
// body fails, which the endpoint adapters report as bad input.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
