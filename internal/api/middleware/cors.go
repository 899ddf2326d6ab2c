package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sp-hack/server/internal/config"
)

const (
	corsAllowMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsAllowHeaders  = "Content-Type, Accept, X-Request-ID, X-Client-Trpc, X-Dev-Token"
	corsExposeHeaders = "X-Request-ID"
)

// CORS answers browser preflights and decorates responses for allowed
// origins. Outside production every origin is allowed; in production only
// the configured CORS_URLS are.
func CORS(cfg config.CORSConfig, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allowed := cfg.AllowAllOrigins || isOriginAllowed(origin, cfg.AllowedOrigins)
			if allowed {
				h := w.Header()
				h.Add("Vary", "Origin")
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Expose-Headers", corsExposeHeaders)
				h.Set("Access-Control-Max-Age", "86400")
			} else {
				logger.Warn().
					Str("origin", origin).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Msg("CORS request rejected: origin not allowed")
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed does a case-insensitive exact match, ignoring a trailing
// slash on configured entries.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	origin = strings.ToLower(strings.TrimSpace(origin))
	for _, allowed := range allowedOrigins {
		allowed = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(allowed)), "/")
		if allowed == origin {
			return true
		}
	}
	return false
}
