package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware for the admin API. The defaults
// are loaded from environment variables by LoadCORSConfig; the Validator and
// Logger fields are injected so tests can swap them out.
type CORSConfig struct {
	// AllowedOrigins is the origin whitelist. Kept for callers that build a
	// config by hand; LoadCORSConfig feeds the same list into Validator.
	AllowedOrigins []string

	// AllowedMethods for preflight responses (CORS_ALLOWED_METHODS).
	AllowedMethods []string

	// AllowedHeaders for preflight responses (CORS_ALLOWED_HEADERS).
	AllowedHeaders []string

	// AllowCredentials must be true for the JWT Bearer flow the admin UI
	// uses.
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds (CORS_MAX_AGE).
	MaxAge int

	// Validator decides whether an Origin is allowed.
	Validator OriginValidator

	// Logger receives policy violations and preflight traces.
	Logger CORSLogger
}

// CORS handles cross-origin requests from the admin frontend. Same-origin
// requests (no Origin header) pass through untouched. Disallowed origins are
// logged and forwarded without CORS headers, which lets the browser block
// the response. Allowed origins are echoed back (required when credentials
// are in play), and preflight OPTIONS requests are answered directly with
// 204 instead of reaching the handler.
func CORS(config CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			if !config.Validator.IsAllowed(origin) {
				if config.Logger != nil {
					config.Logger.Warn("CORS: origin not allowed", map[string]interface{}{
						"origin":      origin,
						"path":        r.URL.Path,
						"method":      r.Method,
						"remote_addr": r.RemoteAddr,
					})
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.AllowedMethods, ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.AllowedHeaders, ", "))
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(config.MaxAge))

				if config.Logger != nil {
					config.Logger.Debug("CORS: preflight request", map[string]interface{}{
						"origin":            origin,
						"requested_method":  r.Header.Get("Access-Control-Request-Method"),
						"requested_headers": r.Header.Get("Access-Control-Request-Headers"),
					})
				}

				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
