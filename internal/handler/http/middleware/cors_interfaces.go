package middleware

// OriginValidator decides whether an Origin header value may make
// cross-origin requests. WhitelistValidator is the only implementation in
// use; the interface exists so pattern- or IP-based strategies can slot in
// without touching the middleware.
type OriginValidator interface {
	// IsAllowed reports whether the origin is permitted. Empty origins
	// must return false.
	IsAllowed(origin string) bool

	// GetAllowedOrigins returns the configured origins (or patterns) for
	// logging. Implementations should return a copy.
	GetAllowedOrigins() []string
}

// ConfigSource supplies CORS settings. EnvConfigSource reads them from the
// environment; tests provide in-memory sources.
type ConfigSource interface {
	// LoadOrigins returns the allowed origins. At least one origin must be
	// configured; an empty or invalid list is an error, never a default.
	LoadOrigins() ([]string, error)

	// LoadMethods returns the allowed HTTP verbs, applying a default when
	// unconfigured.
	LoadMethods() ([]string, error)

	// LoadHeaders returns the allowed request headers, applying a default
	// when unconfigured.
	LoadHeaders() ([]string, error)

	// LoadMaxAge returns the preflight cache duration in seconds. Zero
	// disables caching; negative values are invalid.
	LoadMaxAge() (int, error)
}

// CORSLogger abstracts the middleware's logging so tests can run silent
// (NoOpLogger) and production can adapt slog (SlogAdapter).
type CORSLogger interface {
	// Info logs configuration at startup.
	Info(msg string, fields map[string]interface{})

	// Warn logs policy violations: rejected origins, malformed headers.
	Warn(msg string, fields map[string]interface{})

	// Debug logs preflight processing detail.
	Debug(msg string, fields map[string]interface{})
}
