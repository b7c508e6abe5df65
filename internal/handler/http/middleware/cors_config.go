package middleware

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// EnvConfigSource loads CORS configuration from environment variables:
//
//	CORS_ALLOWED_ORIGINS=http://localhost:3000,https://radar.example.com
//	CORS_ALLOWED_METHODS=GET,POST,PUT,DELETE
//	CORS_ALLOWED_HEADERS=Content-Type,Authorization
//	CORS_MAX_AGE=86400
//
// Only CORS_ALLOWED_ORIGINS is required; the rest have defaults.
type EnvConfigSource struct{}

// splitCSV splits a comma-separated value, dropping empty entries.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateOrigin checks that an origin is a bare http(s) scheme+host.
func validateOrigin(originStr string) error {
	u, err := url.Parse(originStr)
	if err != nil {
		return fmt.Errorf("invalid origin URL '%s': %w", originStr, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("origin must use http or https scheme: %s", originStr)
	}
	if u.Path != "" && u.Path != "/" {
		return fmt.Errorf("origin must not include path: %s", originStr)
	}
	if u.RawQuery != "" {
		return fmt.Errorf("origin must not include query string: %s", originStr)
	}
	if u.Fragment != "" {
		return fmt.Errorf("origin must not include fragment: %s", originStr)
	}
	if strings.HasSuffix(originStr, "/") {
		return fmt.Errorf("origin must not have trailing slash: %s", originStr)
	}
	return nil
}

// LoadOrigins reads CORS_ALLOWED_ORIGINS. Missing configuration is an error
// rather than an allow-all default.
func (s *EnvConfigSource) LoadOrigins() ([]string, error) {
	originsStr := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if originsStr == "" {
		return nil, fmt.Errorf("CORS_ALLOWED_ORIGINS environment variable is required")
	}

	origins := splitCSV(originsStr)
	for _, origin := range origins {
		if err := validateOrigin(origin); err != nil {
			return nil, err
		}
	}

	if len(origins) == 0 {
		return nil, fmt.Errorf("at least one valid origin must be configured in CORS_ALLOWED_ORIGINS")
	}
	return origins, nil
}

// LoadMethods reads CORS_ALLOWED_METHODS, defaulting to every verb the admin
// API uses. Unknown verbs are rejected.
func (s *EnvConfigSource) LoadMethods() ([]string, error) {
	methodsStr := strings.TrimSpace(os.Getenv("CORS_ALLOWED_METHODS"))
	if methodsStr == "" {
		return []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"}, nil
	}

	validMethods := map[string]bool{
		"GET": true, "POST": true, "PUT": true,
		"DELETE": true, "PATCH": true, "OPTIONS": true,
	}

	methods := make([]string, 0, 6)
	for _, method := range splitCSV(methodsStr) {
		method = strings.ToUpper(method)
		if !validMethods[method] {
			return nil, fmt.Errorf("invalid HTTP method '%s': must be one of GET, POST, PUT, DELETE, PATCH, OPTIONS", method)
		}
		methods = append(methods, method)
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("at least one valid HTTP method must be configured in CORS_ALLOWED_METHODS")
	}
	return methods, nil
}

// LoadHeaders reads CORS_ALLOWED_HEADERS. The default covers the Bearer
// token, JSON bodies, and the request/trace ID headers the server emits.
func (s *EnvConfigSource) LoadHeaders() ([]string, error) {
	headersStr := strings.TrimSpace(os.Getenv("CORS_ALLOWED_HEADERS"))
	if headersStr == "" {
		return []string{"Content-Type", "Authorization", "X-Request-ID", "X-Trace-ID"}, nil
	}

	headers := splitCSV(headersStr)
	if len(headers) == 0 {
		return nil, fmt.Errorf("at least one valid header must be configured in CORS_ALLOWED_HEADERS")
	}
	return headers, nil
}

// LoadMaxAge reads CORS_MAX_AGE in seconds, defaulting to 24 hours. Negative
// values are rejected.
func (s *EnvConfigSource) LoadMaxAge() (int, error) {
	maxAgeStr := strings.TrimSpace(os.Getenv("CORS_MAX_AGE"))
	if maxAgeStr == "" {
		return 86400, nil
	}

	maxAge, err := strconv.Atoi(maxAgeStr)
	if err != nil {
		return 0, fmt.Errorf("invalid CORS_MAX_AGE '%s': must be a valid integer", maxAgeStr)
	}
	if maxAge < 0 {
		return 0, fmt.Errorf("CORS_MAX_AGE must be non-negative, got: %d", maxAge)
	}
	return maxAge, nil
}

// LoadCORSConfig loads the CORS configuration from environment variables.
// The Logger field is left nil; the caller injects it after loading.
func LoadCORSConfig() (*CORSConfig, error) {
	return LoadCORSConfigFromSource(&EnvConfigSource{}, nil)
}

// LoadCORSConfigFromSource builds a CORSConfig from any ConfigSource. The
// env source is the one used in production; tests supply their own.
func LoadCORSConfigFromSource(source ConfigSource, logger CORSLogger) (*CORSConfig, error) {
	origins, err := source.LoadOrigins()
	if err != nil {
		return nil, fmt.Errorf("failed to load allowed origins: %w", err)
	}

	methods, err := source.LoadMethods()
	if err != nil {
		return nil, fmt.Errorf("failed to load allowed methods: %w", err)
	}

	headers, err := source.LoadHeaders()
	if err != nil {
		return nil, fmt.Errorf("failed to load allowed headers: %w", err)
	}

	maxAge, err := source.LoadMaxAge()
	if err != nil {
		return nil, fmt.Errorf("failed to load max age: %w", err)
	}

	return &CORSConfig{
		AllowedOrigins:   origins,
		AllowedMethods:   methods,
		AllowedHeaders:   headers,
		AllowCredentials: true, // required for the JWT Bearer flow
		MaxAge:           maxAge,
		Validator:        NewWhitelistValidator(origins),
		Logger:           logger,
	}, nil
}
