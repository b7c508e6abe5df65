package auth

import "strings"

// PublicEndpoints lists the paths reachable without a token: the health
// probes the orchestrator hits, the Prometheus scrape target, the Swagger
// UI, and /auth/token itself (a token cannot be required to mint one).
// Everything else, including the opportunity and website endpoints, needs
// a valid JWT.
var PublicEndpoints = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/swagger/",
	"/auth/token",
}

// IsPublicEndpoint reports whether a path may skip authentication.
//
// Entries ending in '/' match by prefix, so /swagger/ covers
// /swagger/index.html. Entries without one match exactly, or with a
// trailing slash, or with query parameters. That keeps /health from
// covering /health/detail or /healthcheck.
//
//	IsPublicEndpoint("/health")             // true
//	IsPublicEndpoint("/health?format=json") // true
//	IsPublicEndpoint("/health/detail")      // false
//	IsPublicEndpoint("/rfps")               // false
func IsPublicEndpoint(path string) bool {
	for _, endpoint := range PublicEndpoints {
		if strings.HasSuffix(endpoint, "/") {
			if strings.HasPrefix(path, endpoint) {
				return true
			}
			continue
		}

		if path == endpoint {
			return true
		}
		if path == endpoint+"/" {
			return true
		}
		if strings.HasPrefix(path, endpoint+"?") {
			return true
		}
	}
	return false
}
