// Package pagination provides offset-based pagination shared by the
// opportunity and website list endpoints.
package pagination

import (
	"os"
	"strconv"
)

// Config holds the page defaults and the upper bound on page size.
type Config struct {
	DefaultPage  int // Default page number (typically 1)
	DefaultLimit int // Default items per page (typically 100)
	MaxLimit     int // Maximum allowed items per page (typically 500)
}

// DefaultConfig returns page=1, limit=100, max=500.
func DefaultConfig() Config {
	return Config{
		DefaultPage:  1,
		DefaultLimit: 100,
		MaxLimit:     500,
	}
}

// LoadFromEnv reads PAGINATION_DEFAULT_PAGE, PAGINATION_DEFAULT_LIMIT and
// PAGINATION_MAX_LIMIT, falling back to the DefaultConfig values for any
// that are unset or unparseable.
func LoadFromEnv() Config {
	return Config{
		DefaultPage:  getEnvAsInt("PAGINATION_DEFAULT_PAGE", 1),
		DefaultLimit: getEnvAsInt("PAGINATION_DEFAULT_LIMIT", 100),
		MaxLimit:     getEnvAsInt("PAGINATION_MAX_LIMIT", 500),
	}
}

func getEnvAsInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}
