package middleware

import (
	"strings"
)

// WhitelistValidator allows an origin only when it exactly matches one of a
// configured list. Origins are normalized (lowercased, trailing slash
// stripped) at construction and again at check time, so comparison is
// case-insensitive.
type WhitelistValidator struct {
	allowedOrigins []string
}

// NewWhitelistValidator builds a validator from the given origins. Empty
// entries are dropped; duplicates are kept as-is.
func NewWhitelistValidator(origins []string) *WhitelistValidator {
	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		origin = strings.ToLower(origin)
		origin = strings.TrimSuffix(origin, "/")
		normalized = append(normalized, origin)
	}

	return &WhitelistValidator{allowedOrigins: normalized}
}

// IsAllowed reports whether origin is on the whitelist. Empty origins are
// never allowed.
func (v *WhitelistValidator) IsAllowed(origin string) bool {
	if origin == "" {
		return false
	}

	origin = strings.ToLower(strings.TrimSpace(origin))
	origin = strings.TrimSuffix(origin, "/")

	for _, allowed := range v.allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// GetAllowedOrigins returns a copy of the normalized whitelist, mainly for
// startup logging.
func (v *WhitelistValidator) GetAllowedOrigins() []string {
	out := make([]string, len(v.allowedOrigins))
	copy(out, v.allowedOrigins)
	return out
}
