package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"rfp-radar/pkg/ratelimit"
	"rfp-radar/pkg/security/csp"
)

// CSPMiddlewareConfig configures the Content-Security-Policy middleware.
type CSPMiddlewareConfig struct {
	// Enabled toggles CSP headers. Off lets the rollout happen gradually
	// via environment variable.
	Enabled bool

	// DefaultPolicy applies when no PathPolicies prefix matches.
	DefaultPolicy *csp.CSPBuilder

	// PathPolicies maps path prefixes to policies. The JSON endpoints get
	// the strict policy; /swagger/ needs its own looser one.
	//
	//	map[string]*csp.CSPBuilder{
	//	    "/swagger/": csp.SwaggerUIPolicy(),
	//	}
	PathPolicies map[string]*csp.CSPBuilder

	// ReportOnly switches to Content-Security-Policy-Report-Only so a new
	// policy can be trialed against the admin frontend without breaking it.
	ReportOnly bool
}

// CSPMiddleware sets a Content-Security-Policy header on every response,
// picking the policy by request path.
type CSPMiddleware struct {
	config  CSPMiddlewareConfig
	metrics ratelimit.MetricsRecorder // 違反レポートを受ける場合のみ使用
}

// NewCSPMiddleware returns a middleware for the given configuration.
// Metrics are optional; inject them with WithMetrics when violation
// reporting is wired up.
func NewCSPMiddleware(config CSPMiddlewareConfig) *CSPMiddleware {
	return &CSPMiddleware{
		config:  config,
		metrics: nil,
	}
}

// Middleware returns the http.Handler wrapper. Policy selection is by
// longest matching path prefix, falling back to DefaultPolicy; when
// neither matches, or the built policy is empty, the response goes out
// without a CSP header.
func (m *CSPMiddleware) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.config.Enabled {
				next.ServeHTTP(w, r)
				return
			}

			policy := m.selectPolicy(r.URL.Path)
			if policy == nil {
				next.ServeHTTP(w, r)
				return
			}

			if m.config.ReportOnly {
				policy = policy.ReportOnly(true)
			}

			cspValue := policy.Build()
			if cspValue == "" {
				next.ServeHTTP(w, r)
				return
			}

			headerName := policy.HeaderName()
			w.Header().Set(headerName, cspValue)

			slog.Debug("CSP header applied",
				slog.String("path", r.URL.Path),
				slog.String("header", headerName),
				slog.String("policy", cspValue),
			)

			next.ServeHTTP(w, r)
		})
	}
}

// selectPolicy picks the policy for a path. The longest matching
// PathPolicies prefix wins; matching is case-sensitive. With no match it
// returns DefaultPolicy, which may be nil.
func (m *CSPMiddleware) selectPolicy(path string) *csp.CSPBuilder {
	longestPrefix := ""
	var matchedPolicy *csp.CSPBuilder

	for prefix, policy := range m.config.PathPolicies {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(longestPrefix) {
			longestPrefix = prefix
			matchedPolicy = policy
		}
	}

	if matchedPolicy != nil {
		return matchedPolicy
	}

	return m.config.DefaultPolicy
}

// WithMetrics injects a metrics recorder for CSP violation counting.
// Only needed when a violation report endpoint is configured.
func (m *CSPMiddleware) WithMetrics(metrics ratelimit.MetricsRecorder) *CSPMiddleware {
	m.metrics = metrics
	return m
}

// ShouldApplyCSP reports whether a path matches any of the given
// patterns. Patterns support exact match, "/prefix/" prefix match, and
// "/prefix/*" wildcard match. Kept for the path-list configuration style;
// Middleware itself selects policies via PathPolicies.
func ShouldApplyCSP(path string, applyToPaths []string) bool {
	for _, pattern := range applyToPaths {
		if pattern == path {
			return true
		}

		if strings.HasSuffix(pattern, "/*") {
			prefix := strings.TrimSuffix(pattern, "*")
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}

		if strings.HasSuffix(pattern, "/") {
			if strings.HasPrefix(path, pattern) {
				return true
			}
		}
	}

	return false
}
