// Package http provides HTTP handlers and middleware for the admin API.
// It includes request handlers for discovered opportunities, website settings,
// schedule and email settings, health check endpoints, authentication, and
// various middleware components.
package http

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// HealthResponse is the JSON body returned by /health.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is the result of one health check item.
type CheckStatus struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// RateLimiterHealthInfo reports the state of the IP rate limiter.
type RateLimiterHealthInfo struct {
	ActiveKeys int `json:"active_keys"` // client IPs currently tracked
}

// KeyTracker reports how many keys a rate limiter is tracking.
// *ratelimit.SlidingWindowLimiter satisfies this.
type KeyTracker interface {
	TrackedKeys() int
}

// CSPHealthInfo reports the Content-Security-Policy configuration.
type CSPHealthInfo struct {
	Enabled    bool `json:"enabled"`
	ReportOnly bool `json:"report_only"`
}

// HealthHandler serves /health. It pings the database, inspects the
// connection pool, and reports rate limiter and CSP state so an operator
// can read the whole posture from one endpoint.
type HealthHandler struct {
	DB      *sql.DB
	Version string

	// Rate limiter state (optional)
	IPRateLimiter      KeyTracker
	RateLimiterEnabled bool

	// CSP state (optional)
	CSPEnabled    bool
	CSPReportOnly bool
}

// ServeHTTP runs all checks and returns 200 when every check passes,
// 503 otherwise. A "degraded" check is a warning and does not fail
// the endpoint.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]CheckStatus)
	allHealthy := true

	// データベース接続チェック
	if h.DB != nil {
		dbCheck := h.checkDatabase(ctx)
		checks["database"] = dbCheck
		if dbCheck.Status == "unhealthy" {
			allHealthy = false
		}
	} else {
		checks["database"] = CheckStatus{
			Status:  "unhealthy",
			Message: "not configured",
		}
		allHealthy = false
	}

	// レート制限チェック
	if h.RateLimiterEnabled {
		checks["rate_limiter"] = h.checkRateLimiter()
	}

	// CSPチェック
	if h.CSPEnabled {
		checks["csp"] = h.checkCSP()
	}

	status := "healthy"
	statusCode := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("health: failed to encode response: %v", err)
	}
}

// checkDatabase pings the database and inspects pool utilization.
func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if err := h.DB.PingContext(ctx); err != nil {
		return CheckStatus{
			Status:  "unhealthy",
			Message: err.Error(),
		}
	}

	stats := h.DB.Stats()
	details := map[string]interface{}{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
		"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		"max_idle_closed":      stats.MaxIdleClosed,
		"max_idle_time_closed": stats.MaxIdleTimeClosed,
		"max_lifetime_closed":  stats.MaxLifetimeClosed,
	}

	// MaxOpenConnections=0 はプール未設定（無制限）なのでゼロ除算を避ける
	if stats.MaxOpenConnections == 0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool max connections not configured",
			Details: details,
		}
	}

	utilizationPercent := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilizationPercent

	if utilizationPercent >= 80.0 {
		return CheckStatus{
			Status:  "degraded",
			Message: "connection pool utilization above 80%",
			Details: details,
		}
	}

	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// checkRateLimiter reports the state of the IP rate limiter.
// The limiter fails open, so its state is informational and never marks
// the service unhealthy.
func (h *HealthHandler) checkRateLimiter() CheckStatus {
	details := make(map[string]interface{})

	if h.IPRateLimiter != nil {
		details["ip"] = RateLimiterHealthInfo{
			ActiveKeys: h.IPRateLimiter.TrackedKeys(),
		}
	}

	return CheckStatus{
		Status:  "healthy",
		Details: details,
	}
}

// checkCSP reports the CSP middleware configuration.
func (h *HealthHandler) checkCSP() CheckStatus {
	return CheckStatus{
		Status: "healthy",
		Details: map[string]interface{}{
			"config": CSPHealthInfo{
				Enabled:    h.CSPEnabled,
				ReportOnly: h.CSPReportOnly,
			},
		},
	}
}

// Pinger verifies a database connection. Both *sql.DB and
// *circuitbreaker.DBCircuitBreaker satisfy this, and the readiness probe
// goes through the breaker so a dead database fails fast instead of
// holding every probe for the full ping timeout.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// ReadyHandler serves the Kubernetes readiness probe. Ready means the
// database answers a ping within two seconds.
type ReadyHandler struct {
	DB Pinger
}

// ServeHTTP returns 200 when ready, 503 otherwise.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil {
		http.Error(w, "database not configured", http.StatusServiceUnavailable)
		return
	}

	if err := h.DB.PingContext(ctx); err != nil {
		http.Error(w, "database not ready: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ready")); err != nil {
		log.Printf("ready: failed to write response: %v", err)
	}
}

// LiveHandler serves the Kubernetes liveness probe. Responding at all is
// the check.
type LiveHandler struct{}

// ServeHTTP always returns 200 while the process can serve requests.
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("alive")); err != nil {
		log.Printf("alive: failed to write response: %v", err)
	}
}
