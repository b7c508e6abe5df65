package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rfp-radar/internal/usecase/notify"
)

// MetricsServer serves the worker's operational HTTP endpoints:
//   - /healthz: Liveness probe (always returns 200 OK)
//   - /readyz: Readiness probe (returns 200 if ready, 503 if not)
//   - /metrics: Prometheus metrics endpoint
//   - /health/channels: Delivery channel health with circuit breaker state
//
// The server supports graceful shutdown via context cancellation.
//
// Example usage:
//
//	server := NewMetricsServer(":9091", logger, notifyService)
//	go func() {
//	    if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
//	        logger.Error("metrics server failed", slog.Any("error", err))
//	    }
//	}()
//	server.SetReady(true)  // Mark as ready after initialization
type MetricsServer struct {
	addr    string
	logger  *slog.Logger
	notify  notify.Service
	isReady *atomic.Bool
	server  *http.Server
}

// healthResponse is the JSON response format for probe endpoints.
type healthResponse struct {
	Status string `json:"status"`
}

// channelHealthResponse is the JSON response for /health/channels.
type channelHealthResponse struct {
	Healthy  bool            `json:"healthy"`
	Channels []channelStatus `json:"channels"`
}

// channelStatus reports the state of a single delivery channel.
type channelStatus struct {
	Name               string     `json:"name"`
	Enabled            bool       `json:"enabled"`
	CircuitBreakerOpen bool       `json:"circuit_breaker_open"`
	DisabledUntil      *time.Time `json:"disabled_until,omitempty"`
}

// NewMetricsServer creates the operational HTTP server.
//
// Parameters:
//   - addr: Server listen address (e.g., ":9091", "localhost:9091")
//   - logger: Structured logger for logging server events
//   - notifyService: Digest dispatch service for channel health checks (can be nil)
//
// Returns:
//   - *MetricsServer: Initialized server (not started yet)
//
// Example:
//
//	server := NewMetricsServer(":9091", logger, notifyService)
//	// Call Start() to begin serving requests
func NewMetricsServer(addr string, logger *slog.Logger, notifyService notify.Service) *MetricsServer {
	isReady := &atomic.Bool{}
	isReady.Store(false) // Start as not ready

	return &MetricsServer{
		addr:    addr,
		logger:  logger,
		notify:  notifyService,
		isReady: isReady,
	}
}

// Start starts the operational HTTP server.
// This is a blocking call that runs until the context is cancelled or an error occurs.
// It supports graceful shutdown with a 5-second timeout.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown
//
// Returns:
//   - error: http.ErrServerClosed on graceful shutdown, other errors on failure
//
// Example:
//
//	server := NewMetricsServer(":9091", logger, notifyService)
//	go func() {
//	    if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
//	        logger.Error("metrics server failed", slog.Any("error", err))
//	    }
//	}()
func (s *MetricsServer) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleLiveness)
	mux.HandleFunc("/readyz", s.handleReadiness)
	mux.HandleFunc("/health/channels", s.handleChannelHealth)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("metrics server starting", slog.String("addr", s.addr))
		if err := s.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	// Wait for context cancellation or server error
	select {
	case <-ctx.Done():
		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("metrics server shutting down")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("metrics server shutdown failed", slog.Any("error", err))
			return err
		}
		s.logger.Info("metrics server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if err == http.ErrServerClosed {
			return err
		}
		s.logger.Error("metrics server failed", slog.Any("error", err))
		return err
	}
}

// SetReady sets the readiness state of the server.
// This affects the response of the /readyz endpoint.
//
// Parameters:
//   - ready: true to mark as ready, false to mark as not ready
//
// Example:
//
//	// After initialization is complete
//	server.SetReady(true)
//
//	// Before shutdown
//	server.SetReady(false)
func (s *MetricsServer) SetReady(ready bool) {
	s.isReady.Store(ready)
	s.logger.Info("metrics server readiness changed", slog.Bool("ready", ready))
}

// handleLiveness handles the /healthz endpoint (liveness probe).
// Always returns 200 OK with {"status":"ok"}.
//
// This endpoint is used by Kubernetes liveness probes to determine if the
// container should be restarted. It always returns success unless the server
// is completely dead (in which case it won't respond at all).
func (s *MetricsServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok"}); err != nil {
		s.logger.Error("failed to encode liveness response", slog.Any("error", err))
	}
}

// handleReadiness handles the /readyz endpoint (readiness probe).
// Returns 200 OK if ready, 503 Service Unavailable if not ready.
//
// This endpoint is used by Kubernetes readiness probes to determine if the
// container should receive traffic. It returns success only when the worker
// is fully initialized and its tick loop is running.
func (s *MetricsServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.isReady.Load() {
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(healthResponse{Status: "ok"}); err != nil {
			s.logger.Error("failed to encode readiness response", slog.Any("error", err))
		}
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		if err := json.NewEncoder(w).Encode(healthResponse{Status: "not ready"}); err != nil {
			s.logger.Error("failed to encode not ready response", slog.Any("error", err))
		}
	}
}

// handleChannelHealth handles /health/channels.
// Returns 200 OK if all enabled channels are healthy (circuit breakers closed),
// 503 Service Unavailable if any enabled channel's circuit breaker is open.
func (s *MetricsServer) handleChannelHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if s.notify == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error": "dispatch service not initialized",
		})
		return
	}

	statuses := s.notify.GetChannelHealth()

	channels := make([]channelStatus, 0, len(statuses))
	healthy := true
	for _, status := range statuses {
		channels = append(channels, channelStatus{
			Name:               status.Name,
			Enabled:            status.Enabled,
			CircuitBreakerOpen: status.CircuitBreakerOpen,
			DisabledUntil:      status.DisabledUntil,
		})

		// 有効なチャネルのブレーカーが開いていたら unhealthy
		if status.Enabled && status.CircuitBreakerOpen {
			healthy = false
		}
	}

	statusCode := http.StatusOK
	if !healthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(channelHealthResponse{
		Healthy:  healthy,
		Channels: channels,
	}); err != nil {
		s.logger.Error("failed to encode channel health response", slog.Any("error", err))
	}
}
