package notify

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"rfp-radar/internal/infra/notifier"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestIDKey contextKey = "request_id"

// Circuit breaker constants
const (
	circuitBreakerThreshold = 5                // Number of consecutive failures before opening
	circuitBreakerTimeout   = 5 * time.Minute  // Duration to keep circuit breaker open
	workerPoolTimeout       = 5 * time.Second  // Timeout for acquiring worker slot
	notificationTimeout     = 60 * time.Second // Timeout for one digest delivery
)

// Service handles digest dispatching to multiple channels.
// It orchestrates deliveries asynchronously without blocking the caller.
type Service interface {
	// NotifyRun dispatches the digest of a finished discovery run to all
	// enabled channels whose audience is in the given set.
	//
	// Main channels receive the digest without the run log; debug channels
	// receive it as passed in.
	//
	// This method is non-blocking and returns immediately. Deliveries run
	// in background goroutines, and failures are logged but do not
	// propagate errors to the caller. Call Shutdown to wait for in-flight
	// deliveries (the scrape CLI does this before exiting).
	//
	// Parameters:
	//   - ctx: Context for cancellation (used for logging, not propagated to goroutines)
	//   - digest: The run digest (must not be nil)
	//   - audiences: Which audiences to deliver to; empty means deliver nothing
	//
	// Returns:
	//   - nil (always succeeds, errors are handled internally)
	NotifyRun(ctx context.Context, digest *notifier.Digest, audiences ...Audience) error

	// GetChannelHealth returns the health status of all channels.
	//
	// This method provides visibility into circuit breaker states for monitoring
	// and health check endpoints. The returned data is safe for concurrent access.
	//
	// Returns:
	//   - []ChannelHealthStatus: Health status for each channel
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown waits for in-flight deliveries to finish, bounded by ctx.
	// On timeout the remaining deliveries are canceled.
	//
	// Parameters:
	//   - ctx: Context with timeout for shutdown (recommended: 30s)
	//
	// Returns:
	//   - error: Non-nil if shutdown timeout exceeded
	Shutdown(ctx context.Context) error
}

// ChannelHealthStatus represents the health status of a delivery channel.
type ChannelHealthStatus struct {
	Name               string     // Channel name (e.g., "slack", "email-debug")
	Enabled            bool       // Whether the channel is enabled
	CircuitBreakerOpen bool       // Whether the circuit breaker is currently open
	DisabledUntil      *time.Time // Time until circuit breaker remains open (nil if closed)
}

// service is the concrete implementation of Service interface.
type service struct {
	channels       []Channel                 // Delivery channels (email, Slack, Discord)
	workerPool     chan struct{}             // Semaphore for limiting concurrent deliveries
	channelHealth  map[string]*channelHealth // Circuit breaker state per channel
	healthMu       sync.RWMutex              // Protects channelHealth map
	wg             sync.WaitGroup            // Track in-flight deliveries
	shutdownCtx    context.Context           // Context for signaling shutdown
	shutdownCancel context.CancelFunc        // Cancel function for shutdown
}

// channelHealth tracks circuit breaker state for a channel
type channelHealth struct {
	consecutiveFailures int        // Number of consecutive failures
	disabledUntil       time.Time  // Time until circuit breaker is open
	mu                  sync.Mutex // Protects this struct's fields
}

// NewService creates a new digest dispatch service with the given channels.
//
// Parameters:
//   - channels: List of delivery channels (email, Slack, Discord)
//   - maxConcurrent: Maximum concurrent deliveries (recommended: 10-20)
//
// Returns:
//   - Service: Configured dispatch service
func NewService(channels []Channel, maxConcurrent int) Service {
	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	svc := &service{
		channels:       channels,
		workerPool:     make(chan struct{}, maxConcurrent),
		channelHealth:  make(map[string]*channelHealth),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	// Initialize circuit breaker state for each channel
	for _, ch := range channels {
		svc.channelHealth[ch.Name()] = &channelHealth{}
	}

	return svc
}

// NotifyRun implements Service.NotifyRun.
func (s *service) NotifyRun(ctx context.Context, digest *notifier.Digest, audiences ...Audience) error {
	// Validate inputs before spawning goroutines
	if digest == nil {
		slog.Warn("Nil digest passed to NotifyRun")
		return nil // Don't spawn goroutines for invalid inputs
	}
	if len(audiences) == 0 {
		slog.Debug("NotifyRun called with no audiences")
		return nil
	}

	wanted := make(map[Audience]bool, len(audiences))
	for _, a := range audiences {
		wanted[a] = true
	}

	// Generate unique request ID for tracing
	// Try to inherit from parent context first
	requestID, ok := ctx.Value(requestIDKey).(string)
	if !ok || requestID == "" {
		requestID = uuid.New().String()
	}

	// Count enabled channels
	enabledCount := 0
	for _, ch := range s.channels {
		if ch.IsEnabled() {
			enabledCount++
		}
	}
	SetChannelsEnabled(float64(enabledCount))

	// メインの宛先にはランログを見せない
	mainDigest := *digest
	mainDigest.RunLog = nil

	dispatched := 0
	for _, ch := range s.channels {
		if !ch.IsEnabled() || !wanted[ch.Audience()] {
			continue
		}

		channel := ch // Capture for goroutine
		d := digest
		if channel.Audience() == AudienceMain {
			d = &mainDigest
		}

		dispatched++
		s.wg.Add(1)
		go s.notifyChannel(requestID, channel, d)
	}

	if dispatched == 0 {
		slog.Debug("No channels matched the digest audiences",
			slog.String("request_id", requestID),
			slog.Int("enabled_channels", enabledCount))
		return nil
	}

	slog.Info("Dispatching run digest",
		slog.String("request_id", requestID),
		slog.Int("new_count", digest.NewCount),
		slog.Int("sites", digest.Sites),
		slog.Int("channels", dispatched))

	return nil
}

// notifyChannel delivers the digest to a single channel in a goroutine.
func (s *service) notifyChannel(requestID string, channel Channel, digest *notifier.Digest) {
	defer s.wg.Done()

	// Track active goroutines
	IncrementActiveGoroutines()
	defer DecrementActiveGoroutines()

	// Panic recovery
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Panic in delivery channel",
				slog.String("request_id", requestID),
				slog.String("channel", channel.Name()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	// Acquire worker slot (with timeout to prevent blocking)
	select {
	case s.workerPool <- struct{}{}:
		defer func() { <-s.workerPool }() // Release slot
	case <-time.After(workerPoolTimeout):
		slog.Warn("Digest delivery dropped: worker pool full",
			slog.String("request_id", requestID),
			slog.String("channel", channel.Name()))
		RecordDropped(channel.Name(), "pool_full")
		return
	}

	// Check circuit breaker
	health := s.getChannelHealth(channel.Name())
	health.mu.Lock()
	if time.Now().Before(health.disabledUntil) {
		slog.Warn("Channel temporarily disabled due to circuit breaker",
			slog.String("request_id", requestID),
			slog.String("channel", channel.Name()),
			slog.Time("disabled_until", health.disabledUntil))
		health.mu.Unlock()
		RecordDropped(channel.Name(), "circuit_open")
		return
	}
	health.mu.Unlock()

	// Create context with timeout (use shutdown context instead of Background)
	ctx, cancel := context.WithTimeout(s.shutdownCtx, notificationTimeout)
	defer cancel()

	// Add request_id to context for tracing
	ctx = context.WithValue(ctx, requestIDKey, requestID)

	// Record start time for metrics
	startTime := time.Now()
	RecordDispatch(channel.Name())

	// Deliver the digest
	err := channel.Send(ctx, digest)
	duration := time.Since(startTime)

	// Update circuit breaker state
	health.mu.Lock()
	if err != nil {
		health.consecutiveFailures++
		if health.consecutiveFailures >= circuitBreakerThreshold {
			health.disabledUntil = time.Now().Add(circuitBreakerTimeout)
			slog.Error("Circuit breaker opened for channel",
				slog.String("request_id", requestID),
				slog.String("channel", channel.Name()),
				slog.Int("consecutive_failures", health.consecutiveFailures))
			RecordCircuitBreakerOpen(channel.Name())
		}
	} else {
		health.consecutiveFailures = 0 // Reset on success
	}
	health.mu.Unlock()

	// Record metrics and log result
	if err != nil {
		RecordFailure(channel.Name(), duration)
		slog.Warn("Channel digest delivery failed",
			slog.String("request_id", requestID),
			slog.String("channel", channel.Name()),
			slog.Int("new_count", digest.NewCount),
			slog.Duration("send_duration", duration),
			slog.Any("error", err))
	} else {
		RecordSuccess(channel.Name(), duration)
		slog.Info("Channel digest delivered",
			slog.String("request_id", requestID),
			slog.String("channel", channel.Name()),
			slog.Int("new_count", digest.NewCount),
			slog.Duration("send_duration", duration))
	}
}

// getChannelHealth returns circuit breaker state for a channel
func (s *service) getChannelHealth(channelName string) *channelHealth {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.channelHealth[channelName]
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()

	statuses := make([]ChannelHealthStatus, 0, len(s.channels))

	for _, ch := range s.channels {
		health := s.channelHealth[ch.Name()]

		// Lock individual channel health for consistent read
		health.mu.Lock()

		var disabledUntil *time.Time
		circuitBreakerOpen := false

		// Check if circuit breaker is currently open
		if time.Now().Before(health.disabledUntil) {
			circuitBreakerOpen = true
			disabledUntil = &health.disabledUntil
		}

		health.mu.Unlock()

		statuses = append(statuses, ChannelHealthStatus{
			Name:               ch.Name(),
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: circuitBreakerOpen,
			DisabledUntil:      disabledUntil,
		})
	}

	return statuses
}

// Shutdown implements Service.Shutdown.
func (s *service) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down digest dispatch service")

	// Wait for in-flight deliveries with timeout. Cancellation happens only
	// on timeout so a CLI run can flush its digest before exiting.
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.shutdownCancel()
		slog.Info("Digest dispatch service shutdown complete")
		return nil
	case <-ctx.Done():
		s.shutdownCancel()
		slog.Warn("Digest dispatch service shutdown timeout")
		return ctx.Err()
	}
}
