package notify

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Digest delivery metrics. The channel label carries the channel name
// ("slack", "discord", "email") so per-channel failure rates can be graphed
// against the circuit breaker state.
var (
	notificationDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dispatched_total",
			Help: "Total number of digest deliveries dispatched",
		},
		[]string{"channel"},
	)

	notificationSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_sent_total",
			Help: "Total number of digest deliveries attempted",
		},
		[]string{"channel", "status"}, // status: success|failure
	)

	notificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Digest delivery duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30}, // 100ms to 30s
		},
		[]string{"channel"},
	)

	circuitBreakerOpenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_circuit_breaker_open_total",
			Help: "Total number of circuit breaker open events",
		},
		[]string{"channel"},
	)

	notificationDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_dropped_total",
			Help: "Total number of dropped digest deliveries",
		},
		[]string{"channel", "reason"}, // reason: pool_full|circuit_open|disabled
	)

	activeNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_active_goroutines",
			Help: "Number of active delivery goroutines",
		},
	)

	channelsEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notification_channels_enabled",
			Help: "Number of enabled delivery channels",
		},
	)
)

// RecordDispatch counts a digest about to be handed to a channel.
func RecordDispatch(channel string) {
	notificationDispatchedTotal.WithLabelValues(channel).Inc()
}

// RecordSuccess counts a completed delivery and observes how long it took.
func RecordSuccess(channel string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(channel, "success").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordFailure counts a failed delivery. The duration is still observed so
// timeouts show up in the latency histogram rather than vanishing.
func RecordFailure(channel string, duration time.Duration) {
	notificationSentTotal.WithLabelValues(channel, "failure").Inc()
	notificationDuration.WithLabelValues(channel).Observe(duration.Seconds())
}

// RecordDropped counts a digest dropped before reaching a channel, for
// example when the worker pool is full or the breaker is open.
func RecordDropped(channel string, reason string) {
	notificationDroppedTotal.WithLabelValues(channel, reason).Inc()
}

// RecordCircuitBreakerOpen counts a breaker tripping open after consecutive
// failures.
func RecordCircuitBreakerOpen(channel string) {
	circuitBreakerOpenTotal.WithLabelValues(channel).Inc()
}

// IncrementActiveGoroutines increments the active delivery goroutine gauge.
func IncrementActiveGoroutines() {
	activeNotifications.Inc()
}

// DecrementActiveGoroutines decrements the active delivery goroutine gauge.
func DecrementActiveGoroutines() {
	activeNotifications.Dec()
}

// SetChannelsEnabled records how many delivery channels are configured,
// set once at service start and again if configuration reloads.
func SetChannelsEnabled(count float64) {
	channelsEnabled.Set(count)
}
