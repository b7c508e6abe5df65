package ratelimit

// NoOpMetrics satisfies MetricsRecorder while recording nothing. Used in
// tests and when metrics collection is disabled.
type NoOpMetrics struct{}

// NewNoOpMetrics returns a recorder that discards everything.
func NewNoOpMetrics() *NoOpMetrics {
	return &NoOpMetrics{}
}

func (m *NoOpMetrics) RecordDecision(decision *RateLimitDecision) {}

func (m *NoOpMetrics) RecordCleanup(removed, remaining int) {}
