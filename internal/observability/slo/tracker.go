package slo

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DefaultWindow is the sliding window over which SLI values are computed.
const DefaultWindow = 5 * time.Minute

// DefaultFlushInterval is how often the tracker pushes SLI values to the gauges.
const DefaultFlushInterval = time.Minute

// maxSamples bounds the number of retained samples so a burst of traffic
// cannot grow the window without limit.
const maxSamples = 100000

type sample struct {
	at       time.Time
	status   int
	duration time.Duration
}

// Tracker accumulates request outcomes over a sliding window and derives
// the SLI values (availability, error rate, latency percentiles) from them.
// The HTTP metrics middleware feeds it one sample per request; a background
// goroutine calls Flush periodically to publish the values to the SLO gauges.
type Tracker struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	samples []sample
}

// NewTracker creates a tracker with the given sliding window.
// A non-positive window falls back to DefaultWindow.
func NewTracker(window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		window: window,
		now:    time.Now,
	}
}

// Record adds one request outcome to the window.
func (t *Tracker) Record(status int, duration time.Duration) {
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	t.pruneLocked(now)
	if len(t.samples) >= maxSamples {
		// 窓より古いものが無くても上限を超えたら最古を落とす
		t.samples = t.samples[1:]
	}
	t.samples = append(t.samples, sample{at: now, status: status, duration: duration})
}

// Flush computes the current SLI values and publishes them to the gauges.
// With no samples in the window it leaves the gauges untouched, because
// the absence of traffic says nothing about service health.
func (t *Tracker) Flush() {
	t.mu.Lock()
	now := t.now()
	t.pruneLocked(now)

	total := len(t.samples)
	if total == 0 {
		t.mu.Unlock()
		return
	}

	errors := 0
	durations := make([]float64, total)
	for i, s := range t.samples {
		if s.status >= 500 {
			errors++
		}
		durations[i] = s.duration.Seconds()
	}
	t.mu.Unlock()

	sort.Float64s(durations)

	UpdateAvailability(float64(total-errors) / float64(total))
	UpdateErrorRate(float64(errors) / float64(total))
	UpdateLatencyP95(percentile(durations, 0.95))
	UpdateLatencyP99(percentile(durations, 0.99))
}

// Run flushes at the given interval until the context is cancelled.
// A non-positive interval falls back to DefaultFlushInterval.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Flush()
		}
	}
}

// Len returns the number of samples currently in the window.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(t.now())
	return len(t.samples)
}

// pruneLocked drops samples older than the window. Caller holds t.mu.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(t.samples) && t.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.samples = t.samples[i:]
	}
}

// percentile returns the nearest-rank percentile of sorted values.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(float64(len(sorted))*q+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
