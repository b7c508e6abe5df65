package pagination

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Listing pagination metrics. Deep page numbers force large OFFSET scans, so
// requests are bucketed by page range to make that cost visible.
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_pagination_requests_total",
			Help: "Total number of pagination requests",
		},
		[]string{"status", "page_range"},
	)

	DurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rfp_pagination_duration_seconds",
			Help:    "Request duration distribution",
			Buckets: []float64{0.01, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0},
		},
		[]string{"operation"}, // handler|service|repository
	)

	// TotalCount mirrors the latest COUNT query result.
	TotalCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rfp_total_count",
			Help: "Current total number of processed opportunities",
		},
	)

	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rfp_pagination_errors_total",
			Help: "Total number of pagination errors",
		},
		[]string{"type"}, // validation|database|timeout
	)
)

// RecordRequest counts one pagination request under its status code and
// page range bucket.
func RecordRequest(statusCode int, page int) {
	RequestsTotal.WithLabelValues(strconv.Itoa(statusCode), getPageRangeBucket(page)).Inc()
}

// RecordDuration observes an operation duration in seconds.
func RecordDuration(operation string, duration float64) {
	DurationSeconds.WithLabelValues(operation).Observe(duration)
}

// UpdateTotalCount sets the opportunity count gauge.
func UpdateTotalCount(count int64) {
	TotalCount.Set(float64(count))
}

// RecordError counts an error. errorType is one of "validation",
// "database", or "timeout".
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

func getPageRangeBucket(page int) string {
	switch {
	case page <= 10:
		return "1-10"
	case page <= 50:
		return "11-50"
	case page <= 100:
		return "51-100"
	default:
		return "100+"
	}
}
