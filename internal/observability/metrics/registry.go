// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestSize measures HTTP request body size in bytes
	HTTPRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of active HTTP connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Business metrics track the discovery pipeline
var (
	// RfpsTotal tracks total number of processed RFPs in the database
	RfpsTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rfps_total",
			Help: "Total number of processed RFPs in the database",
		},
	)

	// WebsitesTotal tracks total number of configured websites
	WebsitesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websites_total",
			Help: "Total number of configured websites",
		},
	)

	// ItemsDiscoveredTotal counts candidate items surfaced per site listing
	ItemsDiscoveredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_discovered_total",
			Help: "Total number of candidate items discovered on listings",
		},
		[]string{"site"},
	)

	// ItemsProcessedTotal counts pipeline outcomes per item
	ItemsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "items_processed_total",
			Help: "Total number of candidate items by pipeline outcome",
		},
		[]string{"outcome"}, // outcome: saved, out_of_scope, expired, known, failed
	)

	// SiteCrawlDuration measures time to crawl one site
	SiteCrawlDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "site_crawl_duration_seconds",
			Help:    "Time taken to crawl one configured website",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"site_id"},
	)

	// SiteCrawlErrors counts errors during site crawling
	SiteCrawlErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "site_crawl_errors_total",
			Help: "Total number of site crawl errors",
		},
		[]string{"site_id", "error_type"},
	)

	// NavigationHops measures how many hops it took to reach a final document
	NavigationHops = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "navigation_hops",
			Help:    "Number of navigation hops from listing to final document",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)

	// PageFetchAttemptsTotal counts page fetch attempts by result
	PageFetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "page_fetch_attempts_total",
			Help: "Total number of page fetch attempts",
		},
		[]string{"result"}, // result: success, failure
	)

	// PageFetchDuration measures time to fetch a page or document
	PageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "page_fetch_duration_seconds",
			Help:    "Time taken to fetch a page or document",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8},
		},
	)

	// PageFetchSize measures fetched body size in bytes
	PageFetchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "page_fetch_size_bytes",
			Help: "Fetched page or document size in bytes",
			Buckets: []float64{
				100, 200, 400, 800, 1600, 3200, 6400, 12800,
				25600, 51200, 102400, 204800, 409600, 819200,
				1638400, 3276800, 6553600, 10485760, // up to 10MB
			},
		},
	)

	// PDFExtractionsTotal counts PDF text extraction outcomes
	PDFExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pdf_extractions_total",
			Help: "Total number of PDF text extractions",
		},
		[]string{"status"}, // status: success, failure
	)

	// DigestsSentTotal counts digest notifications by channel and status
	DigestsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digests_sent_total",
			Help: "Total number of digest notifications sent",
		},
		[]string{"channel", "status"},
	)
)

// Database metrics track database performance
var (
	// DBQueryDuration measures database query duration
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"operation"},
	)

	// DBConnectionsActive tracks active database connections
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		},
	)

	// DBConnectionsIdle tracks idle database connections
	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "db_connections_idle",
			Help: "Number of idle database connections",
		},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, requestSize, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if requestSize > 0 {
		HTTPRequestSize.WithLabelValues(method, path).Observe(float64(requestSize))
	}
	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}

// RecordOperationDuration records the duration of a named operation
func RecordOperationDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool gauges
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
