// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics (duration, count, size)
//   - Business metrics (RFPs, websites, crawl outcomes, digests)
//   - Database query metrics
//   - Application performance metrics
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "rfp-radar/internal/observability/metrics"
//
//	func crawlSite(site *entity.Website) {
//	    start := time.Now()
//	    // ... crawl the listing page ...
//	    found := 10
//
//	    metrics.RecordSiteCrawl(site.ID, time.Since(start), found, site.Name)
//	}
package metrics
