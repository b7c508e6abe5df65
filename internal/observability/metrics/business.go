package metrics

import (
	"fmt"
	"time"
)

// RecordItemsDiscovered records the number of candidate items found on a listing.
// This metric helps track listing extraction quality and site activity.
func RecordItemsDiscovered(siteName string, count int) {
	ItemsDiscoveredTotal.WithLabelValues(siteName).Add(float64(count))
}

// RecordItemOutcome records the final pipeline outcome for one candidate item.
// Outcome should be one of "saved", "out_of_scope", "expired", "unknown",
// "known", or "failed".
func RecordItemOutcome(outcome string) {
	ItemsProcessedTotal.WithLabelValues(outcome).Inc()
}

// RecordNavigationHops records how many hops the navigator followed from the
// listing before reaching a final document.
func RecordNavigationHops(hops int) {
	NavigationHops.Observe(float64(hops))
}

// RecordSiteCrawl records metrics for one site crawl.
func RecordSiteCrawl(siteID int64, duration time.Duration, itemsFound int, siteName string) {
	SiteCrawlDuration.WithLabelValues(
		fmt.Sprintf("%d", siteID),
	).Observe(duration.Seconds())

	if itemsFound > 0 {
		RecordItemsDiscovered(siteName, itemsFound)
	}
}

// RecordSiteCrawlError records an error during a site crawl.
func RecordSiteCrawlError(siteID int64, errorType string) {
	SiteCrawlErrors.WithLabelValues(
		fmt.Sprintf("%d", siteID),
		errorType,
	).Inc()
}

// UpdateRfpsTotal updates the total count of processed RFPs in the database.
// This gauge should be updated periodically to reflect the current state.
func UpdateRfpsTotal(count int) {
	RfpsTotal.Set(float64(count))
}

// UpdateWebsitesTotal updates the total count of configured websites.
// This gauge should be updated periodically to reflect the current state.
func UpdateWebsitesTotal(count int) {
	WebsitesTotal.Set(float64(count))
}

// RecordPageFetchSuccess records a successful page or document fetch.
// This tracks both the duration and size of the fetched body.
//
// Parameters:
//   - duration: Time taken to fetch the page
//   - size: Size of the fetched body in bytes
//
// Example:
//
//	start := time.Now()
//	page, err := client.FetchPage(ctx, url)
//	if err == nil {
//	    RecordPageFetchSuccess(time.Since(start), len(page.Body))
//	}
func RecordPageFetchSuccess(duration time.Duration, size int) {
	PageFetchAttemptsTotal.WithLabelValues("success").Inc()
	PageFetchDuration.Observe(duration.Seconds())
	PageFetchSize.Observe(float64(size))
}

// RecordPageFetchFailed records a failed page or document fetch.
func RecordPageFetchFailed(duration time.Duration) {
	PageFetchAttemptsTotal.WithLabelValues("failure").Inc()
	PageFetchDuration.Observe(duration.Seconds())
}

// RecordPDFExtraction records the result of a PDF text extraction.
func RecordPDFExtraction(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	PDFExtractionsTotal.WithLabelValues(status).Inc()
}

// RecordDigestSent records the result of sending one digest notification.
// Channel is "email", "slack", or "discord".
func RecordDigestSent(channel string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	DigestsSentTotal.WithLabelValues(channel, status).Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_rfps", "insert_rfp").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
