// Package discovery implements the listing-to-final opportunity pipeline:
// analyzing listing pages, navigating candidate items to their final detail
// page or PDF, validating scope and deadlines, and persisting the results.
package discovery

import "errors"

// Sentinel errors for page fetching and content extraction.
// These errors let callers distinguish failure modes: validation errors are
// permanent for the given URL, while network-shaped errors are transient and
// must never produce an exclusion row.
var (
	// ErrInvalidURL indicates the URL format is invalid or uses an unsupported scheme.
	// Only http:// and https:// schemes are supported, and userinfo is rejected.
	ErrInvalidURL = errors.New("invalid URL or unsupported scheme")

	// ErrPrivateIP indicates the URL resolves to a private IP address.
	// This error prevents Server-Side Request Forgery (SSRF) attacks.
	ErrPrivateIP = errors.New("private IP access denied (SSRF prevention)")

	// ErrTooManyRedirects indicates the redirect chain exceeded the configured maximum.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrBodyTooLarge indicates the response body exceeded the size limit.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("request timed out")

	// ErrNotPDF indicates a probed candidate did not turn out to be a PDF.
	ErrNotPDF = errors.New("content is not a PDF")

	// ErrPDFParse indicates PDF text extraction failed.
	ErrPDFParse = errors.New("failed to extract PDF text")

	// ErrHopBudget indicates navigation gave up after exhausting the hop budget.
	ErrHopBudget = errors.New("navigation hop budget exhausted")

	// ErrNavExpired indicates the navigation model saw closed or expired
	// language before reaching a final page. Unlike other navigation
	// failures this verdict is definitive and produces an exclusion row
	// keyed on the listing URL.
	ErrNavExpired = errors.New("opportunity expired during navigation")

	// ErrLLMParse indicates no JSON could be recovered from a model response,
	// even after the repair pipeline.
	ErrLLMParse = errors.New("failed to parse JSON from model output")
)
