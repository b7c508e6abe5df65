package fetcher

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"rfp-radar/internal/observability/metrics"
	"rfp-radar/internal/resilience/circuitbreaker"
	"rfp-radar/internal/resilience/retry"
	"rfp-radar/internal/usecase/discovery"

	"golang.org/x/time/rate"
)

// Default request headers for site fetches. Several agency portals serve
// degraded markup when these do not look like a desktop browser.
const (
	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.9"
)

// Page is one fetched HTTP response with the metadata the content extractor
// needs to decide how to interpret the body.
type Page struct {
	// RequestURL is the URL the caller asked for.
	RequestURL string

	// FinalURL is the URL after redirects.
	FinalURL string

	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the Content-Type response header.
	ContentType string

	// Disposition is the Content-Disposition response header.
	Disposition string

	// Body is the response body, bounded by the configured size limits.
	Body []byte
}

// Client is the crawler's HTTP client. One Client is shared by a whole
// scrape run: it reuses connections, carries cookies across requests to the
// same site (some portals require a session for their grid endpoints), paces
// requests per host, and isolates failing hosts behind circuit breakers.
//
// Thread safety: Client is safe for concurrent use.
type Client struct {
	client *http.Client
	config FetchConfig

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewClient creates a Client with the given configuration.
//
// The client is configured with:
//   - Cookie jar shared across requests (session discipline)
//   - Connection reuse with connect/read timeouts
//   - Redirect validation for security (SSRF check on every target)
//   - Per-host politeness pacing and circuit breakers
func NewClient(config FetchConfig) *Client {
	c := &Client{
		config:   config,
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}

	jar, _ := cookiejar.New(nil) // cookiejar.New(nil) never fails

	c.client = &http.Client{
		Timeout: config.Timeout,
		Jar:     jar,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: config.ConnectTimeout,
			}).DialContext,
			ResponseHeaderTimeout: config.ReadTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.config.MaxRedirects {
				return fmt.Errorf("%w: %d redirects", discovery.ErrTooManyRedirects, len(via))
			}
			// リダイレクト先も毎回 SSRF 検証する
			if err := validateURL(req.URL.String(), c.config.DenyPrivateIPs); err != nil {
				return fmt.Errorf("redirect target validation failed: %w", err)
			}
			return nil
		},
	}

	return c
}

// Get fetches a URL with browser-profile headers. The Referer header is set
// to the given value, or to the page origin when referer is empty.
func (c *Client) Get(ctx context.Context, rawURL, referer string) (*Page, error) {
	return c.GetWithHeaders(ctx, rawURL, referer, nil)
}

// GetWithHeaders fetches a URL with additional request headers layered over
// the browser profile. Kendo grid endpoints need X-Requested-With, and PDF
// probes send Accept: application/pdf.
func (c *Client) GetWithHeaders(ctx context.Context, rawURL, referer string, headers map[string]string) (*Page, error) {
	return c.do(ctx, http.MethodGet, rawURL, referer, headers, nil, "")
}

// PostJSON sends a JSON POST. Used by the Kendo grid fallback when the GET
// endpoint rejects the request and an anti-forgery token header is required.
func (c *Client) PostJSON(ctx context.Context, rawURL, referer string, body []byte, headers map[string]string) (*Page, error) {
	return c.do(ctx, http.MethodPost, rawURL, referer, headers, bytes.NewReader(body), "application/json")
}

// do validates the URL, paces the host, and executes the request through the
// host's circuit breaker.
func (c *Client) do(ctx context.Context, method, rawURL, referer string, headers map[string]string, body io.Reader, contentType string) (*Page, error) {
	if err := validateURL(rawURL, c.config.DenyPrivateIPs); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse error: %v", discovery.ErrInvalidURL, err)
	}

	// 同一ホストへの連続アクセスを間隔制御する
	if limiter := c.hostLimiter(u.Host); limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("politeness wait: %w", err)
		}
	}

	start := time.Now()
	result, err := c.hostBreaker(u.Host).Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, u, referer, headers, body, contentType)
	})
	if err != nil {
		metrics.RecordPageFetchFailed(time.Since(start))
		return nil, err
	}

	page := result.(*Page)
	metrics.RecordPageFetchSuccess(time.Since(start), len(page.Body))
	return page, nil
}

// roundTrip performs the actual HTTP request and bounded body read.
func (c *Client) roundTrip(ctx context.Context, method string, u *url.URL, referer string, headers map[string]string, body io.Reader, contentType string) (*Page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", discovery.ErrInvalidURL, err)
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", acceptHTML)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Referer", refererFor(u, referer))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if reqCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: request exceeded %v", discovery.ErrTimeout, c.config.Timeout)
		}
		// Surface redirect validation errors instead of the url.Error wrapper.
		if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
			return nil, urlErr.Err
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	finalURL := u.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode >= 400 {
		// Callers inspect the status for fallback logic (Kendo 4xx POST retry),
		// so keep the structured error type.
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	// PDF らしいレスポンスだけ大きい上限を許す
	limit := c.config.MaxBodySize
	if looksLikePDFResponse(resp, finalURL) {
		limit = c.config.MaxPDFBodySize
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: response size exceeds limit %d bytes", discovery.ErrBodyTooLarge, limit)
	}

	return &Page{
		RequestURL:  u.String(),
		FinalURL:    finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Disposition: resp.Header.Get("Content-Disposition"),
		Body:        data,
	}, nil
}

// hostLimiter returns the politeness limiter for a host, creating it lazily.
// Returns nil when pacing is disabled.
func (c *Client) hostLimiter(host string) *rate.Limiter {
	if c.config.PolitenessDelay <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	limiter, ok := c.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(c.config.PolitenessDelay), 1)
		c.limiters[host] = limiter
	}
	return limiter
}

// hostBreaker returns the circuit breaker for a host, creating it lazily.
// Per-host breakers keep one dead agency site from blocking the rest of a run.
func (c *Client) hostBreaker(host string) *circuitbreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.breakers[host]
	if !ok {
		cfg := circuitbreaker.PageFetchConfig()
		cfg.Name = "page-fetch:" + host
		cb = circuitbreaker.New(cfg)
		c.breakers[host] = cb
	}
	return cb
}

// refererFor returns the Referer header value: the referring page during
// navigation, or the page origin by default.
func refererFor(u *url.URL, referer string) string {
	if referer != "" {
		return referer
	}
	return u.Scheme + "://" + u.Host + "/"
}
