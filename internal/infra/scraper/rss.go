package scraper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/resilience/circuitbreaker"
	"rfp-radar/internal/resilience/retry"
	"rfp-radar/internal/usecase/discovery"
	textutil "rfp-radar/internal/utils/text"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// maxFeedBody caps feed responses at the same limit as HTML pages.
const maxFeedBody = 10 * 1024 * 1024

// Snippet budget carried from feed entries into candidates.
const maxSnippetChars = 500

// FeedSource maps RSS/Atom feeds into listing candidates. Sites configured
// with kind "rss" skip the listing model entirely: each feed entry is
// already one candidate with a known detail URL.
type FeedSource struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
}

// NewFeedSource creates a FeedSource with circuit breaker and retry logic
// wired in.
func NewFeedSource(client *http.Client) *FeedSource {
	return &FeedSource{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retry.PageFetchConfig(),
	}
}

// Items fetches and parses the feed, returning one candidate per entry.
// Entries without a title or link are dropped.
func (s *FeedSource) Items(ctx context.Context, feedURL string) ([]discovery.ListingItem, error) {
	var items []discovery.ListingItem

	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		result, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			return s.fetch(ctx, feedURL)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", "feed-fetch"),
					slog.String("url", feedURL),
					slog.String("state", s.circuitBreaker.State().String()))
			}
			return err
		}
		items = result.([]discovery.ListingItem)
		return nil
	})
	if retryErr != nil {
		return nil, fmt.Errorf("FeedSource.Items: %w", retryErr)
	}
	return items, nil
}

// fetch performs one fetch-and-parse attempt without retry or breaker.
func (s *FeedSource) fetch(ctx context.Context, feedURL string) ([]discovery.ListingItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", fetcher.DefaultUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &retry.HTTPError{StatusCode: resp.StatusCode, Message: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxFeedBody {
		return nil, fmt.Errorf("%w: feed exceeds %d bytes", discovery.ErrBodyTooLarge, maxFeedBody)
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, err
	}

	base, _ := url.Parse(feedURL)
	items := make([]discovery.ListingItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		link := strings.TrimSpace(entry.Link)
		if entry.Title == "" || link == "" {
			continue
		}
		if base != nil {
			if ref, err := url.Parse(link); err == nil {
				link = base.ResolveReference(ref).String()
			}
		}

		// Content優先、なければDescriptionを使用
		snippet := entry.Content
		if snippet == "" {
			snippet = entry.Description
		}

		items = append(items, discovery.ListingItem{
			Title:           entry.Title,
			URL:             link,
			DetailSourceURL: link,
			ContentSnippet:  textutil.TruncateRunes(textutil.NormalizeSpace(snippet), maxSnippetChars),
		})
	}
	return items, nil
}
