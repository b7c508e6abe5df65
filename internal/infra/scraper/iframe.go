package scraper

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"

	"rfp-radar/internal/usecase/discovery"

	"github.com/PuerkitoBio/goquery"
)

// iframeSrcs returns deduplicated absolute iframe sources in document order.
func iframeSrcs(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var srcs []string
	seen := make(map[string]struct{})
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			return
		}
		ref, err := url.Parse(src)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		srcs = append(srcs, resolved)
	})
	return srcs
}

// augmentIframes follows embedded frames and appends their links to the
// view. Some portals render the whole opportunity table inside an iframe
// served from a second host, leaving the listing page itself linkless.
func (l *PageLoader) augmentIframes(ctx context.Context, doc *goquery.Document, view *discovery.PageView) {
	srcs := iframeSrcs(doc, view.FinalURL)
	if len(srcs) > l.config.MaxIframes {
		srcs = srcs[:l.config.MaxIframes]
	}
	for _, src := range srcs {
		page, err := l.client.Get(ctx, src, view.FinalURL)
		if err != nil {
			slog.Warn("iframe fetch failed",
				slog.String("src", src),
				slog.String("page", view.FinalURL),
				slog.Any("error", err))
			continue
		}
		frameDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
		if err != nil {
			slog.Warn("iframe parse failed",
				slog.String("src", src),
				slog.Any("error", err))
			continue
		}
		// フレーム内リンクはフレーム自身の URL を基準に解決する
		view.Links = append(view.Links, CollectLinks(frameDoc, page.FinalURL, l.config.IframeMaxLinks)...)
	}
}
