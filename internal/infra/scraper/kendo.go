package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"rfp-radar/internal/resilience/retry"
	"rfp-radar/internal/usecase/discovery"
	textutil "rfp-radar/internal/utils/text"

	"github.com/PuerkitoBio/goquery"
)

// Kendo grids load rows through a DataSource transport instead of
// server-rendered anchors, so the listing HTML alone shows an empty table.
// The loader scans script blocks for the transport read URL, replays the
// grid's JSON request, and synthesizes link descriptors from the rows.

var (
	// transport: { read: { url: "..." } }
	kendoReadURLPattern = regexp.MustCompile(`(?is)transport\s*:\s*\{[^}]*read\s*:\s*[\{\[]?\s*url\s*:\s*['"]([^'"]+)['"]`)

	// transport: { read: "..." } shorthand
	kendoReadShorthandPattern = regexp.MustCompile(`(?is)transport\s*:\s*\{[^}]*read\s*:\s*['"]([^'"]+)['"]`)
)

// Paging parameters every Kendo read endpoint accepts.
const kendoPagingQuery = "page=1&pageSize=50&skip=0&take=50"

// Request body for the POST fallback when GET is rejected.
const kendoPostBody = `{"take":50,"skip":0,"page":1,"pageSize":50,"sort":[]}`

// Rows echoed into the synthesized page-text block.
const maxGridTextRows = 20

// kendoReadURLs extracts grid read endpoints from the page's script blocks,
// resolved against the page URL and deduplicated in discovery order.
func kendoReadURLs(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	var endpoints []string
	seen := make(map[string]struct{})
	add := func(raw string) {
		ref, err := url.Parse(raw)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref).String()
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		endpoints = append(endpoints, resolved)
	}
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		script := s.Text()
		for _, m := range kendoReadURLPattern.FindAllStringSubmatch(script, -1) {
			if m[1] != "" {
				add(m[1])
			}
		}
		for _, m := range kendoReadShorthandPattern.FindAllStringSubmatch(script, -1) {
			raw := m[1]
			if raw == "" {
				continue
			}
			low := strings.ToLower(raw)
			// 短縮形のパターンは荒いので、アセット参照への誤マッチを捨てる
			if strings.HasSuffix(low, ".js") || strings.HasSuffix(low, ".css") || strings.Contains(raw, "dataType") {
				continue
			}
			add(raw)
		}
	})
	return endpoints
}

// antiForgeryToken pulls the ASP.NET anti-forgery token off the page, from
// the hidden form input or the meta tag variant.
func antiForgeryToken(doc *goquery.Document) string {
	if v := doc.Find(`input[name="__RequestVerificationToken"]`).AttrOr("value", ""); v != "" {
		return v
	}
	return doc.Find(`meta[name="__RequestVerificationToken"]`).AttrOr("content", "")
}

// fetchGridJSON replays the grid's read request. Endpoints that reject the
// paged GET with a 4xx only accept a POST carrying the anti-forgery token.
func (l *PageLoader) fetchGridJSON(ctx context.Context, endpoint, referer, token string) ([]byte, error) {
	headers := map[string]string{
		"Accept":           "application/json, text/javascript, */*; q=0.01",
		"X-Requested-With": "XMLHttpRequest",
	}

	paged := endpoint
	if strings.Contains(endpoint, "?") {
		paged += "&" + kendoPagingQuery
	} else {
		paged += "?" + kendoPagingQuery
	}
	page, err := l.client.GetWithHeaders(ctx, paged, referer, headers)
	if err == nil {
		return page.Body, nil
	}

	var httpErr *retry.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode >= 500 {
		return nil, err
	}
	postHeaders := map[string]string{
		"Accept":           headers["Accept"],
		"X-Requested-With": headers["X-Requested-With"],
	}
	if token != "" {
		postHeaders["RequestVerificationToken"] = token
	}
	page, err = l.client.PostJSON(ctx, endpoint, referer, []byte(kendoPostBody), postHeaders)
	if err != nil {
		return nil, err
	}
	return page.Body, nil
}

// parseGridRows normalizes a grid response into link descriptors. Field
// names vary between Telerik versions, so several spellings are tolerated.
func parseGridRows(data []byte, pageURL string) []discovery.Link {
	var payload interface{}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var links []discovery.Link
	for _, raw := range gridRows(payload) {
		row, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		title := strings.TrimSpace(firstString(row, "Title", "title", "Name", "name"))
		fileURL := strings.TrimSpace(firstString(row, "FileUrl", "Url", "url"))
		expiration := strings.TrimSpace(firstString(row, "DateExpiration", "ExpirationDate", "CloseDate", "Deadline"))
		if title == "" && fileURL == "" && expiration == "" {
			continue
		}

		href := pageURL
		if fileURL != "" {
			if ref, err := url.Parse(fileURL); err == nil {
				href = base.ResolveReference(ref).String()
			}
		}

		var ctxParts []string
		if title != "" {
			ctxParts = append(ctxParts, title)
		}
		if expiration != "" {
			ctxParts = append(ctxParts, "Expiration Date: "+expiration)
		}

		text := title
		if text == "" {
			text = fileURL
		}
		if text == "" {
			text = "(item)"
		}

		link := discovery.Link{
			Text:    textutil.TruncateRunes(text, maxLinkTextChars),
			Href:    href,
			Context: textutil.TruncateRunes(strings.Join(ctxParts, " | "), maxContextChars),
		}
		flagSource := title
		if flagSource == "" {
			flagSource = fileURL
		}
		applyLinkFlags(&link, flagSource, href)
		links = append(links, link)
	}
	return links
}

// gridRows finds the row array inside the grid response envelope.
func gridRows(payload interface{}) []interface{} {
	switch v := payload.(type) {
	case []interface{}:
		return v
	case map[string]interface{}:
		for _, key := range []string{"data", "Data", "results", "Results"} {
			if rows, ok := v[key].([]interface{}); ok && len(rows) > 0 {
				return rows
			}
		}
		if inner, ok := v["Data"].(map[string]interface{}); ok {
			if rows, ok := inner["items"].([]interface{}); ok {
				return rows
			}
		}
	}
	return nil
}

func firstString(row map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s, ok := row[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// gridTextBlock renders synthesized rows as a text block the model can read
// alongside the page text, since the rows never appear in the HTML itself.
func gridTextBlock(rows []discovery.Link) string {
	lines := make([]string, 0, maxGridTextRows+1)
	lines = append(lines, "KENDO GRID (synthesized):")
	for i, row := range rows {
		if i >= maxGridTextRows {
			break
		}
		lines = append(lines, fmt.Sprintf("- %s | %s | %s", row.Text, row.Context, row.Href))
	}
	return strings.Join(lines, "\n")
}

// augmentGrids merges grid rows into the page view. Failures are logged and
// skipped so a broken grid endpoint never takes the whole listing down.
func (l *PageLoader) augmentGrids(ctx context.Context, doc *goquery.Document, view *discovery.PageView) {
	endpoints := kendoReadURLs(doc, view.FinalURL)
	if len(endpoints) == 0 {
		return
	}
	if len(endpoints) > l.config.MaxGridEndpoints {
		endpoints = endpoints[:l.config.MaxGridEndpoints]
	}
	token := antiForgeryToken(doc)

	var rows []discovery.Link
	for _, endpoint := range endpoints {
		data, err := l.fetchGridJSON(ctx, endpoint, view.FinalURL, token)
		if err != nil {
			slog.Warn("kendo grid fetch failed",
				slog.String("endpoint", endpoint),
				slog.String("page", view.FinalURL),
				slog.Any("error", err))
			continue
		}
		rows = append(rows, parseGridRows(data, view.FinalURL)...)
	}
	if len(rows) == 0 {
		return
	}
	slog.Info("synthesized kendo grid rows",
		slog.String("page", view.FinalURL),
		slog.Int("rows", len(rows)))

	block := gridTextBlock(rows)
	// グリッド行はリンク予算の半分まで先頭に差し込む
	if keep := l.config.ListingMaxLinks / 2; len(rows) > keep {
		rows = rows[:keep]
	}
	view.Links = append(rows, view.Links...)
	view.Text = textutil.TruncateRunes(block+"\n\n"+view.Text, l.config.ListingMaxText)
}
