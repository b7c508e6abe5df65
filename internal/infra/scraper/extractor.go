package scraper

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"

	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/usecase/discovery"

	"github.com/PuerkitoBio/goquery"
)

// pdfHrefPattern matches hrefs that point at a PDF, with or without a query.
var pdfHrefPattern = regexp.MustCompile(`(?i)\.pdf(\?|$)`)

// Extractor resolves a URL into detail content: the document text, the URL
// it was actually read from, and the raw bytes when the content is a PDF.
//
// Resolution order:
//  1. The response itself is a PDF (content type, path, disposition, or
//     magic bytes).
//  2. The page links to a PDF: first matching anchor, then the first
//     matching iframe or embed source.
//  3. The visible text of the HTML page.
type Extractor struct {
	client *fetcher.Client
	config ExtractorConfig
}

// NewExtractor creates an Extractor on the given client.
func NewExtractor(client *fetcher.Client, cfg ExtractorConfig) *Extractor {
	return &Extractor{client: client, config: cfg}
}

// Extract fetches the URL and extracts its detail content.
func (e *Extractor) Extract(ctx context.Context, rawURL, referer string) (*discovery.Document, error) {
	page, err := e.client.Get(ctx, rawURL, referer)
	if err != nil {
		return nil, fmt.Errorf("Extractor.Extract: %w", err)
	}

	if page.IsPDF() {
		text, err := fetcher.ExtractPDFText(page.Body, e.config.pdfLimit())
		if err != nil {
			return nil, fmt.Errorf("Extractor.Extract: %w", err)
		}
		return &discovery.Document{FinalURL: page.FinalURL, Text: text, PDF: page.Body}, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return nil, fmt.Errorf("Extractor.Extract: parse HTML: %w", err)
	}

	for _, candidate := range pdfCandidates(doc, page.FinalURL) {
		pdfDoc, err := e.fetchPDF(ctx, candidate, page.FinalURL)
		if err != nil {
			slog.Warn("linked PDF extraction failed",
				slog.String("candidate", candidate),
				slog.String("page", page.FinalURL),
				slog.Any("error", err))
			continue
		}
		return pdfDoc, nil
	}

	if e.config.UseReadability {
		if text := readableText(page.Body, page.FinalURL, e.config.MaxTextChars); text != "" {
			return &discovery.Document{FinalURL: page.FinalURL, Text: text}, nil
		}
	}

	return &discovery.Document{
		FinalURL: page.FinalURL,
		Text:     VisibleText(doc, e.config.MaxTextChars),
	}, nil
}

// fetchPDF downloads one probed candidate and accepts it only when the
// response is demonstrably a PDF. Agency sites link "PDF" at HTML landing
// pages often enough that the path alone cannot be trusted.
func (e *Extractor) fetchPDF(ctx context.Context, rawURL, referer string) (*discovery.Document, error) {
	page, err := e.client.GetWithHeaders(ctx, rawURL, referer, map[string]string{
		"Accept": "application/pdf",
	})
	if err != nil {
		return nil, err
	}
	if !page.IsPDFContent() {
		return nil, fmt.Errorf("%w: %s", discovery.ErrNotPDF, page.ContentType)
	}
	text, err := fetcher.ExtractPDFText(page.Body, e.config.pdfLimit())
	if err != nil {
		return nil, err
	}
	return &discovery.Document{FinalURL: page.FinalURL, Text: text, PDF: page.Body}, nil
}

// pdfCandidates returns up to two probe URLs: the first anchor matching the
// PDF pattern, then the first iframe or embed source matching it.
func pdfCandidates(doc *goquery.Document, pageURL string) []string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	resolve := func(raw string) (string, bool) {
		ref, err := url.Parse(raw)
		if err != nil {
			return "", false
		}
		return base.ResolveReference(ref).String(), true
	}

	var candidates []string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if !pdfHrefPattern.MatchString(href) {
			return true
		}
		if full, ok := resolve(href); ok {
			candidates = append(candidates, full)
			return false
		}
		return true
	})
	doc.Find("iframe[src], embed[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src := s.AttrOr("src", "")
		if !pdfHrefPattern.MatchString(src) {
			return true
		}
		if full, ok := resolve(src); ok {
			candidates = append(candidates, full)
			return false
		}
		return true
	})
	return candidates
}
