package fetcher

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"rfp-radar/internal/observability/metrics"
	"rfp-radar/internal/usecase/discovery"
	textutil "rfp-radar/internal/utils/text"

	"github.com/ledongthuc/pdf"
)

// pdfMagic is the PDF file signature.
var pdfMagic = []byte("%PDF-")

// IsPDF reports whether the fetched page is a PDF document. Any one signal
// decides it: the content type, the final URL path, the Content-Disposition
// filename, or the magic bytes. Agency sites routinely mislabel attachments,
// so no single header can be trusted.
func (p *Page) IsPDF() bool {
	if strings.Contains(strings.ToLower(p.ContentType), "application/pdf") {
		return true
	}
	if IsPDFPath(p.FinalURL) {
		return true
	}
	if strings.Contains(strings.ToLower(p.Disposition), ".pdf") {
		return true
	}
	return bytes.HasPrefix(p.Body, pdfMagic)
}

// IsPDFContent reports whether the response body is actually a PDF, judged
// only by the content type and magic bytes. PDF probes use this stricter
// check: the probed URL already ends in .pdf, so the path proves nothing
// about what the server returned.
func (p *Page) IsPDFContent() bool {
	if strings.Contains(strings.ToLower(p.ContentType), "application/pdf") {
		return true
	}
	return bytes.HasPrefix(p.Body, pdfMagic)
}

// IsPDFPath reports whether the URL path ends with .pdf (query ignored).
func IsPDFPath(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}

// looksLikePDFResponse decides from headers alone whether the body should get
// the PDF size limit. Magic bytes cannot be checked before reading the body.
func looksLikePDFResponse(resp *http.Response, finalURL string) bool {
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/pdf") {
		return true
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Disposition")), ".pdf") {
		return true
	}
	return IsPDFPath(finalURL)
}

// ExtractPDFText extracts plain text from PDF bytes, capped at maxChars runes.
// Pages are extracted individually, run through the chunked splitter, and
// concatenated, so very large documents keep their local structure while the
// total stays bounded. Broken pages are skipped; the extraction fails only
// when no page yields text.
func ExtractPDFText(data []byte, maxChars int) (content string, err error) {
	// ライブラリは壊れたファイルで panic することがある
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPDFExtraction(false)
			content = ""
			err = fmt.Errorf("%w: parser panic: %v", discovery.ErrPDFParse, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		metrics.RecordPDFExtraction(false)
		return "", fmt.Errorf("%w: %v", discovery.ErrPDFParse, err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, pageErr := page.GetPlainText(nil)
		if pageErr != nil || pageText == "" {
			continue
		}
		pages = append(pages, pageText)
	}

	if len(pages) == 0 {
		metrics.RecordPDFExtraction(false)
		return "", fmt.Errorf("%w: no extractable text", discovery.ErrPDFParse)
	}

	chunks := NewSplitter(DefaultChunkSize, DefaultChunkOverlap).Split(strings.Join(pages, "\n"))
	joined := textutil.StripControl(strings.Join(chunks, "\n\n"))

	metrics.RecordPDFExtraction(true)
	return textutil.TruncateRunes(joined, maxChars), nil
}
