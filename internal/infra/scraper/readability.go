package scraper

import (
	"bytes"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	textutil "rfp-radar/internal/utils/text"
)

// readableText runs the Mozilla readability algorithm over an HTML body and
// returns the main article text, truncated to maxChars runes. An empty string
// means the algorithm found no usable article region and the caller should
// fall back to full visible text.
func readableText(body []byte, pageURL string, maxChars int) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return ""
	}
	return textutil.TruncateRunes(textutil.StripControl(text), maxChars)
}
