package scraper

import (
	"strings"

	textutil "rfp-radar/internal/utils/text"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Tags whose text never renders.
var invisibleTags = map[string]struct{}{
	"script":   {},
	"style":    {},
	"noscript": {},
	"template": {},
}

// VisibleText flattens a parsed page into newline-separated text, skipping
// script and style content, and truncates to maxChars runes. The document is
// not modified, so script bodies stay available for the grid-endpoint scan.
func VisibleText(doc *goquery.Document, maxChars int) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if _, hidden := invisibleTags[n.Data]; hidden {
				return
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, root := range doc.Nodes {
		walk(root)
	}
	return textutil.TruncateRunes(strings.Join(parts, "\n"), maxChars)
}

// nodeText flattens one element into a single line: text nodes trimmed,
// joined by spaces, invisible content skipped.
func nodeText(n *html.Node) string {
	var parts []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if _, hidden := invisibleTags[n.Data]; hidden {
				return
			}
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.CommentNode:
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return textutil.NormalizeSpace(strings.Join(parts, " "))
}
