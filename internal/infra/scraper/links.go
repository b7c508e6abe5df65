package scraper

import (
	"net/url"
	"strings"

	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/usecase/discovery"
	textutil "rfp-radar/internal/utils/text"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Field budgets for link descriptors. The model sees every collected link,
// so each field is truncated before serialization.
const (
	maxLinkTextChars = 200
	maxHeadingChars  = 300
	maxContextChars  = 500
)

// Ancestor walk depths for the page-chrome and local-context checks.
const (
	chromeAncestorLevels  = 6
	contextAncestorLevels = 8
)

// Anchor texts that usually point at an opportunity's detail page.
var learnMoreKeywords = []string{
	"learn more", "read more", "details", "more info",
	"about this opportunity", "view details",
}

var applyKeywords = []string{"apply", "application"}

// Path segments of calendar-and-news style indexes that rarely lead to an
// opportunity detail page.
var genericListingSegments = []string{"/events", "/event", "/news", "/blog", "/calendar"}

var chromeTags = map[string]struct{}{"header": {}, "nav": {}, "footer": {}}

var headingTags = map[string]struct{}{
	"h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
}

var contextTags = map[string]struct{}{
	"li": {}, "article": {}, "section": {}, "div": {},
	"tr": {}, "td": {}, "table": {}, "tbody": {},
}

// CollectLinks walks every anchor on the page and produces at most max link
// descriptors in document order. Anchors are dropped when they are empty or
// in-page fragments, canonicalize to the page URL itself, sit inside header,
// nav, or footer chrome, or point off-host at anything that is not a PDF.
// Descriptors are deduplicated by resolved URL.
func CollectLinks(doc *goquery.Document, pageURL string, max int) []discovery.Link {
	if max <= 0 {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}
	pageCanonical := canonicalURL(pageURL)
	pageHost := base.Host

	links := make([]discovery.Link, 0, max)
	seen := make(map[string]struct{})
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		full := resolved.String()
		// 一覧ページ自身を指すリンクは候補にならない
		if canonicalURL(full) == pageCanonical {
			return true
		}
		node := s.Nodes[0]
		if withinChrome(node) {
			return true
		}
		if resolved.Host != pageHost && !fetcher.IsPDFPath(full) {
			return true
		}
		if _, dup := seen[full]; dup {
			return true
		}
		seen[full] = struct{}{}

		links = append(links, describeLink(node, full))
		return len(links) < max
	})
	return links
}

// describeLink builds the descriptor for one anchor node.
func describeLink(n *html.Node, full string) discovery.Link {
	text := textutil.TruncateRunes(nodeText(n), maxLinkTextChars)
	link := discovery.Link{
		Text:    text,
		Href:    full,
		Heading: previousHeading(n),
		Context: linkContext(n),
	}
	applyLinkFlags(&link, text, full)
	return link
}

// applyLinkFlags classifies the link from its visible text and URL.
func applyLinkFlags(link *discovery.Link, text, href string) {
	t := strings.ToLower(text)
	h := strings.ToLower(href)
	link.IsPDF = fetcher.IsPDFPath(href)
	link.IsLearnMore = containsAny(t, learnMoreKeywords)
	link.IsApply = containsAny(t, applyKeywords) || strings.Contains(h, "qualtrics")
	link.IsGenericListing = !link.IsPDF && containsAny(h, genericListingSegments)
	link.Depth = pathDepth(href)
}

// canonicalURL reduces a URL to scheme://host/path with the path lowercased
// and trailing slashes removed. Query and fragment are dropped so tracking
// parameters cannot defeat the self-link check.
func canonicalURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return u.Scheme + "://" + u.Host + strings.ToLower(strings.TrimRight(u.Path, "/"))
}

// pathDepth counts path separators inside the trimmed URL path.
func pathDepth(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	return strings.Count(strings.Trim(u.Path, "/"), "/")
}

// withinChrome reports whether the node sits inside header, nav, or footer
// chrome within a bounded number of ancestor levels.
func withinChrome(n *html.Node) bool {
	node := n
	for i := 0; i < chromeAncestorLevels && node != nil; i++ {
		if node.Type == html.ElementNode {
			if _, ok := chromeTags[node.Data]; ok {
				return true
			}
		}
		node = node.Parent
	}
	return false
}

// previousHeading returns the text of the nearest h1-h6 preceding the node
// in document order, or the empty string.
func previousHeading(n *html.Node) string {
	for p := previousInDocument(n); p != nil; p = previousInDocument(p) {
		if p.Type == html.ElementNode {
			if _, ok := headingTags[p.Data]; ok {
				return textutil.TruncateRunes(nodeText(p), maxHeadingChars)
			}
		}
	}
	return ""
}

// previousInDocument steps to the previous node in document order: the
// deepest last descendant of the previous sibling, or the parent when there
// is no previous sibling.
func previousInDocument(n *html.Node) *html.Node {
	if n.PrevSibling != nil {
		p := n.PrevSibling
		for p.LastChild != nil {
			p = p.LastChild
		}
		return p
	}
	return n.Parent
}

// linkContext returns the flattened text of the nearest enclosing list item,
// table cell, or section, falling back to the anchor's own text.
func linkContext(n *html.Node) string {
	node := n
	for i := 0; i < contextAncestorLevels && node != nil; i++ {
		if node.Type == html.ElementNode {
			if _, ok := contextTags[node.Data]; ok {
				return textutil.TruncateRunes(nodeText(node), maxContextChars)
			}
		}
		node = node.Parent
	}
	return textutil.TruncateRunes(nodeText(n), maxContextChars)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
