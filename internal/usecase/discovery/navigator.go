package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"rfp-radar/internal/observability/metrics"
)

// DefaultMaxHops is the navigation hop budget when MAX_RFP_HOPS is unset.
const DefaultMaxHops = 5

// pdfURLRe matches URLs whose path ends in .pdf, before any query string.
var pdfURLRe = regexp.MustCompile(`(?i)\.pdf(\?|$)`)

// FinalPage is the resolved destination of one candidate: the page or PDF
// whose content gets classified, summarized, and stored.
type FinalPage struct {
	// URL is the final document URL after redirects. Both the processed-row
	// hash and any final-stage exclusion key on this value.
	URL string
	// Title is the navigation model's title when it gave one, otherwise the
	// listing anchor text seed.
	Title string
	// Text is the extracted document text.
	Text string
	// PDF holds the original PDF bytes when the final document was a PDF,
	// nil otherwise.
	PDF []byte
}

// Navigator follows a candidate's detail link until the model declares a
// final page, for at most maxHops hops. Every termination without a final
// page is an error: the caller decides whether it was definitive (expired)
// or transient (everything else).
type Navigator struct {
	loader    PageLoader
	extractor ContentExtractor
	model     Model
	maxHops   int
}

func NewNavigator(loader PageLoader, extractor ContentExtractor, model Model, maxHops int) *Navigator {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	return &Navigator{
		loader:    loader,
		extractor: extractor,
		model:     model,
		maxHops:   maxHops,
	}
}

// Resolve walks from startURL to the candidate's final page. titleSeed is
// the listing anchor text; it becomes the title when the trail ends on a PDF
// or the model declares a final page without naming one. knownTitles give
// the navigation prompt context about items already in the database.
//
// Expired verdicts return an error wrapping ErrNavExpired. A loop, a dead
// end, a fetch failure, or an exhausted hop budget return plain errors and
// must not be treated as decisions about the opportunity itself.
func (n *Navigator) Resolve(ctx context.Context, startURL, titleSeed string, knownTitles []string) (*FinalPage, error) {
	seed := strings.TrimSpace(titleSeed)
	visited := make(map[string]bool)
	current := startURL

	for hop := 1; hop <= n.maxHops; hop++ {
		// 取得前に判定する。リダイレクト先も fetch 後に同じ集合へ入れる
		if visited[current] {
			return nil, fmt.Errorf("Navigator.Resolve: navigation loop at %s", current)
		}
		visited[current] = true

		if pdfURLRe.MatchString(current) {
			doc, err := n.extractor.Extract(ctx, current, current)
			if err != nil {
				return nil, fmt.Errorf("Navigator.Resolve: extract %s: %w", current, err)
			}
			metrics.RecordNavigationHops(hop)
			return &FinalPage{
				URL:   doc.FinalURL,
				Title: pdfTitle(seed),
				Text:  doc.Text,
				PDF:   doc.PDF,
			}, nil
		}

		page, err := n.loader.Page(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("Navigator.Resolve: fetch %s: %w", current, err)
		}
		if page.FinalURL != current {
			if visited[page.FinalURL] {
				return nil, fmt.Errorf("Navigator.Resolve: navigation loop at %s", page.FinalURL)
			}
			visited[page.FinalURL] = true
		}

		decision, err := n.model.Navigate(ctx, page, knownTitles, hop, n.maxHops)
		if err != nil {
			return nil, fmt.Errorf("Navigator.Resolve: %w", err)
		}

		switch decision.Status {
		case NavFinal:
			final, err := n.resolveFinal(ctx, page, decision, seed)
			if err != nil {
				return nil, err
			}
			metrics.RecordNavigationHops(hop)
			return final, nil

		case NavContinue:
			next, anchor, err := nextHop(page, decision)
			if err != nil {
				return nil, err
			}
			if pdfURLRe.MatchString(next) {
				doc, err := n.extractor.Extract(ctx, next, page.FinalURL)
				if err != nil {
					return nil, fmt.Errorf("Navigator.Resolve: extract %s: %w", next, err)
				}
				metrics.RecordNavigationHops(hop)
				return &FinalPage{
					URL:   doc.FinalURL,
					Title: firstNonEmpty(anchor, seed, "(PDF)"),
					Text:  doc.Text,
					PDF:   doc.PDF,
				}, nil
			}
			slog.Info("following navigation hop",
				slog.Int("hop", hop),
				slog.String("from", page.FinalURL),
				slog.String("to", next))
			current = next

		case NavExpired:
			return nil, fmt.Errorf("Navigator.Resolve: %w at hop %d: %s", ErrNavExpired, hop, decision.Reason)

		case NavGiveUp:
			return nil, fmt.Errorf("Navigator.Resolve: model gave up at hop %d: %s", hop, decision.Reason)

		default:
			return nil, fmt.Errorf("Navigator.Resolve: unknown navigation status %q at hop %d", decision.Status, hop)
		}
	}

	return nil, fmt.Errorf("Navigator.Resolve: %w after %d hops", ErrHopBudget, n.maxHops)
}

// resolveFinal materializes a final verdict. The model may declare a URL
// other than the current page; a declared PDF is extracted, a declared HTML
// page is fetched once, and the current page's own text backs both cases.
func (n *Navigator) resolveFinal(ctx context.Context, page *PageView, decision *NavDecision, seed string) (*FinalPage, error) {
	declaredURL, declaredTitle := "", ""
	if decision.Final != nil {
		declaredURL = strings.TrimSpace(decision.Final.URL)
		declaredTitle = strings.TrimSpace(decision.Final.Title)
	}
	finalURL := declaredURL
	if finalURL == "" {
		finalURL = page.FinalURL
	}
	title := firstNonEmpty(declaredTitle, seed, "(untitled RFP)")

	if pdfURLRe.MatchString(finalURL) {
		doc, err := n.extractor.Extract(ctx, finalURL, page.FinalURL)
		if err == nil && doc.Text != "" {
			return &FinalPage{URL: doc.FinalURL, Title: title, Text: doc.Text, PDF: doc.PDF}, nil
		}
		// PDF が読めなくても最終判定自体は有効なので現在ページの本文で続ける
		slog.Warn("declared final PDF unreadable, using page text",
			slog.String("pdf", finalURL),
			slog.String("page", page.FinalURL),
			slog.Any("error", err))
		return &FinalPage{URL: finalURL, Title: title, Text: page.Text}, nil
	}

	if finalURL == page.FinalURL {
		return &FinalPage{URL: finalURL, Title: title, Text: page.Text}, nil
	}

	fresh, err := n.loader.Page(ctx, finalURL)
	if err != nil {
		return nil, fmt.Errorf("Navigator.Resolve: fetch declared final %s: %w", finalURL, err)
	}
	return &FinalPage{URL: fresh.FinalURL, Title: title, Text: fresh.Text}, nil
}

// nextHop validates a continue verdict's link index against the current page
// and returns the target href and its anchor text.
func nextHop(page *PageView, decision *NavDecision) (string, string, error) {
	if decision.NextLinkIndex == nil {
		return "", "", fmt.Errorf("Navigator.Resolve: continue verdict without next_link_index")
	}
	idx := *decision.NextLinkIndex
	if idx < 0 || idx >= len(page.Links) {
		return "", "", fmt.Errorf("Navigator.Resolve: next_link_index %d out of range (%d links)", idx, len(page.Links))
	}
	link := page.Links[idx]
	href := strings.TrimSpace(link.Href)
	if href == "" {
		return "", "", fmt.Errorf("Navigator.Resolve: link %d has an empty href", idx)
	}
	return href, strings.TrimSpace(link.Text), nil
}

func pdfTitle(seed string) string {
	if seed != "" {
		return seed
	}
	return "(PDF)"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
