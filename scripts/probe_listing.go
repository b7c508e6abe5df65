// Command probe_listing fetches a listing URL and prints what the pipeline
// would see: the augmented link list (with Kendo grid and iframe synthesis),
// whether a Kendo grid was detected, and a readability-extracted preview of
// the main content. Read-only operator diagnosis; nothing touches the
// database. Usage: go run scripts/probe_listing.go <url> [--links N] [--preview N]
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"rfp-radar/internal/infra/fetcher"
	"rfp-radar/internal/infra/scraper"
)

func main() {
	var (
		maxLinks     int
		previewChars int
	)
	flag.IntVar(&maxLinks, "links", 40, "Maximum number of links to print")
	flag.IntVar(&previewChars, "preview", 1200, "Readability preview length in characters")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Error: Listing URL is required")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage: go run scripts/probe_listing.go <url> [--links N] [--preview N]")
		os.Exit(1)
	}
	listingURL := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := fetcher.NewClient(fetcher.DefaultFetchConfig())
	loader := scraper.NewPageLoader(client, scraper.DefaultConfig())

	// 生のボディは readability 用に一度だけ取り、ビューは同じセッションで組む
	page, err := client.Get(ctx, listingURL, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Fetch failed: %v\n", err)
		os.Exit(1)
	}

	view, err := loader.Listing(ctx, listingURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Listing analysis failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("URL:        %s\n", listingURL)
	fmt.Printf("Final URL:  %s\n", view.FinalURL)
	fmt.Printf("Status:     %d (%s)\n", page.StatusCode, page.ContentType)
	fmt.Printf("Text:       %d chars\n", len(view.Text))
	fmt.Printf("Links:      %d\n", len(view.Links))
	fmt.Printf("Kendo grid: %v\n", strings.Contains(view.Text, "KENDO GRID (synthesized):"))
	fmt.Println()

	fmt.Println("=== Links ===")
	for i, link := range view.Links {
		if i >= maxLinks {
			fmt.Printf("... %d more\n", len(view.Links)-maxLinks)
			break
		}
		var flags []string
		if link.IsLearnMore {
			flags = append(flags, "learn_more")
		}
		if link.IsApply {
			flags = append(flags, "apply")
		}
		if link.IsPDF {
			flags = append(flags, "pdf")
		}
		if link.IsGenericListing {
			flags = append(flags, "generic_listing")
		}
		suffix := ""
		if len(flags) > 0 {
			suffix = " [" + strings.Join(flags, ",") + "]"
		}
		fmt.Printf("%3d. %-60.60s %s%s\n", i, link.Text, link.Href, suffix)
	}
	fmt.Println()

	fmt.Println("=== Readability preview ===")
	fmt.Println(readablePreview(page.Body, view.FinalURL, previewChars))
}

// readablePreview runs the readability algorithm over the raw body and
// clips the article text. Falls back to a note when no article region is
// found, which on listing pages usually means the content is all navigation.
func readablePreview(body []byte, pageURL string, maxChars int) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "(invalid page URL)"
	}
	article, err := readability.FromReader(strings.NewReader(string(body)), u)
	if err != nil {
		return "(no readable article region)"
	}
	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "(no readable article region)"
	}
	runes := []rune(text)
	if len(runes) > maxChars {
		return string(runes[:maxChars]) + "..."
	}
	return text
}
