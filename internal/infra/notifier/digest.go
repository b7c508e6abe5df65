package notifier

import (
	"fmt"
	"strings"
	"time"
)

// Digest is the run summary delivered after a scrape run. Every channel
// renders the same digest in its own format; RunLog is populated only for
// debug digests and only the email channel includes it.
type Digest struct {
	// GeneratedAt is the run start time in UTC.
	GeneratedAt time.Time
	// Duration is the wall-clock length of the run.
	Duration time.Duration

	Sites         int
	SitesFailed   int
	ItemsProposed int
	NewCount      int
	Excluded      int
	Failed        int

	// Items lists the opportunities stored during this run.
	Items []DigestItem

	// RunLog carries the buffered warn/error lines of the run.
	RunLog []string
}

// DigestItem is one newly stored opportunity.
type DigestItem struct {
	Title   string
	URL     string
	Site    string
	Summary string
}

// Subject returns the digest mail subject line.
func (d *Digest) Subject() string {
	prefix := ""
	if len(d.RunLog) > 0 {
		prefix = "[debug] "
	}
	switch d.NewCount {
	case 0:
		return prefix + "RFP digest: no new opportunities"
	case 1:
		return prefix + "RFP digest: 1 new opportunity"
	default:
		return fmt.Sprintf("%sRFP digest: %d new opportunities", prefix, d.NewCount)
	}
}

// PlainText renders the digest as the plain-text mail body. Webhook channels
// use their own rich formats and fall back to this for notification previews.
func (d *Digest) PlainText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Scrape run started %s, took %s.\n\n",
		d.GeneratedAt.UTC().Format(time.RFC3339), d.Duration.Round(time.Second))

	fmt.Fprintf(&b, "Sites crawled:  %d", d.Sites)
	if d.SitesFailed > 0 {
		fmt.Fprintf(&b, " (%d failed)", d.SitesFailed)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Items proposed: %d\n", d.ItemsProposed)
	fmt.Fprintf(&b, "New:            %d\n", d.NewCount)
	fmt.Fprintf(&b, "Excluded:       %d\n", d.Excluded)
	fmt.Fprintf(&b, "Failed:         %d\n", d.Failed)

	if len(d.Items) > 0 {
		b.WriteString("\nNew opportunities:\n")
		for i, item := range d.Items {
			fmt.Fprintf(&b, "\n%d. %s\n   %s\n   Site: %s\n", i+1, item.Title, item.URL, item.Site)
			if item.Summary != "" {
				for _, line := range strings.Split(strings.TrimSpace(item.Summary), "\n") {
					fmt.Fprintf(&b, "   %s\n", line)
				}
			}
		}
	}

	if len(d.RunLog) > 0 {
		fmt.Fprintf(&b, "\n--- run log (%d lines) ---\n", len(d.RunLog))
		for _, line := range d.RunLog {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return b.String()
}
