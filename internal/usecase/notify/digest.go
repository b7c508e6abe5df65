package notify

import (
	"rfp-radar/internal/infra/notifier"
	"rfp-radar/internal/usecase/discovery"
)

// NewRunDigest converts the stats of a finished discovery run into the
// digest the channels deliver. runLog carries the run's captured log lines
// and may be nil; debug channels include it, main channels never see it
// because the dispatch service strips it before handing the digest over.
func NewRunDigest(stats *discovery.RunStats, runLog []string) *notifier.Digest {
	d := &notifier.Digest{
		GeneratedAt:   stats.StartedAt,
		Duration:      stats.Duration,
		Sites:         stats.Sites,
		SitesFailed:   stats.SitesFailed,
		ItemsProposed: stats.ItemsProposed,
		NewCount:      stats.NewCount,
		Excluded:      stats.Excluded,
		Failed:        stats.Failed,
		RunLog:        runLog,
	}
	for _, r := range stats.NewRfps {
		d.Items = append(d.Items, notifier.DigestItem{
			Title:   r.Title,
			URL:     r.URL,
			Site:    r.Site,
			Summary: r.Summary,
		})
	}
	return d
}
