package entity

import "time"

// ScrapeConfig is the singleton scheduler state row. A run claim atomically
// reads and advances this row under a database row lock, which is what lets
// multiple replicas tick concurrently with exactly one of them running.
type ScrapeConfig struct {
	Enabled       bool
	IntervalHours float64
	NextRunAt     *time.Time
	LastRunAt     *time.Time
}

// Due reports whether a run should be claimed at the given instant.
func (c *ScrapeConfig) Due(now time.Time) bool {
	return c.Enabled && c.NextRunAt != nil && !now.Before(*c.NextRunAt)
}

// AdvanceFrom returns the next future run instant, stepping NextRunAt forward
// by IntervalHours repeatedly until it is strictly after now. A nil NextRunAt
// anchors at now plus one interval.
func (c *ScrapeConfig) AdvanceFrom(now time.Time) time.Time {
	step := time.Duration(c.IntervalHours * float64(time.Hour))
	if step <= 0 {
		step = time.Hour
	}
	next := now
	if c.NextRunAt != nil {
		next = *c.NextRunAt
	}
	for !next.After(now) {
		next = next.Add(step)
	}
	return next
}

// EmailSettings is the singleton recipient configuration for digest mail.
// Main recipients receive the human digest; debug recipients additionally
// receive the run log buffer.
type EmailSettings struct {
	MainRecipients  []string
	DebugRecipients []string
	UpdatedAt       time.Time
}
