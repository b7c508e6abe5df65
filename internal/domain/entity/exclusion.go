package entity

import (
	"fmt"
	"time"
)

// Exclusion reasons. Only definitive rejections are persisted; transient
// failures must never produce an exclusion row.
const (
	ExclusionOutOfScope = "out_of_scope"
	ExclusionExpired    = "expired"
	ExclusionUnknown    = "unknown"
)

// RfpExclusion is a persistent decision preventing re-ingestion of an item.
// Hash is keyed on the final URL when navigation succeeded and on the listing
// URL otherwise, so the same rejected item is suppressed on every later run.
type RfpExclusion struct {
	Hash       string
	Reason     string
	Title      string
	Site       string
	ListingURL string
	DetailURL  *string
	DecidedAt  time.Time
}

// Validate checks the exclusion fields, in particular that the reason is one
// of the known definitive rejection reasons.
func (e *RfpExclusion) Validate() error {
	if e.Hash == "" {
		return &ValidationError{Field: "hash", Message: "hash is required"}
	}
	switch e.Reason {
	case ExclusionOutOfScope, ExclusionExpired, ExclusionUnknown:
	default:
		return fmt.Errorf("invalid reason: %q (must be %s, %s, or %s)",
			e.Reason, ExclusionOutOfScope, ExclusionExpired, ExclusionUnknown)
	}
	return nil
}
