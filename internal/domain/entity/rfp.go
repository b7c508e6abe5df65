// Package entity defines the core domain entities and validation logic for the
// application. It contains the fundamental business objects such as ProcessedRfp
// and RfpExclusion, along with their validation rules and domain-specific errors.
package entity

import "time"

// ProcessedRfp is the canonical record of an accepted opportunity.
// Hash is the hex SHA-256 of the final resolved URL and acts as the primary key.
// PDFContent holds the raw bytes when the final artifact is a PDF.
type ProcessedRfp struct {
	Hash          string
	Title         string
	URL           string
	Site          string
	ProcessedAt   time.Time
	DetailContent string
	AISummary     string
	PDFContent    []byte
}

// Validate checks that the record carries the fields required for persistence.
func (r *ProcessedRfp) Validate() error {
	if r.Hash == "" {
		return &ValidationError{Field: "hash", Message: "hash is required"}
	}
	if r.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if r.URL == "" {
		return &ValidationError{Field: "url", Message: "url is required"}
	}
	return nil
}

// HasPDF reports whether the record stores a PDF artifact.
func (r *ProcessedRfp) HasPDF() bool {
	return len(r.PDFContent) > 0
}
