// Package rfp provides HTTP handlers for processed-opportunity endpoints.
// It includes handlers for listing, fetching, deleting records, serving the
// stored PDF artifact, and the semantic search and Q&A endpoints.
package rfp

import "time"

// DTO represents the JSON structure for a processed opportunity.
type DTO struct {
	Hash        string    `json:"hash" example:"3b6fe19a0f9ec2cbd1a9e4b0b0e1e0d3a1c2b3d4e5f60718293a4b5c6d7e8f90"`
	Title       string    `json:"title" example:"次期基幹システム更改に係る情報提供依頼"`
	URL         string    `json:"url" example:"https://example.go.jp/procurement/rfp/123"`
	Site        string    `json:"site" example:"調達ポータル"`
	AISummary   string    `json:"ai_summary" example:"基幹システム更改のRFI。提案期限は2026年3月末。"`
	ProcessedAt time.Time `json:"processed_at" example:"2026-02-10T09:00:00Z"`
	HasPDF      bool      `json:"has_pdf" example:"true"`
}

// DetailDTO is the single-record response; it adds the extracted page text.
type DetailDTO struct {
	DTO
	DetailContent string `json:"detail_content"`
}
