// Package website provides HTTP handlers for the monitored-site endpoints.
// It includes handlers for listing, creating, updating, and deleting the
// listing pages the discovery pipeline crawls.
package website

import "time"

// DTO represents the JSON structure for a monitored listing site.
type DTO struct {
	ID        int64     `json:"id" example:"1"`
	Name      string    `json:"name" example:"調達ポータル"`
	URL       string    `json:"url" example:"https://example.go.jp/procurement/"`
	Kind      string    `json:"kind" example:"html"`
	Enabled   bool      `json:"enabled" example:"true"`
	CreatedAt time.Time `json:"created_at" example:"2026-01-15T12:00:00Z"`
}
