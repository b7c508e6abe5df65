package entity

import (
	"crypto/sha256"
	"encoding/hex"
)

// RfpHash returns the fingerprint of a processed row: hex SHA-256 of the
// final resolved URL.
func RfpHash(finalURL string) string {
	sum := sha256.Sum256([]byte(finalURL))
	return hex.EncodeToString(sum[:])
}

// ExclusionKey returns the fingerprint of an exclusion row: hex SHA-256 of
// title concatenated with a URL. Pre-navigation decisions key on the listing
// URL, final-stage decisions on the final URL.
func ExclusionKey(title, url string) string {
	sum := sha256.Sum256([]byte(title + url))
	return hex.EncodeToString(sum[:])
}

// ContentKey returns the per-run summary cache key for a piece of extracted
// detail text.
func ContentKey(detail string) string {
	sum := sha256.Sum256([]byte(detail))
	return hex.EncodeToString(sum[:])
}
