// Package rfp provides use cases for querying and managing processed RFP
// records. Records are keyed by the hex SHA-256 hash of their final resolved
// URL; all lookups and deletions go through that key.
package rfp

import "errors"

// Sentinel errors for RFP use case operations.
var (
	// ErrRfpNotFound indicates that no processed record exists for the hash.
	ErrRfpNotFound = errors.New("rfp not found")

	// ErrInvalidHash indicates that the supplied key is not a hex SHA-256
	// digest. Hash keys are exactly 64 lowercase hex characters.
	ErrInvalidHash = errors.New("invalid rfp hash")

	// ErrPDFNotFound indicates that the record exists without a stored PDF
	// artifact, or does not exist at all.
	ErrPDFNotFound = errors.New("no pdf stored for rfp")
)
