package entity

import "time"

// RfpEmbedding is the vector side-channel row for one processed RFP. The
// embedding is computed from the title and AI summary after insert; a missing
// embedding never blocks or invalidates the RFP row itself.
type RfpEmbedding struct {
	RfpHash   string
	Embedding []float32
	Model     string
	Dimension int
	CreatedAt time.Time
}

// Validate checks the embedding fields before persistence.
func (e *RfpEmbedding) Validate() error {
	if e.RfpHash == "" {
		return &ValidationError{Field: "rfp_hash", Message: "rfp_hash is required"}
	}
	if len(e.Embedding) == 0 {
		return &ValidationError{Field: "embedding", Message: "embedding must not be empty"}
	}
	if e.Dimension != 0 && e.Dimension != len(e.Embedding) {
		return &ValidationError{Field: "dimension", Message: "dimension does not match embedding length"}
	}
	if e.Model == "" {
		return &ValidationError{Field: "model", Message: "model is required"}
	}
	return nil
}
