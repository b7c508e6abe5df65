package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRfpExclusion_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reason  string
		wantErr bool
	}{
		{name: "out of scope", reason: ExclusionOutOfScope},
		{name: "expired", reason: ExclusionExpired},
		{name: "unknown", reason: ExclusionUnknown},
		{name: "transient reason rejected", reason: "fetch_failed", wantErr: true},
		{name: "empty reason rejected", reason: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			excl := RfpExclusion{
				Hash:       ExclusionKey("Some RFP", "https://example.org/listing"),
				Reason:     tt.reason,
				Title:      "Some RFP",
				Site:       "Example Agency",
				ListingURL: "https://example.org/listing",
			}
			err := excl.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRfpExclusion_Validate_MissingHash(t *testing.T) {
	excl := RfpExclusion{Reason: ExclusionExpired}
	err := excl.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "hash")
}
