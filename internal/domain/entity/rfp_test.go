package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessedRfp_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rfp     ProcessedRfp
		wantErr string
	}{
		{
			name: "valid record",
			rfp: ProcessedRfp{
				Hash:  RfpHash("https://example.org/rfp/42"),
				Title: "Health Information Exchange RFP",
				URL:   "https://example.org/rfp/42",
				Site:  "Example Agency",
			},
		},
		{
			name:    "missing hash",
			rfp:     ProcessedRfp{Title: "t", URL: "https://example.org/x"},
			wantErr: "hash",
		},
		{
			name:    "missing title",
			rfp:     ProcessedRfp{Hash: "abc", URL: "https://example.org/x"},
			wantErr: "title",
		},
		{
			name:    "missing url",
			rfp:     ProcessedRfp{Hash: "abc", Title: "t"},
			wantErr: "url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rfp.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProcessedRfp_HasPDF(t *testing.T) {
	rfp := ProcessedRfp{
		Hash:        "h",
		Title:       "t",
		URL:         "https://example.org/rfp.pdf",
		ProcessedAt: time.Now().UTC(),
	}
	assert.False(t, rfp.HasPDF())

	rfp.PDFContent = []byte("%PDF-1.7 ...")
	assert.True(t, rfp.HasPDF())
}
