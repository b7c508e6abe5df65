package pathutil

import (
	"strings"
	"testing"
)

func TestExtractHash(t *testing.T) {
	valid := strings.Repeat("ab12cd34", 8)

	tests := []struct {
		name    string
		path    string
		prefix  string
		want    string
		wantErr bool
	}{
		{
			name:   "valid hash",
			path:   "/rfps/" + valid,
			prefix: "/rfps/",
			want:   valid,
		},
		{
			name:    "too short",
			path:    "/rfps/abc123",
			prefix:  "/rfps/",
			wantErr: true,
		},
		{
			name:    "too long",
			path:    "/rfps/" + valid + "ff",
			prefix:  "/rfps/",
			wantErr: true,
		},
		{
			name:    "uppercase rejected",
			path:    "/rfps/" + strings.ToUpper(valid),
			prefix:  "/rfps/",
			wantErr: true,
		},
		{
			name:    "non-hex characters",
			path:    "/rfps/" + strings.Repeat("zz12cd34", 8),
			prefix:  "/rfps/",
			wantErr: true,
		},
		{
			name:    "empty after prefix",
			path:    "/rfps/",
			prefix:  "/rfps/",
			wantErr: true,
		},
		{
			name:   "nested prefix",
			path:   "/rfps/" + valid + "/pdf",
			prefix: "/rfps/",
			// trailing segment makes it invalid, caller strips suffixes first
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractHash(tt.path, tt.prefix)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ExtractHash() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractHash() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractHash() = %q, want %q", got, tt.want)
			}
		})
	}
}
