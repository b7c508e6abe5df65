package text_test

import (
	"testing"

	"rfp-radar/internal/utils/text"
)

func TestStripControl(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "clean text unchanged",
			input:    "Request for Proposal",
			expected: "Request for Proposal",
		},
		{
			name:     "NUL byte removed",
			input:    "abc\x00def",
			expected: "abcdef",
		},
		{
			name:     "tab newline carriage return preserved",
			input:    "a\tb\nc\rd",
			expected: "a\tb\nc\rd",
		},
		{
			name:     "vertical tab and form feed removed",
			input:    "a\x0bb\x0cc",
			expected: "abc",
		},
		{
			name:     "full stripped range",
			input:    "\x01\x02\x03\x04\x05\x06\x07\x08x\x0e\x0f\x1e\x1fy",
			expected: "xy",
		},
		{
			name:     "multibyte text preserved",
			input:    "医療\x00システム",
			expected: "医療システム",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := text.StripControl(tt.input)
			if got != tt.expected {
				t.Errorf("StripControl(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"under limit", "hello", 10, "hello"},
		{"exact limit", "hello", 5, "hello"},
		{"over limit", "hello world", 5, "hello"},
		{"multibyte not split", "日本語テキスト", 3, "日本語"},
		{"zero max", "hello", 0, ""},
		{"negative max", "hello", -1, ""},
		{"empty input", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := text.TruncateRunes(tt.input, tt.max)
			if got != tt.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func TestNormalizeSpace(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"collapses runs", "a   b\t\nc", "a b c"},
		{"trims edges", "  hello  ", "hello"},
		{"already normal", "a b", "a b"},
		{"only whitespace", " \n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := text.NormalizeSpace(tt.input)
			if got != tt.expected {
				t.Errorf("NormalizeSpace(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
