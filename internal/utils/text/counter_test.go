package text_test

import (
	"testing"

	"rfp-radar/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"ASCII text", "hello", 5},
		{"ASCII with spaces", "request for proposal", 20},
		{"Japanese hiragana", "こんにちは", 5},
		{"Japanese kanji", "日本語", 3},
		{"English and Japanese", "hello世界", 7},
		{"mixed with numbers", "test123テスト", 10},
		{"ASCII with emoji", "Hello👋", 6},
		{"multiple emojis", "🚀✨🤖💡", 4},
		{"empty string", "", 0},
		{"single newline", "\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.want {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}
