// Package text provides utilities for text processing and analysis.
// This package includes reusable functions for character counting, control
// character sanitization, and rune-safe truncation used by the crawler and
// the LLM prompt builders.
package text

// CountRunes counts Unicode characters (runes) in text rather than bytes,
// so Japanese text and emoji are counted the way LLM providers bill them.
// Shared across the Bedrock, Anthropic, and OpenAI clients to keep prompt
// budgeting consistent.
func CountRunes(text string) int {
	return len([]rune(text))
}
