package text

import "strings"

// StripControl removes C0 control characters from text while preserving
// tab (0x09), line feed (0x0A), and carriage return (0x0D).
//
// Removed ranges: 0x00-0x08, 0x0B, 0x0C, 0x0E-0x1F.
//
// PDF extractors and HTML parsers occasionally emit NUL and other control
// bytes that PostgreSQL rejects inside TEXT columns and that corrupt JSON
// payloads sent to LLM providers, so every extracted string passes through
// here before being persisted or prompted.
func StripControl(s string) string {
	// 制御文字が無い場合はアロケーションしない
	if !strings.ContainsFunc(s, isStrippedControl) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isStrippedControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isStrippedControl(r rune) bool {
	if r > 0x1F {
		return false
	}
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return true
}

// TruncateRunes shortens text to at most max runes.
//
// Truncation counts runes, not bytes, so multi-byte characters are never
// split in the middle. A non-positive max returns the empty string.
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

// NormalizeSpace collapses runs of whitespace into single spaces and trims
// the result. Used when flattening HTML fragments into one-line link texts.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
