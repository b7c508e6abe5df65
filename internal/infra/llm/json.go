package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"rfp-radar/internal/usecase/discovery"
)

// Models asked for strict JSON still return fenced blocks, trailing commas,
// comments, and raw newlines inside string literals. The extractors below
// recover a usable object from such output instead of failing the item.
var (
	itemsArrayRe = regexp.MustCompile(`"items"\s*:\s*\[`)
	itemSplitRe  = regexp.MustCompile(`}\s*,\s*\{`)
	itemObjectRe = regexp.MustCompile(`\{[^{}]*"title"\s*:\s*"[^"]+"[^{}]*"url"\s*:\s*"[^"]+"[^{}]*\}`)
)

// ExtractObject parses a JSON object out of raw model output into v. It
// tries, in order: the fence-stripped text as-is, then the slice between the
// first '{' and the last '}' with up to three repair rounds. Failure returns
// discovery.ErrLLMParse.
func ExtractObject(out string, v any) error {
	s := stripFence(strings.TrimSpace(out))

	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		candidate := s[start : end+1]
		for range 3 {
			if err := json.Unmarshal([]byte(candidate), v); err == nil {
				return nil
			}
			candidate = strings.TrimSpace(repairFragment(candidate))
		}
	}
	return discovery.ErrLLMParse
}

// ExtractItems parses the listing response shape {"items": [...]}. When no
// whole object can be recovered it falls back to a balanced-bracket scan of
// the items array, then to scraping any object literal that carries both
// "title" and "url". An empty items array parsed from a well-formed answer
// is a valid result, not an error.
func ExtractItems(out string) ([]discovery.ListingItem, error) {
	var wrapper struct {
		Items []discovery.ListingItem `json:"items"`
	}
	if err := ExtractObject(out, &wrapper); err == nil {
		return wrapper.Items, nil
	}

	s := stripFence(strings.TrimSpace(out))
	if items := scanItemsArray(s); len(items) > 0 {
		return items, nil
	}
	if items := scrapeItemObjects(s); len(items) > 0 {
		return items, nil
	}
	return nil, discovery.ErrLLMParse
}

// stripFence removes a Markdown code fence. The caller trims s first, so
// the closing fence is the last line when present.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	lines = lines[1:]
	if n := len(lines); n > 0 && strings.HasSuffix(strings.TrimRight(lines[n-1], " \t"), "```") {
		lines = lines[:n-1]
	}
	return strings.Join(lines, "\n")
}

// repairFragment rewrites a fragment so a strict parse can be retried.
// Outside string literals it drops line and block comments, trailing commas
// before a closer, and carriage returns; inside string literals it escapes
// raw newlines and blanks other control characters. Comment stripping never
// touches string contents, so URL values keep their double slashes.
func repairFragment(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inStr := false
	escaped := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inStr {
			switch {
			case escaped:
				b.WriteByte(ch)
				escaped = false
			case ch == '\\':
				b.WriteByte(ch)
				escaped = true
			case ch == '"':
				b.WriteByte(ch)
				inStr = false
			case ch == '\n':
				b.WriteString(`\n`)
			case ch == '\r':
				b.WriteString(`\r`)
			case ch < 0x20:
				b.WriteByte(' ')
			default:
				b.WriteByte(ch)
			}
			continue
		}
		switch {
		case ch == '"':
			b.WriteByte(ch)
			inStr = true
		case ch == '/' && i+1 < len(s) && s[i+1] == '/':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			if i < len(s) {
				b.WriteByte('\n')
			}
		case ch == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end == -1 {
				i = len(s)
			} else {
				i += 2 + end + 1
			}
		case ch == ',' && nextNonSpaceIsCloser(s, i+1):
			// 閉じ括弧直前のカンマを落とす
		case ch == '\r' || ch == '\t':
			b.WriteByte(' ')
		case ch < 0x20 && ch != '\n':
			b.WriteByte(' ')
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// nextNonSpaceIsCloser reports whether the next non-whitespace byte at or
// after i closes an object or array.
func nextNonSpaceIsCloser(s string, i int) bool {
	for ; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		default:
			return false
		}
	}
	return false
}

// scanItemsArray finds the "items" array, isolates it with a balanced
// bracket scan, splits on object boundaries, and keeps every fragment that
// repairs into an object carrying both title and url.
func scanItemsArray(s string) []discovery.ListingItem {
	loc := itemsArrayRe.FindStringIndex(s)
	if loc == nil {
		return nil
	}
	idx := loc[1]
	depth := 1
	j := idx
	for j < len(s) && depth > 0 {
		switch s[j] {
		case '[':
			depth++
		case ']':
			depth--
		}
		j++
	}
	block := s[idx:]
	if depth == 0 {
		block = s[idx : j-1]
	}
	block = strings.TrimSpace(strings.Trim(strings.TrimSpace(block), "[]"))

	var items []discovery.ListingItem
	for _, part := range itemSplitRe.Split(block, -1) {
		frag := strings.TrimSpace(part)
		if frag == "" {
			continue
		}
		// 境界の分割で失われた括弧を付け直す
		if !strings.HasPrefix(frag, "{") {
			frag = "{" + frag
		}
		if !strings.HasSuffix(frag, "}") {
			frag += "}"
		}
		if item, ok := decodeItem(repairFragment(frag)); ok {
			items = append(items, item)
		}
	}
	return items
}

// scrapeItemObjects is the last resort: regex-match flat object literals
// that mention both required keys and keep the ones that parse.
func scrapeItemObjects(s string) []discovery.ListingItem {
	var items []discovery.ListingItem
	for _, m := range itemObjectRe.FindAllString(s, -1) {
		if item, ok := decodeItem(repairFragment(m)); ok {
			items = append(items, item)
		}
	}
	return items
}

// decodeItem parses one object fragment. Both title and url keys must be
// present; their values are validated later by the analyzer.
func decodeItem(frag string) (discovery.ListingItem, bool) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(frag), &probe); err != nil {
		return discovery.ListingItem{}, false
	}
	if _, ok := probe["title"]; !ok {
		return discovery.ListingItem{}, false
	}
	if _, ok := probe["url"]; !ok {
		return discovery.ListingItem{}, false
	}
	var item discovery.ListingItem
	if err := json.Unmarshal([]byte(frag), &item); err != nil {
		return discovery.ListingItem{}, false
	}
	return item, true
}
