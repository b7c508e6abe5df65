package discovery

import (
	"regexp"
	"strings"

	"rfp-radar/internal/utils/text"
)

// Boilerplate titles carry no information about the opportunity, so a page
// titled "Request for Proposals" must never shadow a descriptive listing
// title. The patterns match the whole remaining title after the procurement
// number prefix is stripped.
var (
	titleNumberPrefixRe = regexp.MustCompile(`(?i)^(?:rfp|rfq|rfa)\s*#?\s*\d+[-: ]+`)
	titlePDFMarkerRe    = regexp.MustCompile(`(?i)\(\s*pdf\s*\)`)
	genericTitleRe      = regexp.MustCompile(`(?i)^(?:` +
		`request for proposals?|` +
		`invitation for bids?|` +
		`invitation to bid|` +
		`request for qualifications?|` +
		`request for information|` +
		`notice of (?:funding|funds) opportunity|` +
		`notice of funding availability|` +
		`bid opportunity|` +
		`opportunity|` +
		`solicitation|` +
		`rfp|rfq|rfa|rfi` +
		`)$`)
)

// summaryPreamblePrefixes mark titles that are actually echoes of the
// summarization prompt or its refusal text, not titles at all.
var summaryPreamblePrefixes = []string{
	"please summarize",
	"here is a summary",
	"here is the provided",
	"summary -",
	"summary:",
	"the rfp was not provided",
}

// IsGenericTitle reports whether a title is too generic to identify an
// opportunity: empty, shorter than six characters after decoration is
// stripped, pure procurement boilerplate, or an echo of the summary prompt.
func IsGenericTitle(title string) bool {
	t := strings.TrimSpace(title)
	t = strings.Trim(t, `"'`)
	t = strings.TrimSpace(titlePDFMarkerRe.ReplaceAllString(t, ""))
	if len([]rune(t)) < 6 {
		return true
	}

	// "RFP #2026-04: Telehealth" は番号部分を外してから照合する
	core := strings.ToLower(strings.TrimSpace(titleNumberPrefixRe.ReplaceAllString(t, "")))
	if genericTitleRe.MatchString(core) {
		return true
	}
	for _, prefix := range summaryPreamblePrefixes {
		if strings.HasPrefix(core, prefix) {
			return true
		}
	}
	return false
}

// chooseTitle picks the stored title. A descriptive final-page title wins,
// then a descriptive listing title, then a title salvaged from the summary.
// The listing title is the last resort even when generic, because it is the
// only string guaranteed to be non-empty.
func chooseTitle(listing, final, summary string) string {
	listing = strings.TrimSpace(listing)
	final = strings.TrimSpace(final)
	if !IsGenericTitle(final) {
		return final
	}
	if !IsGenericTitle(listing) {
		return listing
	}
	if t := titleFromSummary(summary); t != "" {
		return t
	}
	return listing
}

var summarySectionLabelRe = regexp.MustCompile(`(?i)^(?:summary|scope of work|selection criteria|application requirements|timeline|funding)\s*[:\-]\s*`)

// titleFromSummary derives a title from the first meaningful summary line,
// with markdown decoration and the section label stripped. It returns ""
// when that line is itself generic, so the caller can fall back.
func titleFromSummary(summary string) string {
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#*- \t"))
		if line == "" {
			continue
		}
		line = strings.TrimSpace(summarySectionLabelRe.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		line = text.TruncateRunes(line, 120)
		if IsGenericTitle(line) {
			return ""
		}
		return line
	}
	return ""
}
