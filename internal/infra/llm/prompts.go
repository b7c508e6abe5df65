package llm

import (
	"fmt"
	"strings"

	"rfp-radar/internal/usecase/ai"
	"rfp-radar/internal/usecase/discovery"
	"rfp-radar/internal/utils/text"
)

// The prompts below are the tuned production wording. Edits change model
// behavior across every monitored site, so treat them like schema changes.

// ListingSystemPrompt guides candidate extraction from a listing page.
const ListingSystemPrompt = "You are a careful web analysis assistant. When returning detail_source_url: " +
	"- It MUST be chosen from the list under \"Top links\" or be a direct .pdf link. " +
	"- Do NOT use the page URL unless it is clearly a single-item detail page (rare for listing pages). " +
	"- Prefer links whose local context mentions the item title or contains descriptive details (e.g., Learn more, Apply, Details, PDF). " +
	"- Prefer deeper, specific paths over general section pages. " +
	"- If you cannot find a suitable detail link for an item, OMIT that item. " +
	"Prefer links that: " +
	"- are marked is_learn_more=true, " +
	"- or have a nearest heading matching the item title, " +
	"- or are is_pdf=true and clearly about the item, " +
	"and avoid links where is_generic_listing=true. " +
	"Scope filter: ONLY include items that are clearly Healthcare IT / public health informatics / health data systems. " +
	"Examples to INCLUDE: data modernization, surveillance systems, registries, LIMS, HIE, EHR/EMR, HL7/FHIR, interoperability, data platforms/warehouses (Snowflake/Azure/AWS/GCP), ETL/ELT, APIs/integration, dashboards/BI/analytics, cloud engineering, cybersecurity for health data. " +
	"Examples to EXCLUDE: construction/facilities, architectural, legal, HR/staffing jobs, direct clinical services, supplies/equipment, travel, printing, events, general marketing/comms, non-IT training not about data systems. " +
	"If topic is ambiguous or not enough information is shown on this page, OMIT it at the listing stage. " +
	"Return strict JSON only, no comments or markdown. IMPORTANT: Only include an item if the date you rely on is clearly a submission / application / proposal deadline (NOT a posted/published/announcement date). If the only visible date is a posted/publish date and there is no explicit deadline language (e.g., Due/Deadline/Closing), omit the item. Your answer will be evaluated primarily by whether detail_link_index correctly references a link in \"Top links\" that provides specific details for the item."

const listingPromptTemplate = `You are analyzing a single web page for RFP/Opportunity items.
You are given:
1) A plain-text snapshot of the page (truncated).
2) A list of anchor links (text + href).
3) A list of existing items already in the database (title + url).
 4) Today's date (YYYY-MM-DD): {today}

Scope:
- ONLY include items clearly related to Healthcare IT / public health informatics / health data systems.
- Include: data modernization, certification, registries, LIMS, HIE, EHR/EMR, HL7/FHIR, interoperability, APIs, data platforms/warehouses, ETL/ELT, dashboards/BI/analytics, cloud engineering, cybersecurity for health data.
- Exclude: construction/facilities, architectural, legal, HR/staffing jobs, direct clinical services, supplies/equipment, travel, printing, events, general marketing/comms, non-IT training.
- If uncertain or ambiguous from this page, omit; a later navigation step cannot fix topic mismatch.

Task:
- Identify any new RFP/Opportunity items not already in the database.
- Include consulting/contractor solicitations, RFQs, and RFPs as valid opportunities. Exclude only full-time/part-time employment job postings from HR/careers pages.
- Prefer concrete detail pages or direct PDF links if available.
- detail_source_url must be selected from the provided Top links (anchor list) or be a direct .pdf link on the same site. Do not repeat the page URL unless the page is itself a single-item detail page.
- If the page clearly indicates an opportunity is closed/expired/no-longer accepting applications (e.g., "Closed", "Deadline has passed", "No longer accepting applications", "Application window closed", "Archived", "Award made", "This opportunity is closed"), EXCLUDE the item.
- If a clear deadline is shown on this page, prefer items with a future deadline and ignore those clearly in the past. If a clear deadline is not shown here, you may still include the item if the link appears to lead to a detailed RFP/solicitation page or PDF; a later step will validate deadline/recency.
- Return ONLY strict JSON with this schema:

{
  "items": [
    {
      "title": "string (required)",
      "url": "string (required, human-friendly landing/detail URL)",
      "detail_link_index": "integer (required, index of the chosen link from Top links)",
      "detail_source_url": "string (optional, should equal the href of the chosen Top link)",
      "content_snippet": "string (optional, short excerpt from the page supporting the find)"
    }
  ]
}

Rules:
- Do not include markdown or comments. JSON only.
- Ensure URLs are absolute and valid (use the provided anchors).
- If nothing new is found, return {"items":[]}.
- Listing page URL: {page_url}. Do NOT select this as a detail link.
- Do not treat posted/published/announcement dates as deadlines unless there is explicit deadline language adjacent to them. Terms like "Expiration Date" do count as deadlines when present.
 - When a date appears without a year (e.g., "June 3"), assume the current year (TODAY) for comparison; if that makes it clearly in the past, consider the item expired on this page.

Existing DB items (title,url):
{existing}

Page text (truncated):
"""
{text}
"""

Top links (indexed, with metadata):
{links}
`

// NavSystemPrompt guides the hop-by-hop walk toward the full RFP page.
const NavSystemPrompt = "You are navigating toward the actual full RFP page or PDF. " +
	"At every hop you are given the current page text and its links. " +
	"Decide if CURRENT page is the final RFP (full opportunity details including scope, deadlines, funding, how to apply). " +
	"If yes, return status='final' and no next_link_index. If not, select the single most promising link index to continue navigation. " +
	"If you see clear language that the opportunity is closed/expired/no longer accepting applications, or the expiration date listed is clearly in the past relative to TODAY shown in the prompt, return status='expired' immediately and stop. " +
	"When a date is shown without a year, assume the year is the current year (TODAY) for comparisons. If that makes it in the past, treat it as expired. " +
	"Apply the same Healthcare IT scope filter as the listing step: if the CURRENT page clearly indicates the opportunity is not Healthcare IT / public health informatics / health data systems, return status='give_up'. " +
	"Prefer links that look like they contain full details, PDF downloads, application packets, or solicitations. Avoid navigation loops and generic site pages."

const navPromptTemplate = `CURRENT PAGE URL: {page_url}
HOP: {hop}/{max_hops}
TODAY: {today}

Existing final RFPs (titles) for this site (context only):
{existing_titles}

Page text (truncated):
<<<PAGE_TEXT_START>>>
{page_text}
<<<PAGE_TEXT_END>>>

Links (indexed):
{links}

Return ONLY strict JSON with this schema:
{
    "status": "final" | "continue" | "give_up" | "expired",
    "reason": "short explanation",
    "final": {
            "title": "string (required if status=final)",
            "url": "string (absolute, required if status=final)"
    } ,
    "next_link_index": integer (required if status=continue)
}

Rules:
- status=final only if this page or a direct PDF link is clearly the full RFP.
- status=continue if you are confident another link leads closer to the RFP; pick best next_link_index.
- status=give_up if page is unrelated or no meaningful path after careful inspection.
- status=expired if the page clearly indicates the opportunity is closed/expired/no longer accepting applications, or the expiration date listed is clearly in the past relative to today's date, which is {today}.
 - When a date appears without a year (e.g., "June 3"), assume the current year ({current_year}). If that date is before TODAY, treat as expired.
- Do not treat posted/published/announcement dates as deadlines.
- If status=expired, include the exact sentence or line containing the deadline/closing text in the "reason" for auditability.
- No markdown, comments, or extra keys.
`

// FinalSystemPrompt guides the active-or-expired verdict on a final page.
const FinalSystemPrompt = "You are validating a final RFP/Opportunity page or PDF. " +
	"Return JSON only. Determine if it should be stored as ACTIVE or skipped as EXPIRED. " +
	"ACTIVE only if there is a clear submission/application/proposal deadline that is in the FUTURE relative to TODAY. " +
	"Do not treat posted/published/announcement dates as deadlines. If a date appears without a year, assume the current year (TODAY). " +
	"Do NOT roll month/day forward to next year. If the month/day is earlier than TODAY in the current year, it is in the past."

const finalPromptTemplate = `TODAY: {today}
PAGE URL: {page_url}

Page content (truncated):
<<<CONTENT_START>>>
{content}
<<<CONTENT_END>>>

Return ONLY strict JSON with this schema:
{
    "status": "active" | "expired" | "unknown",
    "reason": "short explanation",
    "matched_text": "the exact sentence/line containing the deadline/closing language if present, else empty",
    "deadline_iso": "YYYY-MM-DD or null (normalize your interpreted deadline)"
}

Rules:
- status=active only if there is explicit deadline wording (Due/Deadline/Applications Due/Closing) and the deadline date is in the future relative to TODAY.
- status=expired if the deadline date is clearly in the past or the page states closed/no longer accepting applications.
- When a date appears without a year, assume the current year ({current_year}).
- Do not treat posted/published/announcement dates as deadlines.
- If uncertain, return status="unknown".
 - Always provide deadline_iso when status is active or expired. Use the format YYYY-MM-DD. Compare it to TODAY to decide status. Do NOT roll to next year.
`

// ScopeSystemPrompt guides the standalone domain check that runs on final
// content before an opportunity is stored.
const ScopeSystemPrompt = "You are validating whether a final RFP/Opportunity belongs to the Healthcare IT domain. " +
	"Return JSON only. " +
	"IN SCOPE: data modernization, surveillance systems, registries, LIMS, HIE, EHR/EMR, HL7/FHIR, interoperability, data platforms/warehouses (Snowflake/Azure/AWS/GCP), ETL/ELT, APIs/integration, dashboards/BI/analytics, cloud engineering, cybersecurity for health data. " +
	"OUT OF SCOPE: construction/facilities, architectural, legal, HR/staffing jobs, direct clinical services, supplies/equipment, travel, printing, events, general marketing/comms, non-IT training not about data systems. " +
	"Judge by the actual work requested, not by the issuing agency: a health department buying roof repairs is out of scope."

const scopePromptTemplate = `TITLE: {title}
URL: {url}

Content (truncated):
<<<CONTENT_START>>>
{content}
<<<CONTENT_END>>>

Return ONLY strict JSON with this schema:
{
    "in_scope": true | false,
    "reason": "short explanation"
}

Rules:
- in_scope=true only if the work requested is clearly Healthcare IT / public health informatics / health data systems.
- in_scope=false if the work is primarily construction, legal, staffing, clinical services, supplies, or otherwise non-IT.
- No markdown, comments, or extra keys.
`

// AnswerSystemPrompt guides the grounded Q&A call over retrieved summaries.
const AnswerSystemPrompt = "You answer questions about stored RFP/Opportunity records using only the provided context. " +
	"If you don't know the answer from the context, just say that you don't know, don't try to make up an answer. " +
	"When an answer draws on a specific opportunity, name its title so the reader can find it."

const answerPromptTemplate = `Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.

Context:
{context}

Question: {question}
`

// summaryPromptPreamble precedes the final text in the summary call. The
// section names are load-bearing: the digest email and the admin UI split
// the stored summary on them.
const summaryPromptPreamble = "Please summarize this RFP provided, seperate the details into the following sections\n" +
	"Summary - A very brief summary of the work:\n" +
	"Scope of work - A summary of the work to be done, as well as key competancies relevant to completing the work\n" +
	"Selection Criteria - Anything relevant to being selected, usually a section for this, but might be relevant info elsewhere too\n" +
	"Application requirements - Copy this section exactly if found, if not found, just mention that it couldn't be found\n" +
	"Timeline - Focus on the application deadline and project period, as well as any other relevant time related constraints\n" +
	"Funding - All info related to the funding of the project, like the award amount and hourly pay\n\n" +
	"Here is the provided RFP, if there is nothing below this line, or it is definitely not an entire RFP (website homepage, etc), just mention that the RFP was not provided:\n\n"

const (
	// maxKnownItemsInPrompt caps the known-rows section of the listing prompt.
	maxKnownItemsInPrompt = 100
	// maxKnownTitlesInPrompt caps the context titles in the navigation prompt.
	maxKnownTitlesInPrompt = 40
	// maxScopeContentChars is how much final text the scope check reads.
	maxScopeContentChars = 12000
)

// BuildListingPrompt fills the listing template with the page snapshot, the
// indexed link list, and the rows the model should treat as already known.
func BuildListingPrompt(page *discovery.PageView, known []discovery.KnownItem, listingURL string) string {
	rows := known
	if len(rows) > maxKnownItemsInPrompt {
		rows = rows[:maxKnownItemsInPrompt]
	}
	lines := make([]string, 0, len(rows))
	for _, k := range rows {
		lines = append(lines, fmt.Sprintf("- %s | %s", strings.TrimSpace(k.Title), strings.TrimSpace(k.URL)))
	}
	existing := strings.Join(lines, "\n")
	if existing == "" {
		existing = "(none)"
	}

	return strings.NewReplacer(
		"{existing}", existing,
		"{text}", page.Text,
		"{links}", formatListingLinks(page.Links),
		"{page_url}", listingURL,
		"{today}", discovery.Today(),
	).Replace(listingPromptTemplate)
}

// BuildNavPrompt fills the navigation template for one hop decision.
func BuildNavPrompt(page *discovery.PageView, knownTitles []string, hop, maxHops int) string {
	titles := knownTitles
	if len(titles) > maxKnownTitlesInPrompt {
		titles = titles[:maxKnownTitlesInPrompt]
	}
	kept := make([]string, 0, len(titles))
	for _, t := range titles {
		if t = strings.TrimSpace(t); t != "" {
			kept = append(kept, t)
		}
	}
	existingTitles := strings.Join(kept, ", ")
	if existingTitles == "" {
		existingTitles = "(none)"
	}

	today := discovery.Today()
	return strings.NewReplacer(
		"{page_url}", page.FinalURL,
		"{hop}", fmt.Sprintf("%d", hop),
		"{max_hops}", fmt.Sprintf("%d", maxHops),
		"{today}", today,
		"{current_year}", currentYear(today),
		"{existing_titles}", existingTitles,
		"{page_text}", page.Text,
		"{links}", formatNavLinks(page.Links),
	).Replace(navPromptTemplate)
}

// BuildFinalPrompt fills the final-page template. Content is truncated to
// maxChars runes.
func BuildFinalPrompt(content, pageURL string, maxChars int) string {
	today := discovery.Today()
	return strings.NewReplacer(
		"{today}", today,
		"{current_year}", currentYear(today),
		"{page_url}", pageURL,
		"{content}", text.TruncateRunes(content, maxChars),
	).Replace(finalPromptTemplate)
}

// BuildScopePrompt fills the scope-check template with the item's title,
// URL, and the opening slice of its final content.
func BuildScopePrompt(title, url, content string) string {
	return strings.NewReplacer(
		"{title}", title,
		"{url}", url,
		"{content}", text.TruncateRunes(content, maxScopeContentChars),
	).Replace(scopePromptTemplate)
}

// BuildSummaryPrompt appends the final text to the summary instructions.
func BuildSummaryPrompt(content string) string {
	return summaryPromptPreamble + content + " "
}

// BuildAnswerPrompt fills the Q&A template with the retrieved passages and
// the question. Passages render as title/URL headers over their summaries,
// joined by blank lines; zero passages render as "(none)".
func BuildAnswerPrompt(question string, passages []ai.Passage) string {
	blocks := make([]string, 0, len(passages))
	for _, p := range passages {
		var b strings.Builder
		fmt.Fprintf(&b, "Title: %s\nURL: %s\n", strings.TrimSpace(p.Title), strings.TrimSpace(p.URL))
		if summary := strings.TrimSpace(p.Summary); summary != "" {
			b.WriteString(summary)
		}
		blocks = append(blocks, strings.TrimRight(b.String(), "\n"))
	}
	contextBlock := strings.Join(blocks, "\n\n")
	if contextBlock == "" {
		contextBlock = "(none)"
	}

	return strings.NewReplacer(
		"{context}", contextBlock,
		"{question}", question,
	).Replace(answerPromptTemplate)
}

func currentYear(today string) string {
	return strings.SplitN(today, "-", 2)[0]
}

func formatListingLinks(links []discovery.Link) string {
	var b strings.Builder
	for i, l := range links {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%d] %s -> %s | heading: %s | context: %s | flags: learn_more=%t, apply=%t, pdf=%t, generic_listing=%t, depth=%d",
			i, l.Text, l.Href, l.Heading, l.Context, l.IsLearnMore, l.IsApply, l.IsPDF, l.IsGenericListing, l.Depth)
	}
	return b.String()
}

// formatNavLinks renders the shorter link rows used after the listing hop.
// Context and the generic-listing flag are not included.
func formatNavLinks(links []discovery.Link) string {
	var b strings.Builder
	for i, l := range links {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "- [%d] %s -> %s | heading: %s | flags: learn_more=%t, apply=%t, pdf=%t, depth=%d",
			i, l.Text, l.Href, l.Heading, l.IsLearnMore, l.IsApply, l.IsPDF, l.Depth)
	}
	return b.String()
}
