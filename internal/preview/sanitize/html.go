package sanitize

// BlockedScheme replaces data: URIs in sanitized markup.
const BlockedScheme = "blocked:"

var htmlRules = []rule{
	// whole script blocks, then any orphan or unterminated script tag
	newRule(`(?is)<script\b[^>]*>.*?</script\s*>`, ""),
	newRule(`(?i)</?script\b[^>]*>?`, ""),

	// inline event handlers; the separator before the attribute is kept
	newRule(`(?i)([\s"'/])on\w+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]*)`, "$1"),

	newRule(`(?i)javascript\s*:`, ""),

	// data: URIs in attribute values and url(...) references
	newRule(`(?i)(=\s*["']?\s*)data\s*:`, "${1}"+BlockedScheme),
	newRule(`(?i)(url\(\s*["']?\s*)data\s*:`, "${1}"+BlockedScheme),
}

// HTML removes script blocks, inline event handlers and javascript: URIs from
// markup, and rewrites data: URIs to BlockedScheme.
func HTML(markup string) string {
	if markup == "" {
		return ""
	}
	return fixpoint(markup, htmlRules)
}
