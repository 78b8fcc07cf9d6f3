package sanitize

var cssRules = []rule{
	newRule(`(?i)@import\b[^;\n]*;?`, ""),
	newRule(`(?i)expression\s*\(`, "blocked("),
	newRule(`(?i)javascript\s*:`, ""),
	newRule(`(?i)behavior\s*:`, "behavior-blocked:"),
	newRule(`(?i)-moz-binding\s*:`, "binding-blocked:"),
}

// CSS strips @import rules and javascript: values, neutralizes expression()
// calls and renames behavior and -moz-binding declarations so browsers ignore them.
func CSS(style string) string {
	if style == "" {
		return ""
	}
	return fixpoint(style, cssRules)
}
