package sanitize

import "regexp"

type rule struct {
	pattern *regexp.Regexp
	replace string
}

func newRule(expr, replace string) rule {
	return rule{pattern: regexp.MustCompile(expr), replace: replace}
}

// fixpoint applies rules in order until a full pass changes nothing.
//
// Removals shrink the input and rewrites never match their own output, so a
// changing pass has to consume input; the length bound only guards against a
// rule that breaks that property.
func fixpoint(s string, rules []rule) string {
	for limit := len(s) + 2; limit > 0; limit-- {
		next := s
		for _, r := range rules {
			next = r.pattern.ReplaceAllString(next, r.replace)
		}
		if next == s {
			return s
		}
		s = next
	}
	return s
}
