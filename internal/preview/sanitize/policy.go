package sanitize

import (
	"fmt"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// Policy selects how markup is cleaned before rendering.
type Policy string

const (
	// PolicyDenylist applies only the regex denylist.
	PolicyDenylist Policy = "denylist"
	// PolicyAllowlist runs bluemonday's UGC policy first, then the denylist.
	PolicyAllowlist Policy = "allowlist"
)

// ugcPolicy is built once; bluemonday policies are safe for concurrent use after setup.
var ugcPolicy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowStyling()
	return p
})

// ParsePolicy resolves a configured policy name. Empty means PolicyDenylist.
func ParsePolicy(name string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(name))) {
	case "", PolicyDenylist:
		return PolicyDenylist, nil
	case PolicyAllowlist:
		return PolicyAllowlist, nil
	default:
		return "", fmt.Errorf("unknown sanitize policy %q", name)
	}
}

// HTML cleans markup according to the policy.
func (p Policy) HTML(markup string) string {
	if p == PolicyAllowlist {
		markup = ugcPolicy().Sanitize(markup)
	}
	return HTML(markup)
}
