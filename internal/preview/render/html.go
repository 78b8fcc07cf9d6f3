package render

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/GriffinCanCode/webide/backend/internal/preview/sanitize"
)

// HTMLRenderer wraps sanitized markup in a complete document.
type HTMLRenderer struct {
	policy sanitize.Policy
	logger *zap.Logger
}

// NewHTMLRenderer creates a renderer. An empty policy means sanitize.PolicyDenylist.
func NewHTMLRenderer(policy sanitize.Policy, logger *zap.Logger) *HTMLRenderer {
	if policy == "" {
		policy = sanitize.PolicyDenylist
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTMLRenderer{policy: policy, logger: logger}
}

// Render always succeeds. If the sanitized markup cannot be assembled into a
// document it is returned as is.
func (r *HTMLRenderer) Render(markup string) *Descriptor {
	clean := r.policy.HTML(markup)

	content, err := assemble(clean)
	if err != nil {
		r.logger.Warn("Falling back to sanitized fragment", zap.Error(err))
		content = clean
	}

	return &Descriptor{
		Success:           true,
		SandboxAttributes: SandboxAttributes,
		Content:           content,
		SecurityInfo:      defaultSecurityInfo(),
	}
}

// assemble parses markup into a full document and puts charset and CSP metadata
// first in head. The result is sanitized again since the parser decodes
// character references in attribute values.
func assemble(markup string) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("document assembly panicked: %v", p)
		}
	}()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return "", fmt.Errorf("failed to parse markup: %w", err)
	}

	doc.Find("head").First().PrependHtml(metaTags())

	body, err := goquery.OuterHtml(doc.Selection)
	if err != nil {
		return "", fmt.Errorf("failed to render document: %w", err)
	}
	return sanitize.HTML("<!DOCTYPE html>" + stripDoctype(body)), nil
}

func metaTags() string {
	return `<meta charset="utf-8">` +
		`<meta http-equiv="Content-Security-Policy" content="` + html.EscapeString(ContentSecurityPolicy) + `">`
}

func stripDoctype(s string) string {
	if len(s) >= 9 && strings.EqualFold(s[:9], "<!doctype") {
		if end := strings.IndexByte(s, '>'); end >= 0 {
			return s[end+1:]
		}
	}
	return s
}
