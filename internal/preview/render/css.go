package render

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webide/backend/internal/preview/sanitize"
)

// DefaultHTMLContext is the sample markup styles are previewed against.
const DefaultHTMLContext = `<div class="preview-container">
  <h1>CSS Preview</h1>
  <p>This is a paragraph to demonstrate your styles.</p>
  <button>Button</button>
  <div class="box">Box element</div>
  <ul><li>List item 1</li><li>List item 2</li></ul>
</div>`

var styleCloser = regexp.MustCompile(`(?i)</style`)

// CSSPreviewer places a stylesheet into a minimal standalone document.
type CSSPreviewer struct {
	logger *zap.Logger
}

// NewCSSPreviewer creates a previewer.
func NewCSSPreviewer(logger *zap.Logger) *CSSPreviewer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSSPreviewer{logger: logger}
}

// Preview sanitizes css and renders it against htmlContext, or
// DefaultHTMLContext when htmlContext is empty. Failures come back as a
// CSSPreview with Success false.
func (p *CSSPreviewer) Preview(css, htmlContext string) (preview *CSSPreview) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("CSS preview failed", zap.Any("panic", r))
			preview = &CSSPreview{Success: false, Error: fmt.Sprintf("CSS preview failed: %v", r)}
		}
	}()

	if htmlContext == "" {
		htmlContext = DefaultHTMLContext
	}
	clean := sanitize.CSS(css)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n")
	b.WriteString(metaTags())
	b.WriteString("\n<style>\n")
	b.WriteString(styleCloser.ReplaceAllString(clean, `<\/style`))
	b.WriteString("\n</style>\n</head>\n<body>\n")
	b.WriteString(sanitize.HTML(htmlContext))
	b.WriteString("\n</body>\n</html>")

	return &CSSPreview{
		Success:      true,
		Content:      b.String(),
		SanitizedCSS: clean,
	}
}
