package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/webide/backend/internal/preview/sanitize"
)

func TestRender(t *testing.T) {
	r := NewHTMLRenderer("", nil)

	d := r.Render(`<h1 onclick="x()">Hi</h1><script>alert(1)</script><img src="data:image/png;base64,AA">`)

	require.NotNil(t, d)
	assert.True(t, d.Success)
	assert.Equal(t, "allow-scripts allow-same-origin allow-forms allow-modals", d.SandboxAttributes)
	assert.Equal(t, SecurityInfo{Sandbox: SandboxAttributes, CSP: ContentSecurityPolicy, Isolated: true}, d.SecurityInfo)

	assert.True(t, strings.HasPrefix(d.Content, "<!DOCTYPE html>"), d.Content)
	assert.Contains(t, d.Content, "<h1>Hi</h1>")
	assert.Contains(t, d.Content, "Content-Security-Policy")
	assert.Contains(t, d.Content, sanitize.BlockedScheme)
	assert.NotContains(t, d.Content, "<script")
	assert.NotContains(t, d.Content, "onclick")
}

func TestRenderFullDocument(t *testing.T) {
	r := NewHTMLRenderer(sanitize.PolicyDenylist, nil)

	d := r.Render("<!doctype html><html><head><title>T</title></head><body><p>x</p></body></html>")

	assert.True(t, d.Success)
	assert.Equal(t, 1, strings.Count(strings.ToLower(d.Content), "<!doctype"))
	assert.Equal(t, 1, strings.Count(d.Content, "<head>"))
	assert.Contains(t, d.Content, "<title>T</title>")
	assert.Less(t, strings.Index(d.Content, "charset"), strings.Index(d.Content, "<title>"))
}

func TestRenderDecodedReferences(t *testing.T) {
	r := NewHTMLRenderer(sanitize.PolicyDenylist, nil)

	d := r.Render(`<a href="&#106;avascript:alert(1)">x</a>`)

	assert.NotContains(t, strings.ToLower(d.Content), "javascript:")
}

func TestRenderAlwaysSucceeds(t *testing.T) {
	r := NewHTMLRenderer(sanitize.PolicyAllowlist, nil)

	for _, input := range []string{"", "plain text", "<<<>>>", "\x00\xff", "<div><span>unclosed"} {
		d := r.Render(input)
		assert.True(t, d.Success, input)
		assert.Equal(t, SandboxAttributes, d.SandboxAttributes)
		assert.NotEmpty(t, d.Content)
	}
}

func TestCSSPreview(t *testing.T) {
	p := NewCSSPreviewer(nil)

	css := "@import url(evil.css);\nbody { color: red; behavior: url(x.htc); }"
	result := p.Preview(css, "")

	require.True(t, result.Success)
	assert.Empty(t, result.Error)
	assert.Equal(t, sanitize.CSS(css), result.SanitizedCSS)
	assert.NotContains(t, result.SanitizedCSS, "@import")
	assert.Contains(t, result.Content, "<style>")
	assert.Contains(t, result.Content, result.SanitizedCSS)
	assert.Contains(t, result.Content, "CSS Preview")
}

func TestCSSPreviewContext(t *testing.T) {
	p := NewCSSPreviewer(nil)

	result := p.Preview(".box { color: blue }", `<div class="box" onmouseover="x()">custom</div><script>1</script>`)

	require.True(t, result.Success)
	assert.Contains(t, result.Content, `<div class="box" >custom</div>`)
	assert.NotContains(t, result.Content, "<script")
	assert.NotContains(t, result.Content, "CSS Preview")
}

func TestCSSPreviewCannotCloseStyle(t *testing.T) {
	p := NewCSSPreviewer(nil)

	result := p.Preview("p{}</STYLE><img src=x>", "")

	require.True(t, result.Success)
	assert.Equal(t, 1, strings.Count(strings.ToLower(result.Content), "</style"))
	assert.Contains(t, result.Content, `<\/style`)
}
