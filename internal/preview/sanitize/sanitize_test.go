package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		absent  []string
		present []string
	}{
		{
			name:  "script block",
			input: `<p>hi</p><script>alert(1)</script>`,
			want:  `<p>hi</p>`,
		},
		{
			name:  "script block mixed case multiline",
			input: "<div><SCRIPT type=\"text/javascript\">\nvar a = 1;\nalert(a);\n</ScRiPt ></div>",
			want:  `<div></div>`,
		},
		{
			name:  "inline handler double quoted",
			input: `<button onclick="steal()">Go</button>`,
			want:  `<button >Go</button>`,
		},
		{
			name:  "inline handler unquoted after slash",
			input: `<img/onerror=alert(1) src=x>`,
			want:  `<img/ src=x>`,
		},
		{
			name:   "several handlers",
			input:  `<a onmouseover='x()' href="#" ONCLICK="y()">a</a>`,
			absent: []string{"onmouseover", "ONCLICK", "x()", "y()"},
		},
		{
			name:  "javascript uri",
			input: `<a href="javascript:alert(1)">x</a>`,
			want:  `<a href="alert(1)">x</a>`,
		},
		{
			name:    "data uri in attribute",
			input:   `<img src="data:image/png;base64,AAAA">`,
			want:    `<img src="blocked:image/png;base64,AAAA">`,
			present: []string{BlockedScheme},
		},
		{
			name:  "data uri in inline style",
			input: `<div style="background: url('data:image/svg+xml,abc')"></div>`,
			want:  `<div style="background: url('blocked:image/svg+xml,abc')"></div>`,
		},
		{
			name:   "nested script payload",
			input:  `<scr<script></script>ipt>alert(1)</script>`,
			absent: []string{"<script", "</script"},
		},
		{
			name:   "nested javascript scheme",
			input:  `<a href="javajavascript:script:alert(1)">x</a>`,
			absent: []string{"javascript:"},
		},
		{
			name:  "plain markup untouched",
			input: `<h1 class="title">Hello</h1><p>data is fine here</p>`,
			want:  `<h1 class="title">Hello</h1><p>data is fine here</p>`,
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HTML(tt.input)
			if tt.want != "" || tt.input == "" {
				assert.Equal(t, tt.want, got)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, got, s)
			}
			for _, s := range tt.present {
				assert.Contains(t, got, s)
			}
		})
	}
}

func TestHTMLIdempotent(t *testing.T) {
	payloads := []string{
		`<script>alert(1)</script><p onclick="x()">p</p>`,
		`<a href="javascript:void(0)">x</a><img src="data:text/html,<b>">`,
		`<scr<script></script>ipt>alert(1)</scr</script>ipt>`,
		`<div onload=go() onerror = 'bad'>text</div>`,
		`<iframe src=data:text/html;base64,PHNjcmlwdD4=></iframe>`,
		"<SCRIPT\n>x</SCRIPT>javascript :data:",
		"\xff\xfe<script>",
	}

	for _, p := range payloads {
		once := HTML(p)
		assert.Equal(t, once, HTML(once), "payload %q", p)
	}
}

func TestHTMLDeeplyNested(t *testing.T) {
	for _, depth := range []int{1, 33, 40, 200} {
		payload := `<a href="` + strings.Repeat("java", depth) + "javascript:" +
			strings.Repeat("script:", depth) + `alert(1)">x</a>`

		once := HTML(payload)
		assert.NotContains(t, strings.ToLower(once), "javascript:", "depth %d", depth)
		assert.Equal(t, once, HTML(once), "depth %d", depth)
	}

	nested := strings.Repeat("<scr", 50) + "<script></script>" + strings.Repeat("ipt>", 50) + "alert(1)"
	once := HTML(nested)
	assert.NotContains(t, strings.ToLower(once), "<script")
	assert.Equal(t, once, HTML(once))
}

func TestCSS(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "import with semicolon",
			input: "@import url('evil.css');\nbody { color: red; }",
			want:  "\nbody { color: red; }",
		},
		{
			name:  "import without semicolon keeps following lines",
			input: "@IMPORT 'x.css'\nh1 { margin: 0; }",
			want:  "\nh1 { margin: 0; }",
		},
		{
			name:  "expression",
			input: "div { width: expression(alert(1)); }",
			want:  "div { width: blocked(alert(1)); }",
		},
		{
			name:  "javascript value",
			input: "a { background: url(javascript:alert(1)); }",
			want:  "a { background: url(alert(1)); }",
		},
		{
			name:  "behavior",
			input: "li { behavior: url(x.htc); }",
			want:  "li { behavior-blocked: url(x.htc); }",
		},
		{
			name:  "moz binding",
			input: "p { -moz-binding: url(x.xml#b); }",
			want:  "p { binding-blocked: url(x.xml#b); }",
		},
		{
			name:  "plain css untouched",
			input: ".box { display: flex; color: #333; }",
			want:  ".box { display: flex; color: #333; }",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CSS(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CSS(got))
		})
	}
}

func TestCSSDeeplyNested(t *testing.T) {
	for _, depth := range []int{33, 100} {
		style := "a { background: url(" + strings.Repeat("java", depth) + "javascript:" +
			strings.Repeat("script:", depth) + "alert(1)); }"

		once := CSS(style)
		assert.NotContains(t, strings.ToLower(once), "javascript:", "depth %d", depth)
		assert.Equal(t, once, CSS(once), "depth %d", depth)
	}
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyDenylist, p)

	p, err = ParsePolicy(" AllowList ")
	require.NoError(t, err)
	assert.Equal(t, PolicyAllowlist, p)

	_, err = ParsePolicy("strict")
	assert.Error(t, err)
}

func TestPolicyHTML(t *testing.T) {
	input := `<p class="x" onclick="go()">hi</p><iframe src="https://example.com"></iframe><script>1</script>`

	deny := PolicyDenylist.HTML(input)
	assert.Contains(t, deny, "<iframe")
	assert.NotContains(t, deny, "onclick")

	allow := PolicyAllowlist.HTML(input)
	assert.NotContains(t, allow, "<iframe")
	assert.NotContains(t, allow, "<script")
	assert.True(t, strings.Contains(allow, `<p class="x">hi</p>`), allow)
}
