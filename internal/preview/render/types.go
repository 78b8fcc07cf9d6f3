// Package render turns sanitized markup and styles into documents for the
// preview surface. The caller owns the iframe and is responsible for applying
// the sandbox attributes and CSP reported in each descriptor.
package render

// SandboxAttributes is the capability list granted to the preview iframe.
const SandboxAttributes = "allow-scripts allow-same-origin allow-forms allow-modals"

// ContentSecurityPolicy is embedded in every rendered document and reported in SecurityInfo.
const ContentSecurityPolicy = "default-src 'none'; script-src 'unsafe-inline'; style-src 'unsafe-inline'; " +
	"img-src 'self' https: blob:; font-src 'self' https:; connect-src 'none'; " +
	"form-action 'none'; base-uri 'none'"

// SecurityInfo describes the contract the caller must apply to the rendering surface.
type SecurityInfo struct {
	Sandbox  string `json:"sandbox"`
	CSP      string `json:"csp"`
	Isolated bool   `json:"isolated"`
}

// Descriptor is a renderable HTML document.
type Descriptor struct {
	Success           bool         `json:"success"`
	SandboxAttributes string       `json:"sandboxAttributes"`
	Content           string       `json:"content"`
	SecurityInfo      SecurityInfo `json:"securityInfo"`
}

// CSSPreview is the result of previewing a stylesheet. Error is set only when
// Success is false.
type CSSPreview struct {
	Success      bool   `json:"success"`
	Content      string `json:"content,omitempty"`
	SanitizedCSS string `json:"sanitizedCSS,omitempty"`
	Error        string `json:"error,omitempty"`
}

func defaultSecurityInfo() SecurityInfo {
	return SecurityInfo{
		Sandbox:  SandboxAttributes,
		CSP:      ContentSecurityPolicy,
		Isolated: true,
	}
}
