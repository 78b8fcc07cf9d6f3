package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sanitize"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sandbox"
)

// bodyOverhead is the JSON envelope allowance on top of the source limit.
const bodyOverhead = 64 << 10

// ExecuteRequest is the body of POST /preview/execute.
type ExecuteRequest struct {
	SourceCode  string `json:"sourceCode"`
	FileName    string `json:"fileName" binding:"required"`
	TimeoutMs   int    `json:"timeoutMs"`
	HTMLContext string `json:"htmlContext"`
}

// RenderHTMLRequest is the body of POST /preview/html.
type RenderHTMLRequest struct {
	HTML string `json:"html"`
}

// PreviewCSSRequest is the body of POST /preview/css.
type PreviewCSSRequest struct {
	CSS         string `json:"css"`
	HTMLContext string `json:"htmlContext"`
}

// SanitizeRequest is the body of POST /preview/sanitize.
type SanitizeRequest struct {
	Content string `json:"content"`
	Kind    string `json:"kind" binding:"required,oneof=html css"`
}

// Execute dispatches a source file to its previewer.
func (h *Handlers) Execute(c *gin.Context) {
	var req ExecuteRequest
	if !h.bind(c, &req) {
		return
	}
	if !h.admit(c, req.SourceCode, req.HTMLContext) {
		return
	}

	outcome := h.dispatcher.Execute(c.Request.Context(), sandbox.ExecutionRequest{
		SourceCode:  req.SourceCode,
		FileName:    req.FileName,
		TimeoutMs:   h.preview.ClampTimeoutMs(req.TimeoutMs),
		HTMLContext: req.HTMLContext,
	})
	c.JSON(http.StatusOK, outcome)
}

// RenderHTML sanitizes markup and wraps it in a sandboxed document.
func (h *Handlers) RenderHTML(c *gin.Context) {
	var req RenderHTMLRequest
	if !h.bind(c, &req) {
		return
	}
	if !h.admit(c, req.HTML) {
		return
	}

	timer := monitoring.NewTimer(h.metrics, "render", "html")
	desc := h.renderer.Render(req.HTML)
	timer.Stop(status(desc.Success))

	c.JSON(http.StatusOK, desc)
}

// PreviewCSS embeds a stylesheet into a preview document.
func (h *Handlers) PreviewCSS(c *gin.Context) {
	var req PreviewCSSRequest
	if !h.bind(c, &req) {
		return
	}
	if !h.admit(c, req.CSS, req.HTMLContext) {
		return
	}

	timer := monitoring.NewTimer(h.metrics, "render", "css")
	preview := h.styles.Preview(req.CSS, req.HTMLContext)
	timer.Stop(status(preview.Success))

	c.JSON(http.StatusOK, preview)
}

// Sanitize runs the configured sanitizer over content.
func (h *Handlers) Sanitize(c *gin.Context) {
	var req SanitizeRequest
	if !h.bind(c, &req) {
		return
	}
	if !h.admit(c, req.Content) {
		return
	}

	var out string
	switch req.Kind {
	case "html":
		out = h.policy.HTML(req.Content)
	case "css":
		out = sanitize.CSS(req.Content)
	}

	c.JSON(http.StatusOK, gin.H{
		"kind":      req.Kind,
		"sanitized": out,
		"changed":   out != req.Content,
	})
}

// bind decodes the JSON body under the size limit, answering 400 or 413 on failure.
func (h *Handlers) bind(c *gin.Context, v any) bool {
	if limit := h.preview.MaxSourceBytes; limit > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+bodyOverhead)
	}

	if err := c.ShouldBindJSON(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.tooLarge(c)
			return false
		}
		badRequest(c, fmt.Sprintf("Invalid request: %v", err))
		return false
	}
	return true
}

// admit enforces the source size limit and rejects binary payloads.
func (h *Handlers) admit(c *gin.Context, fields ...string) bool {
	for _, field := range fields {
		if limit := h.preview.MaxSourceBytes; limit > 0 && int64(len(field)) > limit {
			h.tooLarge(c)
			return false
		}
		if field == "" {
			continue
		}
		if mime := mimetype.Detect([]byte(field)); !isText(mime) {
			h.logger.Warn("Rejected non-text payload",
				zap.String("mime", mime.String()),
				zap.String("path", c.FullPath()),
			)
			c.JSON(http.StatusUnsupportedMediaType, gin.H{
				"success": false,
				"error":   fmt.Sprintf("Unsupported payload type: %s", mime.String()),
			})
			return false
		}
	}
	return true
}

func (h *Handlers) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"success": false,
		"error":   fmt.Sprintf("Source exceeds %d bytes", h.preview.MaxSourceBytes),
	})
}

// isText reports whether mime is text/plain or one of its descendants.
func isText(mime *mimetype.MIME) bool {
	for m := mime; m != nil; m = m.Parent() {
		if m.Is("text/plain") || strings.HasPrefix(m.String(), "text/") {
			return true
		}
	}
	return false
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
