package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webide/backend/internal/preview/dispatch"
	"github.com/GriffinCanCode/webide/backend/internal/preview/monitor"
	"github.com/GriffinCanCode/webide/backend/internal/preview/render"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sanitize"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sandbox"
)

// PoolReporter exposes realm pool statistics.
type PoolReporter interface {
	Stats() sandbox.PoolStats
}

// Handlers contains all HTTP handlers
type Handlers struct {
	dispatcher *dispatch.Dispatcher
	renderer   *render.HTMLRenderer
	styles     *render.CSSPreviewer
	policy     sanitize.Policy
	metrics    *monitoring.Metrics
	pool       PoolReporter
	preview    config.PreviewConfig
	logger     *zap.Logger
	startTime  time.Time
}

// Deps groups what the handlers need. Metrics, Pool and Logger are optional.
type Deps struct {
	Dispatcher *dispatch.Dispatcher
	Renderer   *render.HTMLRenderer
	Styles     *render.CSSPreviewer
	Policy     sanitize.Policy
	Metrics    *monitoring.Metrics
	Pool       PoolReporter
	Preview    config.PreviewConfig
	Logger     *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(deps Deps) *Handlers {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := deps.Policy
	if policy == "" {
		policy = sanitize.PolicyDenylist
	}
	return &Handlers{
		dispatcher: deps.Dispatcher,
		renderer:   deps.Renderer,
		styles:     deps.Styles,
		policy:     policy,
		metrics:    deps.Metrics,
		pool:       deps.Pool,
		preview:    deps.Preview,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// Register mounts every preview route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/health", h.Health)

	p := r.Group("/preview")
	p.POST("/execute", h.Execute)
	p.POST("/html", h.RenderHTML)
	p.POST("/css", h.PreviewCSS)
	p.POST("/sanitize", h.Sanitize)
	p.POST("/logs", h.RelayConsole)
	p.GET("/filetype", h.FileType)
	p.GET("/stats", h.Stats)
	p.GET("/history", h.History)
	p.DELETE("/history", h.ResetHistory)
}

// Health returns health status
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "preview-engine",
		"uptime":  time.Since(h.startTime).Round(time.Second).String(),
	})
}

// FileType reports how a file name would be previewed.
func (h *Handlers) FileType(c *gin.Context) {
	name := c.Query("fileName")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "fileName is required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fileName":            name,
		"fileType":            dispatch.GetFileType(name),
		"kind":                dispatch.Classify(name),
		"supportsLivePreview": dispatch.SupportsLivePreview(name),
	})
}

// History returns the most recent execution records, newest first.
func (h *Handlers) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	records := h.monitor().History(limit)
	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
	})
}

// ResetHistory clears the execution history.
func (h *Handlers) ResetHistory(c *gin.Context) {
	h.monitor().Reset()
	h.logger.Info("Execution history cleared", zap.String("client_ip", c.ClientIP()))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handlers) monitor() *monitor.Monitor {
	return h.dispatcher.Monitor()
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}
