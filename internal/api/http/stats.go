package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/webide/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/webide/backend/internal/preview/monitor"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sandbox"
)

// StatsSnapshot is the monitor's stats plus service-level context. The
// monitor fields are inlined so clients can read them at the top level.
type StatsSnapshot struct {
	monitor.Stats
	Timestamp time.Time            `json:"timestamp"`
	Server    *monitoring.Snapshot `json:"server,omitempty"`
	Pool      *sandbox.PoolStats   `json:"pool,omitempty"`
}

// Stats returns execution statistics.
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Snapshot())
}

// Snapshot assembles the stats payload; the WebSocket stream reuses it.
func (h *Handlers) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		Stats:     h.monitor().Stats(),
		Timestamp: time.Now(),
	}
	if h.metrics != nil {
		server := h.metrics.Snapshot()
		snap.Server = &server
	}
	if h.pool != nil {
		pool := h.pool.Stats()
		snap.Pool = &pool
	}
	return snap
}

