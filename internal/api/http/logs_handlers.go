package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxRelayEntries caps one relay batch.
const maxRelayEntries = 200

// ConsoleEntry is one console call captured inside a rendered preview frame.
type ConsoleEntry struct {
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	Timestamp string         `json:"timestamp"`
}

// ConsoleRelayRequest is a batch of console output from a preview frame.
type ConsoleRelayRequest struct {
	PreviewID string         `json:"previewId"`
	FileName  string         `json:"fileName"`
	Entries   []ConsoleEntry `json:"entries"`
}

// RelayConsole accepts console output from rendered HTML previews, which run
// in the browser rather than the server-side sandbox, and writes it to the
// service log.
func (h *Handlers) RelayConsole(c *gin.Context) {
	var req ConsoleRelayRequest
	if !h.bind(c, &req) {
		return
	}

	if len(req.Entries) == 0 {
		badRequest(c, "No console entries provided")
		return
	}
	if len(req.Entries) > maxRelayEntries {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"success": false,
			"error":   "Too many console entries",
		})
		return
	}

	logger := h.logger.With(
		zap.String("source", "preview_frame"),
		zap.String("preview_id", req.PreviewID),
		zap.String("file", req.FileName),
	)
	for _, entry := range req.Entries {
		relayEntry(logger, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"entries_received": len(req.Entries),
		"timestamp":        time.Now().Unix(),
	})
}

// relayEntry logs one frame console entry at its own level.
func relayEntry(logger *zap.Logger, entry ConsoleEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	fields = append(fields, zap.String("frame_timestamp", entry.Timestamp))

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		logger.Error(entry.Message, fields...)
	case "warn":
		logger.Warn(entry.Message, fields...)
	case "debug":
		logger.Debug(entry.Message, fields...)
	default:
		logger.Info(entry.Message, fields...)
	}
}
