package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carewatch/carewatch/internal/logger"
)

// heartbeatInterval keeps idle SSE connections from being reaped by proxies.
const heartbeatInterval = 30 * time.Second

// handleEvents streams alert change notifications as server-sent events.
// Each change event carries the current active alert list so clients can
// render without a follow-up fetch.
func (s *Server) handleEvents(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	changes, cancel := s.alerts.Notifier().Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	// Initial snapshot so a fresh subscriber sees current state immediately.
	s.sendActiveAlerts(c)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			s.sendActiveAlerts(c)
			flusher.Flush()
		case <-heartbeat.C:
			c.SSEvent("heartbeat", time.Now().UTC().Format(time.RFC3339))
			flusher.Flush()
		}
	}
}

func (s *Server) sendActiveAlerts(c *gin.Context) {
	active, err := s.alerts.ListActive(c.Request.Context())
	if err != nil {
		logger.Warn("event stream: listing active alerts failed", "error", err)
		c.SSEvent("error", gin.H{"error": err.Error()})
		return
	}
	c.SSEvent("alerts", gin.H{"alerts": active, "count": len(active)})
}
