package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carewatch/carewatch/internal/monitor"
)

// monitorConfigRequest carries duration fields as strings ("30m", "24h")
// so clients do not have to speak nanoseconds.
type monitorConfigRequest struct {
	Enabled       *bool  `json:"enabled"`
	CheckInterval string `json:"checkInterval"`
	MaxInactivity string `json:"maxInactivityPeriod"`
}

func (s *Server) handleActivityPing(c *gin.Context) {
	s.monitor.RecordActivity()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleMonitorStatus(c *gin.Context) {
	status := s.monitor.Status()
	c.JSON(http.StatusOK, gin.H{
		"running":             status.Running,
		"enabled":             status.Config.Enabled,
		"checkInterval":       status.Config.CheckInterval.String(),
		"maxInactivityPeriod": status.Config.MaxInactivity.String(),
		"lastActivity":        status.LastActivity,
		"sinceActivity":       status.SinceActivity.String(),
		"alertsRaised":        status.AlertsRaised,
		"presets":             presetStrings(),
	})
}

func (s *Server) handleMonitorConfigure(c *gin.Context) {
	var req monitorConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	cfg := s.monitor.Status().Config
	if req.Enabled != nil {
		cfg.Enabled = *req.Enabled
	}
	if req.CheckInterval != "" {
		d, err := time.ParseDuration(req.CheckInterval)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid checkInterval: " + err.Error()})
			return
		}
		cfg.CheckInterval = d
	}
	if req.MaxInactivity != "" {
		d, err := time.ParseDuration(req.MaxInactivity)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid maxInactivityPeriod: " + err.Error()})
			return
		}
		if !monitor.IsPreset(d) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("maxInactivityPeriod must be one of %v", presetStrings())})
			return
		}
		cfg.MaxInactivity = d
	}

	if err := s.monitor.Configure(cfg); err != nil {
		switch {
		case errors.Is(err, monitor.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	s.handleMonitorStatus(c)
}

func presetStrings() []string {
	presets := monitor.Presets()
	out := make([]string, len(presets))
	for i, p := range presets {
		out[i] = p.String()
	}
	return out
}
