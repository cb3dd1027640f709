// Package server exposes the daemon's HTTP API: alert lifecycle operations,
// profile management, activity pings, monitor control, and a server-sent
// event stream for change notifications.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carewatch/carewatch/internal/lifecycle"
	"github.com/carewatch/carewatch/internal/logger"
	"github.com/carewatch/carewatch/internal/monitor"
	"github.com/carewatch/carewatch/internal/storage/sqlite"
)

// Server wires the HTTP routes to the alert lifecycle, storage, and monitor.
type Server struct {
	engine   *gin.Engine
	http     *http.Server
	manager  *lifecycle.Manager
	alerts   *sqlite.AlertStore
	profiles *sqlite.ProfileStore
	monitor  *monitor.Monitor
}

// New builds a server for the given listen address.
func New(addr string, manager *lifecycle.Manager, alertStore *sqlite.AlertStore, profileStore *sqlite.ProfileStore, mon *monitor.Monitor) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{
		engine:   engine,
		manager:  manager,
		alerts:   alertStore,
		profiles: profileStore,
		monitor:  mon,
	}
	s.registerRoutes()

	s.http = &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)

	api.POST("/alerts", s.handleTriggerAlert)
	api.GET("/alerts", s.handleListAlerts)
	api.GET("/alerts/:id", s.handleGetAlert)
	api.POST("/alerts/:id/resolve", s.handleResolveAlert)
	api.POST("/alerts/:id/cancel", s.handleCancelAlert)

	api.GET("/profile", s.handleGetProfile)
	api.PUT("/profile", s.handleSaveProfile)
	api.GET("/profile/contacts", s.handleListContacts)
	api.POST("/profile/contacts", s.handleAddContact)
	api.PUT("/profile/contacts/:id", s.handleUpdateContact)
	api.DELETE("/profile/contacts/:id", s.handleDeleteContact)

	api.POST("/activity", s.handleActivityPing)

	api.GET("/monitor", s.handleMonitorStatus)
	api.PUT("/monitor", s.handleMonitorConfigure)

	api.GET("/events", s.handleEvents)
	api.GET("/diagnostics", s.handleDiagnostics)
}

// Handler returns the underlying HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks serving the API until Shutdown is called.
func (s *Server) ListenAndServe() error {
	logger.Info("HTTP API listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleDiagnostics(c *gin.Context) {
	entries := logger.RecentEntries()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Format())
	}
	c.JSON(http.StatusOK, gin.H{
		"logPath": logger.LogPath,
		"recent":  lines,
	})
}

// requestLogger records each request at debug with duration and status.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).String())
	}
}
