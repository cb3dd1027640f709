package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carewatch/carewatch/internal/alerts"
)

func (s *Server) handleTriggerAlert(c *gin.Context) {
	var draft alerts.Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	alert, err := s.manager.Trigger(c.Request.Context(), draft)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alert)
}

func (s *Server) handleListAlerts(c *gin.Context) {
	var (
		list []*alerts.Alert
		err  error
	)
	switch c.Query("status") {
	case "active":
		list, err = s.alerts.ListActive(c.Request.Context())
	case "":
		list, err = s.alerts.ListAll(c.Request.Context())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "status filter must be 'active' or omitted"})
		return
	}
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": list, "count": len(list)})
}

func (s *Server) handleGetAlert(c *gin.Context) {
	alert, err := s.alerts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (s *Server) handleResolveAlert(c *gin.Context) {
	s.transition(c, s.manager.Resolve)
}

func (s *Server) handleCancelAlert(c *gin.Context) {
	s.transition(c, s.manager.Cancel)
}

func (s *Server) transition(c *gin.Context, op func(ctx context.Context, id string) error) {
	id := c.Param("id")
	if err := op(c.Request.Context(), id); err != nil {
		writeAlertError(c, err)
		return
	}
	alert, err := s.alerts.Get(c.Request.Context(), id)
	if err != nil {
		writeAlertError(c, err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// writeAlertError maps domain errors to HTTP status codes.
func writeAlertError(c *gin.Context, err error) {
	var (
		validation *alerts.ValidationError
		notFound   *alerts.NotFoundError
		transition *alerts.InvalidTransitionError
	)
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &transition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
