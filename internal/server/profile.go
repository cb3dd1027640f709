package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/carewatch/carewatch/internal/profile"
	"github.com/carewatch/carewatch/internal/storage/sqlite"
)

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.profiles.GetProfile(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleSaveProfile(c *gin.Context) {
	var p profile.Profile
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := s.profiles.SaveProfile(c.Request.Context(), &p); err != nil {
		writeProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, &p)
}

func (s *Server) handleListContacts(c *gin.Context) {
	contacts, err := s.profiles.Contacts(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts, "count": len(contacts)})
}

func (s *Server) handleAddContact(c *gin.Context) {
	var contact profile.EmergencyContact
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	added, err := s.profiles.AddContact(c.Request.Context(), contact)
	if err != nil {
		writeProfileError(c, err)
		return
	}
	c.JSON(http.StatusCreated, added)
}

func (s *Server) handleUpdateContact(c *gin.Context) {
	var contact profile.EmergencyContact
	if err := c.ShouldBindJSON(&contact); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	contact.ID = c.Param("id")
	if err := s.profiles.UpdateContact(c.Request.Context(), contact); err != nil {
		writeProfileError(c, err)
		return
	}
	c.JSON(http.StatusOK, &contact)
}

func (s *Server) handleDeleteContact(c *gin.Context) {
	if err := s.profiles.DeleteContact(c.Request.Context(), c.Param("id")); err != nil {
		writeProfileError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func writeProfileError(c *gin.Context, err error) {
	var validation *profile.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, sqlite.ErrContactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
