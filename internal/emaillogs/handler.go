// Package emaillogs exposes the record of reminder deliveries.
package emaillogs

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/response"
)

// Store reads and writes email logs.
type Store interface {
	Create(ctx context.Context, l *models.EmailLog) error
	List(ctx context.Context, eventID *uuid.UUID) ([]models.EmailLog, error)
}

// Handler handles email log HTTP endpoints.
type Handler struct {
	store Store
}

// NewHandler creates an email logs handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// List handles GET /email-logs?event_id=. Mount behind RequireRole(admin).
func (h *Handler) List(c *gin.Context) {
	var eventID *uuid.UUID
	if raw := c.Query("event_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid event id")
			return
		}
		eventID = &id
	}
	logs, err := h.store.List(c.Request.Context(), eventID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"email_logs": logs})
}
