package registrations

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/pkg/response"
)

// CreateRequest is the body for POST /registrations.
type CreateRequest struct {
	TicketID uuid.UUID  `json:"ticket_id" binding:"required"`
	UserID   *uuid.UUID `json:"user_id"`
}

// UpdateRequest is the body for PATCH /registrations/:id.
type UpdateRequest struct {
	TicketID *uuid.UUID `json:"ticket_id"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /registrations.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"registrations": list})
}

// Get handles GET /registrations/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	r, src, err := h.svc.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Cached(c, src.Header(), r)
}

// Create handles POST /registrations.
func (h *Handler) Create(c *gin.Context) {
	actor, ok := middleware.AuthenticatedActor(c)
	if !ok {
		return
	}
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	r, err := h.svc.Create(c.Request.Context(), actor, CreateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, r)
}

// Update handles PATCH /registrations/:id.
func (h *Handler) Update(c *gin.Context) {
	actor, ok := middleware.AuthenticatedActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	r, err := h.svc.Update(c.Request.Context(), actor, id, UpdateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, r)
}

// Delete handles DELETE /registrations/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
