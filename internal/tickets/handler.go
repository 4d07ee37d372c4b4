package tickets

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/pkg/response"
)

// CreateRequest is the body for POST /tickets.
type CreateRequest struct {
	Name       string           `json:"name" binding:"required,max=100"`
	Price      *decimal.Decimal `json:"price" binding:"required"`
	SalesStart time.Time        `json:"sales_start" binding:"required"`
	SalesEnd   time.Time        `json:"sales_end" binding:"required"`
	Quota      int              `json:"quota"`
	EventID    uuid.UUID        `json:"event_id" binding:"required"`
}

// UpdateRequest is the body for PATCH /tickets/:id.
type UpdateRequest struct {
	Name       *string          `json:"name" binding:"omitempty,max=100"`
	Price      *decimal.Decimal `json:"price"`
	SalesStart *time.Time       `json:"sales_start"`
	SalesEnd   *time.Time       `json:"sales_end"`
	Quota      *int             `json:"quota"`
}

// Handler handles ticket HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a ticket handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /tickets.
func (h *Handler) List(c *gin.Context) {
	list, src, err := h.svc.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Cached(c, src.Header(), gin.H{"tickets": list})
}

// Get handles GET /tickets/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid ticket id")
		return
	}
	t, src, err := h.svc.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Cached(c, src.Header(), t)
}

// Create handles POST /tickets.
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
	t, err := h.svc.Create(c.Request.Context(), actor, CreateInput{
		Name:       req.Name,
		Price:      *req.Price,
		SalesStart: req.SalesStart,
		SalesEnd:   req.SalesEnd,
		Quota:      req.Quota,
		EventID:    req.EventID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, t)
}

// Update handles PATCH /tickets/:id.
func (h *Handler) Update(c *gin.Context) {
	actor, ok := middleware.AuthenticatedActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid ticket id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t, err := h.svc.Update(c.Request.Context(), actor, id, UpdateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /tickets/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid ticket id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
