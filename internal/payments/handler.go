package payments

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/pkg/response"
)

// CreateRequest is the body for POST /payments.
type CreateRequest struct {
	RegistrationID uuid.UUID        `json:"registration_id" binding:"required"`
	PaymentMethod  string           `json:"payment_method" binding:"required,max=50"`
	PaymentStatus  string           `json:"payment_status"`
	AmountPaid     *decimal.Decimal `json:"amount_paid" binding:"required"`
}

// UpdateRequest is the body for PATCH /payments/:id.
type UpdateRequest struct {
	PaymentMethod *string          `json:"payment_method" binding:"omitempty,max=50"`
	PaymentStatus *string          `json:"payment_status"`
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
}

// Handler handles payment HTTP endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a payment handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// List handles GET /payments.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context(), middleware.ActorFrom(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"payments": list})
}

// Get handles GET /payments/:id.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	p, src, err := h.svc.Get(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Cached(c, src.Header(), p)
}

// Create handles POST /payments.
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
	p, err := h.svc.Create(c.Request.Context(), actor, CreateInput{
		RegistrationID: req.RegistrationID,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  req.PaymentStatus,
		AmountPaid:     *req.AmountPaid,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, p)
}

// Update handles PATCH /payments/:id.
func (h *Handler) Update(c *gin.Context) {
	actor, ok := middleware.AuthenticatedActor(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p, err := h.svc.Update(c.Request.Context(), actor, id, UpdateInput(req))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /payments/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment id")
		return
	}
	if err := h.svc.Delete(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
