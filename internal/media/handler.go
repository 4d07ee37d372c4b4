package media

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/pkg/response"
)

// Handler handles poster upload and listing.
type Handler struct {
	svc *Service
}

// NewHandler creates a media handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Upload handles POST /events/upload (multipart: image file, event id).
func (h *Handler) Upload(c *gin.Context) {
	actor, ok := middleware.AuthenticatedActor(c)
	if !ok {
		return
	}
	eventID, err := uuid.Parse(c.PostForm("event"))
	if err != nil {
		response.BadRequest(c, "event and image are required")
		return
	}
	file, err := c.FormFile("image")
	if err != nil {
		response.BadRequest(c, "event and image are required")
		return
	}
	rc, err := file.Open()
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()
	// One byte past the limit is enough for the size check to reject.
	data, err := io.ReadAll(io.LimitReader(rc, h.svc.MaxBytes()+1))
	if err != nil {
		response.Internal(c, "failed to read file")
		return
	}

	declared := file.Header.Get("Content-Type")
	if declared == "application/octet-stream" {
		declared = ""
	}
	m, err := h.svc.Upload(c.Request.Context(), actor, eventID, data, file.Filename, declared)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, m)
}

// Posters handles GET /events/:id/poster.
func (h *Handler) Posters(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	posters, err := h.svc.ListPosters(c.Request.Context(), middleware.ActorFrom(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"posters": posters})
}
