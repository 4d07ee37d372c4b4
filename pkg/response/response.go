package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dicoevent/backend/pkg/apperr"
)

// HeaderCache marks whether a read was served from cache ("HIT") or storage ("MISS").
const HeaderCache = "X-Cache"

// Body is the standard API response envelope.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// NoContent sends 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// BadRequest sends 400 with error message.
func BadRequest(c *gin.Context, err string) {
	c.JSON(http.StatusBadRequest, Body{Success: false, Error: err})
}

// Unauthorized sends 401.
func Unauthorized(c *gin.Context, err string) {
	c.JSON(http.StatusUnauthorized, Body{Success: false, Error: err})
}

// Forbidden sends 403.
func Forbidden(c *gin.Context, err string) {
	c.JSON(http.StatusForbidden, Body{Success: false, Error: err})
}

// NotFound sends 404.
func NotFound(c *gin.Context, err string) {
	c.JSON(http.StatusNotFound, Body{Success: false, Error: err})
}

// ServiceUnavailable sends 503.
func ServiceUnavailable(c *gin.Context, err string) {
	c.JSON(http.StatusServiceUnavailable, Body{Success: false, Error: err})
}

// Internal sends 500.
func Internal(c *gin.Context, err string) {
	c.JSON(http.StatusInternalServerError, Body{Success: false, Error: err})
}

// Error maps a service error to its status code.
func Error(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		Unauthorized(c, apperr.Message(err))
	case errors.Is(err, apperr.ErrForbidden):
		Forbidden(c, apperr.Message(err))
	case errors.Is(err, apperr.ErrValidation):
		BadRequest(c, apperr.Message(err))
	case errors.Is(err, apperr.ErrNotFound):
		NotFound(c, apperr.Message(err))
	case errors.Is(err, apperr.ErrDependency):
		ServiceUnavailable(c, apperr.Message(err))
	default:
		Internal(c, "internal error")
	}
}

// Cached sends a 200 with the X-Cache marker.
func Cached(c *gin.Context, hit string, data interface{}) {
	c.Header(HeaderCache, hit)
	OK(c, data)
}
