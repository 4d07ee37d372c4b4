package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/pkg/response"
)

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ActorFrom(c).Authenticated() {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireRole allows only callers whose highest role is at least min.
func RequireRole(min access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ActorFrom(c)
		if !actor.Authenticated() {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		if actor.Role() < min {
			response.Forbidden(c, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// AuthenticatedActor returns the caller of a write handler. An anonymous
// caller gets 401 before the request body is read, and ok is false.
func AuthenticatedActor(c *gin.Context) (actor access.Actor, ok bool) {
	actor = ActorFrom(c)
	if !actor.Authenticated() {
		response.Unauthorized(c, "authentication required")
		return actor, false
	}
	return actor, true
}
