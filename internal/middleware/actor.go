package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
	"github.com/dicoevent/backend/pkg/response"
)

// ContextActor is the key for the resolved access.Actor in gin context.
const ContextActor = "actor"

// TokenParser validates a bearer token and returns its user ID.
type TokenParser interface {
	ParseUserID(token string) (uuid.UUID, error)
}

// UserLoader loads the current state of a user.
type UserLoader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Actor resolves the caller of every request. No Authorization header
// yields the anonymous actor; a header that does not carry a valid token
// for an existing user is rejected with 401. Users are loaded on each
// request so group changes apply immediately.
func Actor(tokens TokenParser, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(ContextActor, access.Anonymous())
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "invalid authorization header")
			c.Abort()
			return
		}
		userID, err := tokens.ParseUserID(parts[1])
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}
		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				response.Unauthorized(c, "user no longer exists")
			} else {
				response.Error(c, err)
			}
			c.Abort()
			return
		}
		c.Set(ContextActor, access.FromUser(user))
		c.Next()
	}
}

// ActorFrom returns the actor set by Actor, or the anonymous actor.
func ActorFrom(c *gin.Context) access.Actor {
	if v, ok := c.Get(ContextActor); ok {
		if a, ok := v.(access.Actor); ok {
			return a
		}
	}
	return access.Anonymous()
}
