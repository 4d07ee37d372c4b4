package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
	"github.com/dicoevent/backend/pkg/response"
	"github.com/dicoevent/backend/pkg/utils"
)

// Store is the user persistence the handler needs. *Repository implements it.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Create(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	AddGroup(ctx context.Context, userID uuid.UUID, group string) error
	RemoveGroup(ctx context.Context, userID uuid.UUID, group string) error
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GroupRequest is the body for POST /users/groups.
type GroupRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Group  string    `json:"group" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth and user HTTP endpoints.
type Handler struct {
	repo   Store
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo Store, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, utils.ErrPasswordTooShort) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Username, req.Email, hash)
	if err != nil {
		response.Error(c, err)
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID.String()))
	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByUsername(c.Request.Context(), req.Username)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			response.Unauthorized(c, "invalid username or password")
			return
		}
		response.Error(c, err)
		return
	}

	if !utils.CheckPassword(req.Password, user.PasswordHash) {
		response.Unauthorized(c, "invalid username or password")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Username)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// List handles GET /users (admin or superuser).
func (h *Handler) List(c *gin.Context) {
	list, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	out := make([]models.UserPublic, 0, len(list))
	for i := range list {
		out = append(out, list[i].ToPublic())
	}
	response.OK(c, gin.H{"users": out})
}

// Get handles GET /users/:id. Users may read themselves; admins anyone.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	actor := middleware.ActorFrom(c)
	if !actor.Authenticated() {
		response.Unauthorized(c, "authentication required")
		return
	}
	if actor.UserID != id && actor.Role() < access.RoleAdmin {
		response.Forbidden(c, "not allowed to read this user")
		return
	}
	user, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user.ToPublic())
}

// AssignGroup handles POST /users/groups (admin or superuser).
func (h *Handler) AssignGroup(c *gin.Context) {
	var req GroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !models.ValidGroup(req.Group) {
		response.BadRequest(c, "invalid group")
		return
	}
	if err := h.repo.AddGroup(c.Request.Context(), req.UserID, req.Group); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("group assigned",
		zap.String("user_id", req.UserID.String()),
		zap.String("group", req.Group),
		zap.String("by", middleware.ActorFrom(c).UserID.String()),
	)
	response.OK(c, gin.H{"user_id": req.UserID, "group": req.Group})
}

// RemoveGroup handles DELETE /users/:id/groups/:group (admin or superuser).
func (h *Handler) RemoveGroup(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}
	group := c.Param("group")
	if !models.ValidGroup(group) {
		response.BadRequest(c, "invalid group")
		return
	}
	if err := h.repo.RemoveGroup(c.Request.Context(), id, group); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
