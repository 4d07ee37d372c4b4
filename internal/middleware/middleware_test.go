package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/models"
	"github.com/dicoevent/backend/pkg/apperr"
)

type fakeTokens map[string]uuid.UUID

func (f fakeTokens) ParseUserID(token string) (uuid.UUID, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return uuid.Nil, errors.New("bad token")
}

type fakeUsers map[uuid.UUID]*models.User

func (f fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, apperr.NotFound("user")
}

func newRouter(tokens fakeTokens, users fakeUsers, extra ...gin.HandlerFunc) (*gin.Engine, *access.Actor) {
	gin.SetMode(gin.TestMode)
	var seen access.Actor
	r := gin.New()
	r.Use(Actor(tokens, users))
	handlers := append(extra, func(c *gin.Context) {
		seen = ActorFrom(c)
		c.Status(http.StatusOK)
	})
	r.GET("/p", handlers...)
	return r, &seen
}

func get(r *gin.Engine, auth string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestActorAnonymousWithoutHeader(t *testing.T) {
	r, seen := newRouter(fakeTokens{}, fakeUsers{})
	w := get(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, seen.Authenticated())
}

func TestActorRejectsBadToken(t *testing.T) {
	r, _ := newRouter(fakeTokens{}, fakeUsers{})
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "nope").Code)
}

func TestActorRejectsDeletedUser(t *testing.T) {
	id := uuid.New()
	r, _ := newRouter(fakeTokens{"t": id}, fakeUsers{})
	assert.Equal(t, http.StatusUnauthorized, get(r, "Bearer t").Code)
}

func TestActorLoadsCurrentGroups(t *testing.T) {
	id := uuid.New()
	users := fakeUsers{id: {ID: id, Groups: []string{models.GroupOrganizer}}}
	r, seen := newRouter(fakeTokens{"t": id}, users)

	assert.Equal(t, http.StatusOK, get(r, "Bearer t").Code)
	assert.Equal(t, access.RoleOrganizer, seen.Role())

	users[id].Groups = []string{models.GroupAdmin}
	get(r, "Bearer t")
	assert.Equal(t, access.RoleAdmin, seen.Role())
}

func TestRequireAuth(t *testing.T) {
	id := uuid.New()
	r, _ := newRouter(fakeTokens{"t": id}, fakeUsers{id: {ID: id}}, RequireAuth())
	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer t").Code)
}

func TestRequireRole(t *testing.T) {
	user, admin, root := uuid.New(), uuid.New(), uuid.New()
	tokens := fakeTokens{"user": user, "admin": admin, "root": root}
	users := fakeUsers{
		user:  {ID: user},
		admin: {ID: admin, Groups: []string{models.GroupAdmin}},
		root:  {ID: root, IsSuperuser: true},
	}
	r, _ := newRouter(tokens, users, RequireRole(access.RoleAdmin))

	assert.Equal(t, http.StatusUnauthorized, get(r, "").Code)
	assert.Equal(t, http.StatusForbidden, get(r, "Bearer user").Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer admin").Code)
	assert.Equal(t, http.StatusOK, get(r, "Bearer root").Code)
}

func TestRateLimiter429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, LimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})

	r := gin.New()
	r.Use(rl.Middleware(func(c *gin.Context) string { return "k" }))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "").Code)
	w := get(r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiterSweepsIdleKeys(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rl := NewRateLimiter(ctx, LimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	rl.getLimiter("a")
	rl.sweep(time.Now().Add(2 * time.Minute))
	assert.Empty(t, rl.buckets)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS("http://a.test"))
	r.GET("/p", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/p", nil)
	req.Header.Set("Origin", "http://a.test")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://a.test", w.Header().Get("Access-Control-Allow-Origin"))
}
