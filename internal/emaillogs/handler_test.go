package emaillogs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/memstore"
	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/internal/models"
)

func newRouter(store Store, actor access.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextActor, actor)
		c.Next()
	})
	r.GET("/email-logs", middleware.RequireRole(access.RoleAdmin), NewHandler(store).List)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListFiltersByEvent(t *testing.T) {
	db := memstore.New()
	admin := db.AddUser("ada", false, models.GroupAdmin)
	store := db.EmailLogs()
	ctx := context.Background()
	e1, e2 := uuid.New(), uuid.New()
	require.NoError(t, store.Create(ctx, &models.EmailLog{EventID: &e1, EmailType: models.EmailTypeReminder, RecipientEmail: "a@example.test", Status: models.EmailLogStatusSent}))
	require.NoError(t, store.Create(ctx, &models.EmailLog{EventID: &e2, EmailType: models.EmailTypeReminder, RecipientEmail: "b@example.test", Status: models.EmailLogStatusFailed}))

	r := newRouter(store, access.FromUser(&admin))

	w := get(r, "/email-logs")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "a@example.test")
	assert.Contains(t, w.Body.String(), "b@example.test")

	w = get(r, "/email-logs?event_id="+e2.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "a@example.test")
	assert.Contains(t, w.Body.String(), "b@example.test")

	assert.Equal(t, http.StatusBadRequest, get(r, "/email-logs?event_id=nope").Code)
}

func TestListRequiresAdmin(t *testing.T) {
	db := memstore.New()
	org := db.AddUser("olivia", false, models.GroupOrganizer)

	assert.Equal(t, http.StatusUnauthorized, get(newRouter(db.EmailLogs(), access.Anonymous()), "/email-logs").Code)
	assert.Equal(t, http.StatusForbidden, get(newRouter(db.EmailLogs(), access.FromUser(&org)), "/email-logs").Code)
}
