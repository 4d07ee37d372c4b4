package events

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dicoevent/backend/internal/access"
	"github.com/dicoevent/backend/internal/middleware"
	"github.com/dicoevent/backend/pkg/response"
)

func newRouter(f *fixture, actor access.Actor) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(f.svc)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextActor, actor)
		c.Next()
	})
	r.GET("/events", h.List)
	r.GET("/events/:id", h.Get)
	r.POST("/events", h.Create)
	r.PATCH("/events/:id", h.Update)
	r.DELETE("/events/:id", h.Delete)
	return r
}

func send(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerGetSetsCacheHeader(t *testing.T) {
	f := newFixture(t)
	e, err := f.svc.Create(context.Background(), f.organizer, validInput())
	require.NoError(t, err)
	r := newRouter(f, access.Anonymous())

	w := send(r, http.MethodGet, "/events/"+e.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get(response.HeaderCache))

	w = send(r, http.MethodGet, "/events/"+e.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get(response.HeaderCache))
	assert.Contains(t, w.Body.String(), `"organizer":"`+f.organizer.UserID.String()+`"`)

	w = send(r, http.MethodGet, "/events", nil)
	assert.Equal(t, "MISS", w.Header().Get(response.HeaderCache))
	assert.Contains(t, w.Body.String(), `"events":[`)
}

func TestHandlerStatusCodes(t *testing.T) {
	f := newFixture(t)

	anon := newRouter(f, access.Anonymous())
	body := CreateRequest{Name: "Meetup", StartTime: start, EndTime: start.Add(1)}
	assert.Equal(t, http.StatusUnauthorized, send(anon, http.MethodPost, "/events", body).Code)
	// Anonymous writes are refused before the body is bound.
	assert.Equal(t, http.StatusUnauthorized, send(anon, http.MethodPost, "/events", gin.H{"start_time": "soon"}).Code)
	assert.Equal(t, http.StatusUnauthorized, send(anon, http.MethodPatch, "/events/"+uuid.NewString(), gin.H{"quota": "many"}).Code)
	assert.Equal(t, http.StatusBadRequest, send(anon, http.MethodGet, "/events/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, send(anon, http.MethodGet, "/events/"+uuid.NewString(), nil).Code)

	plain := newRouter(f, f.user)
	assert.Equal(t, http.StatusForbidden, send(plain, http.MethodPost, "/events", body).Code)

	org := newRouter(f, f.organizer)
	w := send(org, http.MethodPost, "/events", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Data struct {
			ID uuid.UUID `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	bad := CreateRequest{Name: "Backwards", StartTime: start, EndTime: start.Add(-1)}
	assert.Equal(t, http.StatusBadRequest, send(org, http.MethodPost, "/events", bad).Code)

	name := "Renamed"
	w = send(org, http.MethodPatch, "/events/"+created.Data.ID.String(), UpdateRequest{Name: &name})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Renamed")

	assert.Equal(t, http.StatusNoContent, send(org, http.MethodDelete, "/events/"+created.Data.ID.String(), nil).Code)
}
