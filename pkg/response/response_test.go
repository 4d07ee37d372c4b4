package response

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/dicoevent/backend/pkg/apperr"
)

func TestErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err  error
		code int
	}{
		{apperr.Unauthenticated(), http.StatusUnauthorized},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.Validation("bad"), http.StatusBadRequest},
		{apperr.NotFound("event"), http.StatusNotFound},
		{apperr.Dependency("query", errors.New("down")), http.StatusServiceUnavailable},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Error(c, tt.err)
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
	}
}

func TestDependencyCauseIsHidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Error(c, apperr.Dependency("query events", errors.New("password authentication failed")))
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "query events")
}
