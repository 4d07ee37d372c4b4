package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create ticket: %w", Validation("price must not be negative"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "price must not be negative", Message(err))
}

func TestDependencyKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Dependency("query events", cause)
	assert.ErrorIs(t, err, ErrDependency)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "query events", Message(err))
}

func TestAuthKindsAreDistinct(t *testing.T) {
	assert.ErrorIs(t, Unauthenticated(), ErrUnauthenticated)
	assert.NotErrorIs(t, Unauthenticated(), ErrForbidden)
	assert.ErrorIs(t, Forbidden("no"), ErrForbidden)
}
