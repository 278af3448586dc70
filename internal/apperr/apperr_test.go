package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindUnauthenticated:   http.StatusUnauthorized,
		KindForbidden:         http.StatusForbidden,
		KindNotFound:          http.StatusNotFound,
		KindValidation:        http.StatusBadRequest,
		KindInvalidState:      http.StatusBadRequest,
		KindInvalidTransition: http.StatusBadRequest,
		KindConflict:          http.StatusBadRequest,
		KindMethodNotAllowed:  http.StatusMethodNotAllowed,
		KindInternal:          http.StatusInternalServerError,
	}
	for kind, status := range tests {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("create: %w", Conflict("already applied"))
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, Is(err, KindConflict))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	assert.False(t, Is(nil, KindInternal))
}

func TestPublicMessageHidesInternalCause(t *testing.T) {
	err := Internal("failed to load project", errors.New("pq: connection refused"))
	assert.Equal(t, "failed to load project", PublicMessage(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "internal server error", PublicMessage(errors.New("secret detail")))
	assert.Equal(t, "nope", PublicMessage(Forbidden("nope")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Internal("x", nil).Retryable())
	assert.False(t, InvalidState("x").Retryable())
}
