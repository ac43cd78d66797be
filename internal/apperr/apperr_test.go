package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[error]int{
		NotFound("post"):                       http.StatusNotFound,
		Unauthenticated("login"):               http.StatusUnauthorized,
		Unauthorized("admins only"):            http.StatusForbidden,
		Validation("bad phone"):                http.StatusBadRequest,
		Conflict("active leave exists"):        http.StatusConflict,
		Transient("db", errors.New("timeout")): http.StatusServiceUnavailable,
		errors.New("plain"):                    http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, HTTPStatus(err), err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("cast vote: %w", Conflict("busy"))
	assert.True(t, Is(err, KindConflict))
	assert.False(t, Is(err, KindNotFound))
	assert.Equal(t, "busy", Message(err))
}

func TestTransientUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transient("save leave", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "internal server error", Message(cause))
	assert.False(t, Is(nil, KindInternal))
}
