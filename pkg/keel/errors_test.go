package keel

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPError_Kinds(t *testing.T) {
	tests := []struct {
		name   string
		build  func(error) *HTTPError
		status int
	}{
		{"bad request", BadRequest, http.StatusBadRequest},
		{"unauthorized", Unauthorized, http.StatusUnauthorized},
		{"forbidden", Forbidden, http.StatusForbidden},
		{"not found", NotFound, http.StatusNotFound},
		{"conflict", Conflict, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := tt.build(NewError("user not found", 42, "john"))
			status, body := he.ToResponse(false)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, "user not found", body.Message)
			assert.Equal(t, []string{"42", "john"}, body.Args)
			assert.Nil(t, body.Traceback)
		})
	}
}

func TestHTTPError_NilCauseUsesStatusText(t *testing.T) {
	status, body := NotFound(nil).ToResponse(true)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", body.Message)
	assert.Empty(t, body.Args)
	assert.NotNil(t, body.Args)
	assert.Nil(t, body.Traceback)
}

func TestHTTPError_PlainErrorMessage(t *testing.T) {
	he := Conflict(errors.New("already exists"))
	assert.Equal(t, "already exists", he.Message)
	assert.Equal(t, "HTTP 409: already exists", he.Error())
}

func TestInternalServerError(t *testing.T) {
	cause := errors.New("database on fire")
	he := InternalServerError(cause)

	t.Run("hides the cause", func(t *testing.T) {
		status, body := he.ToResponse(false)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "an unknown error occurred", body.Message)
		assert.Empty(t, body.Args)
		assert.Nil(t, body.Traceback)
	})

	t.Run("renders the traceback on request", func(t *testing.T) {
		_, body := he.ToResponse(true)
		require.NotNil(t, body.Traceback)
		assert.Contains(t, *body.Traceback, "database on fire")
		assert.Contains(t, *body.Traceback, "goroutine")
	})

	t.Run("keeps the cause in the chain", func(t *testing.T) {
		assert.ErrorIs(t, he, cause)
	})
}

func TestError_Is(t *testing.T) {
	copied := NewError("user authentication failed")
	assert.ErrorIs(t, copied, ErrAuthenticationFailed)
	assert.ErrorIs(t, Unauthorized(ErrAuthenticationFailed), ErrAuthenticationFailed)
	assert.NotErrorIs(t, NewError("other"), ErrAuthenticationFailed)
}

func TestError_Error(t *testing.T) {
	assert.Equal(t, "plain", NewError("plain").Error())
	assert.Equal(t, "with args [1 two]", NewError("with args", 1, "two").Error())
}

func TestAsHTTPError(t *testing.T) {
	wrapped := fmt.Errorf("loading profile: %w", Forbidden(nil))

	he, ok := AsHTTPError(wrapped)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, he.StatusCode)

	_, ok = AsHTTPError(errors.New("plain"))
	assert.False(t, ok)
}
