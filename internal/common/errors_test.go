package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"validation", NewValidationError("Missing required fields"), http.StatusBadRequest},
		{"conflict reuses 400", NewConflictError("You have already reported this post"), http.StatusBadRequest},
		{"authentication", NewAuthenticationError("No token provided"), http.StatusUnauthorized},
		{"blocked", ErrBlocked, http.StatusForbidden},
		{"not found", NewNotFoundError("Post not found"), http.StatusNotFound},
		{"storage", NewStorageError("insert post", errors.New("connection reset")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("create: %w", NewNotFoundError("gone")), http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}

func TestAppError_IsAndMessage(t *testing.T) {
	err := fmt.Errorf("auth: %w", NewAuthorizationError(CodeAccountBlocked, "Your account is blocked. Contact campus support."))
	assert.True(t, errors.Is(err, ErrBlocked))
	assert.False(t, errors.Is(err, ErrPending))

	storage := NewStorageError("find posts", errors.New("server selection timeout"))
	assert.Equal(t, "find posts: server selection timeout", storage.Error())
	assert.Equal(t, "server selection timeout", errors.Unwrap(storage).Error())
}
