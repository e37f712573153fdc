package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/bassista/go_cast/internal/query"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/bassista/go_cast/internal/signer"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	verr := validator.New().Struct(struct {
		Name string `validate:"required"`
	}{})

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"upstream 404", &remote.NetworkError{Status: 404, StatusText: "Not Found"}, http.StatusNotFound},
		{"transport failure", fmt.Errorf("fetch: %w", &remote.NetworkError{Err: errors.New("refused")}), http.StatusBadGateway},
		{"invalid signature", fmt.Errorf("join-community: %w", signer.ErrInvalidSignature), http.StatusUnauthorized},
		{"no session", repository.ErrNoSession, http.StatusUnauthorized},
		{"validation", fmt.Errorf("invalid proposal: %w", verr), http.StatusBadRequest},
		{"disabled query", query.ErrDisabled, http.StatusBadRequest},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
