package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/bassista/go_cast/internal/cache"
	"github.com/bassista/go_cast/internal/mutation"
	"github.com/bassista/go_cast/internal/query"
	"github.com/bassista/go_cast/internal/remote"
	"github.com/bassista/go_cast/internal/repository"
	"github.com/bassista/go_cast/internal/signer"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

var errInvalidID = errors.New("invalid id")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var verrs validator.ValidationErrors
	if ne, ok := remote.AsNetworkError(err); ok {
		return ne.HTTPStatus()
	}
	switch {
	case errors.Is(err, signer.ErrInvalidSignature), errors.Is(err, repository.ErrNoSession):
		return http.StatusUnauthorized
	case errors.As(err, &verrs),
		errors.Is(err, query.ErrDisabled),
		errors.Is(err, cache.ErrEmptyKey),
		errors.Is(err, cache.ErrUnknownResource),
		errors.Is(err, mutation.ErrNoSigner),
		errors.Is(err, errInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Remote failures also carry the
// upstream status, status text and url.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if ne, ok := remote.AsNetworkError(err); ok {
		body["network"] = ne
	}
	c.AbortWithStatusJSON(status, body)
}
