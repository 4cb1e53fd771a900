package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/huangang/peerreview/internal/services"
	"github.com/huangang/peerreview/pkg/logger"
	"github.com/huangang/peerreview/pkg/response"
)

// toAppError maps service errors onto HTTP statuses. Unknown errors become a
// plain 500.
func toAppError(err error) error {
	var fieldErrs services.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		return response.NewUnprocessable("invalid scores").WithData(gin.H{"errors": fieldErrs})
	case errors.Is(err, services.ErrIdentityUnresolved):
		return response.NewPreconditionRequired(err.Error())
	case errors.Is(err, services.ErrIdentityUnbound):
		return response.NewUnauthorized(err.Error())
	case errors.Is(err, services.ErrDuplicateIdentity):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrUnknownReviewer):
		return response.NewNotFound(err.Error())
	case errors.Is(err, services.ErrAlreadySubmitted):
		return response.NewConflict(err.Error())
	case errors.Is(err, services.ErrRateeNotAssigned):
		return response.NewForbidden(err.Error())
	case errors.Is(err, services.ErrStoreUnavailable):
		logger.Error().Err(err).Msg("store unavailable")
		return response.NewServiceUnavailable(services.ErrStoreUnavailable.Error())
	}
	return response.NewServerError(err.Error())
}

func respondError(c *gin.Context, err error) {
	response.Error(c, toAppError(err))
}
