package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/famfund/famfund/internal/app/models/dto"
	"github.com/famfund/famfund/internal/pkg/apperrors"
)

// HandleAPIError maps application errors to HTTP responses. Controllers call
// this for every service error instead of building responses themselves.
func HandleAPIError(c *gin.Context, err error) {
	message := err.Error()

	switch {
	case apperrors.Is(err, apperrors.ErrCommunityNotFound,
		apperrors.ErrLoanNotFound,
		apperrors.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeResourceNotFound, message)))

	case apperrors.Is(err, apperrors.ErrAlreadyMember,
		apperrors.ErrCommunityFull,
		apperrors.ErrCommunityArchived,
		apperrors.ErrLoanNotPending,
		apperrors.ErrConflict):
		c.JSON(http.StatusConflict, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeConflict, message)))

	case apperrors.Is(err, apperrors.ErrNotMember,
		apperrors.ErrNotEligible,
		apperrors.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeForbidden, message)))

	case apperrors.Is(err, apperrors.ErrInvalidAmount,
		apperrors.ErrInvalidChoice,
		apperrors.ErrValidationFailed,
		apperrors.ErrBadRequest):
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, message)))

	case errors.Is(err, apperrors.ErrTokenExpired):
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeExpiredToken, "Token expired")))

	case apperrors.Is(err, apperrors.ErrTokenInvalid,
		apperrors.ErrInvalidFormat,
		apperrors.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInvalidToken, "Invalid token")))

	case errors.Is(err, apperrors.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeUnavailable, "Service temporarily unavailable")))

	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error")))
	}
}
