package handler

import (
	"errors"
	"net/http"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/censoparroquial/auth-service/internal/dto"
	"github.com/gin-gonic/gin"
)

// respondError maps a typed auth failure to its stable status code and
// machine-readable body. Anything outside the closed taxonomy is an
// unexpected store failure and becomes a generic 500; internals never leak.
func respondError(c *gin.Context, err error) {
	var authErr *domain.Error
	if !errors.As(err, &authErr) {
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: "internal server error",
		})
		return
	}

	c.JSON(statusFor(authErr), dto.ErrorResponse{
		Error:   authErr.Code,
		Message: authErr.Message,
	})
}

func statusFor(err *domain.Error) int {
	switch err.Code {
	case domain.ErrValidation.Code, domain.ErrInvalidOrExpiredToken.Code:
		return http.StatusBadRequest
	case domain.ErrAuthenticationFailed.Code, domain.ErrInvalidToken.Code, domain.ErrInvalidRefreshToken.Code:
		return http.StatusUnauthorized
	case domain.ErrEmailNotVerified.Code, domain.ErrAccountDeactivated.Code, domain.ErrForbidden.Code:
		return http.StatusForbidden
	case domain.ErrNotFound.Code:
		return http.StatusNotFound
	case domain.ErrConflict.Code:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondBindingError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   domain.ErrValidation.Code,
		Message: "invalid request body",
		Details: err.Error(),
	})
}
