package handler

import (
	"net/http"
	"strings"

	"github.com/censoparroquial/auth-service/internal/domain"
	"github.com/censoparroquial/auth-service/internal/dto"
	"github.com/censoparroquial/auth-service/internal/service"
	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// AuthMiddleware extracts the bearer token, resolves it into a principal,
// and attaches it to the request context for downstream handlers.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "authentication_required",
				Message: "authorization header is required",
			})
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{
				Error:   "authentication_required",
				Message: "invalid authorization header format",
			})
			c.Abort()
			return
		}

		principal, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			respondError(c, err)
			c.Abort()
			return
		}

		c.Set(principalKey, *principal)
		c.Next()
	}
}

// RequireRole rejects with Forbidden unless the principal holds one of the
// given roles. Must run after AuthMiddleware.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := MustPrincipal(c)

		if !principal.HasRole(roles...) {
			respondError(c, domain.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireSelfOrRole rejects with Forbidden unless the principal owns the
// account identified by the path parameter or holds one of the given roles.
func RequireSelfOrRole(idParam string, roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := MustPrincipal(c)

		if !principal.IsSelfOr(c.Param(idParam), roles...) {
			respondError(c, domain.ErrForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}

// MustPrincipal returns the principal set by AuthMiddleware. Routes using it
// are always registered behind that middleware.
func MustPrincipal(c *gin.Context) domain.Principal {
	return c.MustGet(principalKey).(domain.Principal)
}
