package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadbook/pkg/models"
)

// RequireAdmin ensures the authenticated user has the admin role.
// Apply after JWTMiddleware.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFromContext(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
			}

			if p.Role != models.RoleAdmin {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "insufficient_permissions",
					Message: "Admin access required",
				})
			}

			return next(c)
		}
	}
}
