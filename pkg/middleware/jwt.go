package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadbook/pkg/auth"
	"github.com/jordanlanch/leadbook/pkg/authz"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// JWTMiddleware authenticates requests with a Bearer token and stores
// the principal's identity in the request context.
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "missing_token",
					Message: "Authorization header is required",
				})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token_format",
					Message: "Authorization header must be 'Bearer {token}'",
				})
			}

			claims, err := auth.ValidateJWT(parts[1], secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Token is invalid or expired",
				})
			}

			c.Set("user_id", claims.UserID)
			c.Set("user_email", claims.Email)
			c.Set("user_role", claims.Role)

			return next(c)
		}
	}
}

// PrincipalFromContext rebuilds the authenticated principal stored by
// JWTMiddleware. The boolean is false on routes that skipped auth.
func PrincipalFromContext(c echo.Context) (authz.Principal, bool) {
	id, ok := c.Get("user_id").(string)
	if !ok || id == "" {
		return authz.Principal{}, false
	}
	email, _ := c.Get("user_email").(string)
	role, _ := c.Get("user_role").(string)
	return authz.Principal{ID: id, Email: email, Role: role}, true
}
