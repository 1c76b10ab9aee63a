package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jordanlanch/leadbook/pkg/domain"
	"github.com/jordanlanch/leadbook/pkg/logger"
	"github.com/jordanlanch/leadbook/pkg/models"
)

// Respond translates a domain error into the matching HTTP response.
// Validation failures carry their per-field breakdown; everything else
// maps onto the uniform error body. Unknown errors are logged and hidden
// behind a generic 500.
func Respond(c echo.Context, log logger.Logger, err error) error {
	switch {
	case domain.IsValidation(err):
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request data. Please check your input and try again.",
			Fields:  toAPIFields(domain.ValidationFields(err)),
		})
	case domain.IsUnauthorized(err):
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "unauthorized",
			Message: "You are not authorized to access this resource.",
		})
	case domain.IsForbidden(err):
		return c.JSON(http.StatusForbidden, models.ErrorResponse{
			Error:   "forbidden",
			Message: "You do not have permission to modify this resource.",
		})
	case domain.IsNotFound(err):
		return c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "The requested resource was not found.",
		})
	case domain.IsConflict(err):
		return c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: "Record changed, please refresh and try again.",
		})
	default:
		log.Error("unhandled error", "path", c.Request().URL.Path, "error", err)
		return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred. Please try again later.",
		})
	}
}

func toAPIFields(fields []domain.FieldError) []models.FieldError {
	out := make([]models.FieldError, len(fields))
	for i, f := range fields {
		out[i] = models.FieldError{Field: f.Field, Message: f.Message}
	}
	return out
}
