package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hyre/internal/repository"
	"hyre/internal/service"
)

// ErrorResponse represents an error response. Details carries field-level
// violations for validation failures.
type ErrorResponse struct {
	Error   string               `json:"error"`
	Details []service.FieldError `json:"details,omitempty"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation failed",
			Details: validationErr.Violations,
		})
		return
	}

	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var tooLong *service.ExtensionTooLongError
	if errors.As(err, &tooLong) {
		return http.StatusBadRequest
	}

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrCarNotFound),
		errors.Is(err, service.ErrBookingNotActive),
		errors.Is(err, service.ErrBookingLegNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidBookingID),
		errors.Is(err, service.ErrInvalidCarID),
		errors.Is(err, service.ErrInvalidBookingType),
		errors.Is(err, service.ErrInvalidExtensionHours),
		errors.Is(err, service.ErrOnlyDayBookingsExtendable):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrCarNotAvailable),
		errors.Is(err, service.ErrBookingNotCancellable),
		errors.Is(err, service.ErrExtensionConflict):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
