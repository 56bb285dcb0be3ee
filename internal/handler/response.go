package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"lms/internal/repository"
	"lms/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, service.ErrItemNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidPaymentID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrInvalidItemID),
		errors.Is(err, service.ErrInvalidPurchaseType),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInvalidVoucherCode),
		errors.Is(err, service.ErrVoucherInvalid),
		errors.Is(err, service.ErrPaymentVerificationFailed):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, service.ErrVoucherExhausted),
		errors.Is(err, service.ErrAlreadyEnrolled),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCallbackInProgress):
		return http.StatusConflict

	// Transient errors - the caller may retry
	case errors.Is(err, service.ErrNumberGenerationCollision),
		errors.Is(err, service.ErrEntitlementWriteFailed):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
