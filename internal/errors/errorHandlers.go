package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation          ErrorType = "VALIDATION_ERROR"
	ErrorTypeUnauthorized        ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden           ErrorType = "FORBIDDEN"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeInvalidState        ErrorType = "INVALID_STATE"
	ErrorTypeExpired             ErrorType = "EXPIRED"
	ErrorTypeGateway             ErrorType = "GATEWAY_ERROR"
	ErrorTypeInternalServerError ErrorType = "INTERNAL_SERVER_ERROR"
)

// CustomError represents a custom error with associated HTTP status code and type
type CustomError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Internal   error
}

// Error implements the error interface
func (e *CustomError) Error() string {
	return e.Message
}

// newError creates a new CustomError
func newError(errType ErrorType, message string, statusCode int, internal error) *CustomError {
	return &CustomError{
		Type:       errType,
		Message:    message,
		StatusCode: statusCode,
		Internal:   internal,
	}
}

// NewValidationError creates a new bad request error for malformed input
func NewValidationError(message string) *CustomError {
	return newError(ErrorTypeValidation, message, http.StatusBadRequest, nil)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *CustomError {
	return newError(ErrorTypeUnauthorized, message, http.StatusUnauthorized, nil)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError() *CustomError {
	return newError(ErrorTypeForbidden, "Access forbidden", http.StatusForbidden, nil)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *CustomError {
	return newError(ErrorTypeNotFound, message, http.StatusNotFound, nil)
}

// NewInvalidStateError creates a new error for an action the session's
// current status does not permit
func NewInvalidStateError(message string) *CustomError {
	return newError(ErrorTypeInvalidState, message, http.StatusBadRequest, nil)
}

// NewExpiredError creates a new error for a session past its deadline
func NewExpiredError() *CustomError {
	return newError(ErrorTypeExpired, "Consultation session has expired", http.StatusBadRequest, nil)
}

// NewGatewayError creates a new error for a failed payment-gateway call
func NewGatewayError(internal error) *CustomError {
	return newError(ErrorTypeGateway, "Failed to reach payment gateway", http.StatusInternalServerError, internal)
}

// New500Error creates a new internal server error
func New500Error(internal error) *CustomError {
	return newError(ErrorTypeInternalServerError, "An unexpected error occurred", http.StatusInternalServerError, internal)
}

// HandleError handles the custom error and sends an appropriate JSON response
func HandleError(c *gin.Context, err error) {
	var customErr *CustomError
	var ok bool

	if customErr, ok = err.(*CustomError); !ok {
		customErr = New500Error(err)
	}

	// Log errors that carry an internal cause
	if customErr.Internal != nil {
		log.Error().
			Err(customErr.Internal).
			Str("url", c.Request.URL.String()).
			Str("type", string(customErr.Type)).
			Msg("Request failed")
	}

	c.JSON(customErr.StatusCode, gin.H{
		"error": gin.H{
			"type":    customErr.Type,
			"message": customErr.Message,
		},
	})
}
