package response

import (
	"fmt"

	"github.com/gin-gonic/gin"
)

// Error codes returned by the service layer
const (
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeIntegrityFailure  = "INTEGRITY_FAILURE"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// AppError is the typed error carried from the service layer to handlers
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAppError creates a new AppError with the given code
func NewAppError(code, message, details string) *AppError {
	return &AppError{Code: code, Message: message, Details: details}
}

// NewValidationError creates a VALIDATION_ERROR AppError
func NewValidationError(message, details string) *AppError {
	return NewAppError(ErrCodeValidation, message, details)
}

// NewNotFoundError creates a NOT_FOUND AppError
func NewNotFoundError(message, details string) *AppError {
	return NewAppError(ErrCodeNotFound, message, details)
}

// NewInvalidTransitionError creates an INVALID_TRANSITION AppError
func NewInvalidTransitionError(message, details string) *AppError {
	return NewAppError(ErrCodeInvalidTransition, message, details)
}

// NewForbiddenError creates a FORBIDDEN AppError
func NewForbiddenError(message, details string) *AppError {
	return NewAppError(ErrCodeForbidden, message, details)
}

// NewConflictError creates a CONFLICT AppError
func NewConflictError(message, details string) *AppError {
	return NewAppError(ErrCodeConflict, message, details)
}

// NewIntegrityError creates an INTEGRITY_FAILURE AppError
func NewIntegrityError(message, details string) *AppError {
	return NewAppError(ErrCodeIntegrityFailure, message, details)
}

// errorBody is the wire format for error responses
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendError writes a JSON error envelope and the given HTTP status
func SendError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"error":   errorBody{Code: code, Message: message},
		"message": message,
	})
}

// SendSuccess writes a JSON success envelope
func SendSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}
