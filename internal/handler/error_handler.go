package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"project-review-api/internal/response"
)

// handleAppError maps service layer errors to appropriate HTTP responses
func handleAppError(c *gin.Context, appErr *response.AppError) {
	response.SendError(c, mapErrorCodeToHTTPStatus(appErr.Code), appErr.Code, appErr.Message)
}

// mapErrorCodeToHTTPStatus maps error codes to HTTP status codes
func mapErrorCodeToHTTPStatus(code string) int {
	switch code {
	case response.ErrCodeNotFound:
		return http.StatusNotFound
	case response.ErrCodeValidation:
		return http.StatusBadRequest
	case response.ErrCodeInvalidTransition:
		return http.StatusConflict
	case response.ErrCodeConflict:
		return http.StatusConflict
	case response.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case response.ErrCodeForbidden:
		return http.StatusForbidden
	case response.ErrCodeIntegrityFailure:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
