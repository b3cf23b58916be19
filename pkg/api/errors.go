package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/services"
)

// statusForCode maps a dispatch error code to its HTTP status. Routing
// misses are 404s, availability failures are 503s, deadline expiry is a
// 504, and anything unclassified is a 500.
func statusForCode(code models.ErrorCode) int {
	switch code {
	case models.ErrCodeValidation:
		return http.StatusBadRequest
	case models.ErrCodeNoAgentForIntent, models.ErrCodeUnknownWorkflow:
		return http.StatusNotFound
	case models.ErrCodeAgentUnavailable, models.ErrCodeCircuitOpen:
		return http.StatusServiceUnavailable
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// statusForResult is statusForCode applied to a whole result: success
// variants are 200s.
func statusForResult(result *models.Result) int {
	if result == nil {
		return http.StatusInternalServerError
	}
	if !result.IsError() {
		return http.StatusOK
	}
	return statusForCode(result.ErrorCode)
}

// serviceError maps service-layer errors to HTTP error responses.
func serviceError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
	case errors.Is(err, services.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "resource already exists"})
	default:
		slog.Error("Unexpected service error", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
