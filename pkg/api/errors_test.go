package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/services"
)

func TestStatusForCode(t *testing.T) {
	tests := []struct {
		code models.ErrorCode
		want int
	}{
		{models.ErrCodeValidation, http.StatusBadRequest},
		{models.ErrCodeNoAgentForIntent, http.StatusNotFound},
		{models.ErrCodeUnknownWorkflow, http.StatusNotFound},
		{models.ErrCodeAgentUnavailable, http.StatusServiceUnavailable},
		{models.ErrCodeCircuitOpen, http.StatusServiceUnavailable},
		{models.ErrCodeTimeout, http.StatusGatewayTimeout},
		{models.ErrCodeProcessing, http.StatusInternalServerError},
		{models.ErrorCode("surprise"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, statusForCode(tt.code))
		})
	}
}

func TestStatusForResult(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, statusForResult(nil))
	assert.Equal(t, http.StatusOK, statusForResult(models.SuccessResult(nil)))
	assert.Equal(t, http.StatusGatewayTimeout,
		statusForResult(models.ErrorResult(models.ErrCodeTimeout, "too slow")))
}

func TestServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation error", services.NewValidationError("user_id", "is required"), http.StatusBadRequest},
		{"not found", services.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("load session: %w", services.ErrNotFound), http.StatusNotFound},
		{"already exists", services.ErrAlreadyExists, http.StatusConflict},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			serviceError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestServiceErrorHidesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	serviceError(c, errors.New("pq: connection refused on 10.0.0.3"))

	body := decodeBody(t, w)
	assert.Equal(t, "internal server error", body["error"])
}
