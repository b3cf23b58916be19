package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
)

// progressHandler handles GET /api/v1/users/:id/progress: a read-only
// snapshot of the user's learning metrics and any pending adaptation
// triggers, served through a single trigger-detection dispatch so the
// response reflects the same view the adaptation loop acts on.
func (s *Server) progressHandler(c *gin.Context) {
	userID := c.Param("id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user id is required"})
		return
	}

	cctx, err := models.NewContext(userID, uuid.New().String())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cctx = cctx.WithCorrelationID(requestCorrelationID(c))

	payload := &models.Payload{Intent: models.IntentDetectAdaptationTriggers}
	result := s.coach.Execute(c.Request.Context(), cctx, payload)
	if result.IsError() {
		c.JSON(statusForResult(result), gin.H{
			"error":      result.Error,
			"error_code": result.ErrorCode,
		})
		return
	}

	c.JSON(http.StatusOK, &ProgressResponse{
		UserID:        userID,
		CorrelationID: cctx.CorrelationID,
		Progress:      result.Data,
	})
}
