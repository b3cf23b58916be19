package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
)

// coachHandler handles POST /api/v1/coach: one synchronous dispatch through
// the orchestrator's protection envelope. The caller waits for the terminal
// result; long-running workflows belong on POST /api/v1/sessions instead.
func (s *Server) coachHandler(c *gin.Context) {
	var req CoachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Intent == "" && req.Workflow == "" && req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of intent, workflow, or message is required"})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	cctx, err := models.NewContext(req.UserID, sessionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cctx = cctx.WithCorrelationID(requestCorrelationID(c))
	applyContextFields(cctx, req.Context)
	if err := cctx.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := &models.Payload{
		Intent:   models.Intent(req.Intent),
		Workflow: req.Workflow,
		Message:  req.Message,
		Data:     req.Data,
	}

	result := s.coach.Execute(c.Request.Context(), cctx, payload)
	c.JSON(statusForResult(result), &CoachResponse{
		SessionID:     cctx.SessionID,
		CorrelationID: cctx.CorrelationID,
		Result:        result,
	})
}

// applyContextFields copies the caller-settable context fields onto the
// request context. Validation happens afterwards on the assembled context.
func applyContextFields(cctx *models.Context, f *ContextFields) {
	if f == nil {
		return
	}
	if f.CurrentObjective != "" {
		cctx.CurrentObjective = f.CurrentObjective
	}
	if f.SkillLevel != "" {
		cctx.SkillLevel = models.SkillLevel(f.SkillLevel)
	}
	if len(f.LearningGoals) > 0 {
		cctx.LearningGoals = f.LearningGoals
	}
	if len(f.TimeConstraints) > 0 {
		cctx.TimeConstraints = f.TimeConstraints
	}
	if len(f.Preferences) > 0 {
		cctx.Preferences = f.Preferences
	}
	if f.AttemptCount > 0 {
		cctx.AttemptCount = f.AttemptCount
	}
	if len(f.LastFeedback) > 0 {
		cctx.LastFeedback = f.LastFeedback
	}
}
