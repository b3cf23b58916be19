package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnloop/mentor/pkg/models"
)

// createSessionHandler handles POST /api/v1/sessions: enqueue an async
// coaching session and return immediately. A worker claims it, replays it
// through the orchestrator, and stores the terminal result; progress is
// observable on the session's SSE channel.
func (s *Server) createSessionHandler(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Intent == "" && req.Workflow == "" && req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "one of intent, workflow, or message is required"})
		return
	}

	// The request document mirrors what the queue worker rebuilds: message
	// and data become the payload, context seeds the agent context.
	request := make(map[string]any)
	if req.Message != "" {
		request["message"] = req.Message
	}
	if len(req.Data) > 0 {
		request["data"] = req.Data
	}
	if ctxFields := req.Context.asMap(); ctxFields != nil {
		request["context"] = ctxFields
	}

	sess, err := s.store.CreateSession(c.Request.Context(), models.CreateCoachSessionRequest{
		UserID:        req.UserID,
		CorrelationID: requestCorrelationID(c),
		Intent:        models.Intent(req.Intent),
		Workflow:      req.Workflow,
		Request:       request,
	})
	if err != nil {
		serviceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, &SessionCreatedResponse{
		SessionID:     sess.ID,
		CorrelationID: sess.CorrelationID,
		Status:        string(sess.Status),
		Message:       "Session queued for processing",
	})
}

// getSessionHandler handles GET /api/v1/sessions/:id.
func (s *Server) getSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	sess, err := s.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

// listSessionsHandler handles GET /api/v1/sessions. Filters: user_id,
// status, created_after, created_before (RFC3339); pagination via limit and
// offset. Unknown status values and malformed dates are rejected; malformed
// pagination values fall back to the defaults.
func (s *Server) listSessionsHandler(c *gin.Context) {
	var filters models.CoachSessionFilters

	filters.UserID = c.Query("user_id")

	if v := c.Query("status"); v != "" {
		if !models.ValidSessionStatus(models.SessionStatus(v)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status: " + v})
			return
		}
		filters.Status = v
	}

	if v := c.Query("created_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_after: must be RFC3339"})
			return
		}
		filters.CreatedAfter = &t
	}
	if v := c.Query("created_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid created_before: must be RFC3339"})
			return
		}
		filters.CreatedBefore = &t
	}

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.Limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filters.Offset = n
		}
	}

	result, err := s.store.ListSessions(c.Request.Context(), filters)
	if err != nil {
		serviceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// cancelSessionHandler handles POST /api/v1/sessions/:id/cancel. A pending
// session is cancelled in the database; an in-progress session is cancelled
// through its worker's context on this pod. Sessions running on another
// replica and already-terminal sessions are not cancellable here.
func (s *Server) cancelSessionHandler(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session id is required"})
		return
	}

	cancelled, err := s.store.CancelPendingSession(c.Request.Context(), sessionID)
	if err != nil {
		serviceError(c, err)
		return
	}

	// Regardless of the pending-cancel outcome, try the local worker pool: a
	// worker may have claimed the session between the caller's read and now.
	podCancelled := false
	if s.pool != nil {
		podCancelled = s.pool.CancelSession(sessionID)
	}

	if !cancelled && !podCancelled {
		sess, err := s.store.GetSession(c.Request.Context(), sessionID)
		if err != nil {
			serviceError(c, err)
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":  "session is not in a cancellable state",
			"status": sess.Status,
		})
		return
	}

	c.JSON(http.StatusOK, &CancelResponse{
		SessionID: sessionID,
		Message:   "Session cancellation requested",
	})
}
