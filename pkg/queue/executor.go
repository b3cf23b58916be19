package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/orchestrator"
)

// OrchestratorExecutor is the production SessionExecutor. A session row
// carries everything a live request would, so a worker replays it as one
// orchestrated dispatch under the session context.
type OrchestratorExecutor struct {
	orch *orchestrator.Orchestrator
}

// NewOrchestratorExecutor creates an executor backed by the given
// orchestrator.
func NewOrchestratorExecutor(orch *orchestrator.Orchestrator) *OrchestratorExecutor {
	return &OrchestratorExecutor{orch: orch}
}

// Execute rebuilds the request from the session row, runs it through the
// orchestrator, and maps the outcome onto a terminal session status.
func (e *OrchestratorExecutor) Execute(ctx context.Context, session *models.CoachSession) *ExecutionResult {
	cctx, payload, err := requestFromSession(session)
	if err != nil {
		return &ExecutionResult{
			Status: models.SessionStatusFailed,
			Error:  err,
		}
	}
	result := e.orch.Execute(ctx, cctx, payload)
	return resultFromDispatch(ctx, result)
}

// requestFromSession reconstructs the agent context and payload from the
// persisted request. The request map round-trips through JSONB, so nested
// values arrive as generic JSON types and anything malformed is skipped
// rather than failing the session.
func requestFromSession(session *models.CoachSession) (*models.Context, *models.Payload, error) {
	cctx, err := models.NewContext(session.UserID, session.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("building request context: %w", err)
	}
	cctx = cctx.WithCorrelationID(session.CorrelationID)
	if fields, ok := session.Request["context"].(map[string]any); ok {
		applyContextFields(cctx, fields)
	}

	payload := &models.Payload{
		Intent:   session.Intent,
		Workflow: session.Workflow,
	}
	if msg, ok := session.Request["message"].(string); ok {
		payload.Message = msg
	}
	if data, ok := session.Request["data"].(map[string]any); ok {
		payload.Data = data
	}
	return cctx, payload, nil
}

func applyContextFields(cctx *models.Context, fields map[string]any) {
	if v, ok := fields["current_objective"].(string); ok {
		cctx.CurrentObjective = v
	}
	if v, ok := fields["skill_level"].(string); ok {
		cctx.SkillLevel = models.SkillLevel(v)
	}
	if goals := toStringSlice(fields["learning_goals"]); len(goals) > 0 {
		cctx.LearningGoals = goals
	}
	if v, ok := fields["time_constraints"].(map[string]any); ok {
		cctx.TimeConstraints = v
	}
	if v, ok := fields["preferences"].(map[string]any); ok {
		cctx.Preferences = v
	}
	if v, ok := fields["attempt_count"].(float64); ok && v >= 0 {
		cctx.AttemptCount = int(v)
	}
	if v, ok := fields["last_feedback"].(map[string]any); ok {
		cctx.LastFeedback = v
	}
}

func toStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// resultFromDispatch maps a dispatch result onto a terminal session status.
// Context expiry outranks the result's own error code: a cancelled session
// reads as cancelled even when the dispatch surfaced the cancellation as a
// generic failure. Error results are kept on the session row; partial
// workflow outputs live in their data.
func resultFromDispatch(ctx context.Context, result *models.Result) *ExecutionResult {
	if result == nil {
		return &ExecutionResult{
			Status: models.SessionStatusFailed,
			Error:  errors.New("orchestrator returned no result"),
		}
	}
	if !result.IsError() {
		return &ExecutionResult{
			Status: models.SessionStatusCompleted,
			Result: result,
		}
	}

	execErr := fmt.Errorf("%s: %s", result.ErrorCode, result.Error)
	status := models.SessionStatusFailed
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		status = models.SessionStatusTimedOut
	case errors.Is(ctx.Err(), context.Canceled):
		status = models.SessionStatusCancelled
	case result.ErrorCode == models.ErrCodeTimeout:
		status = models.SessionStatusTimedOut
	}
	return &ExecutionResult{
		Status: status,
		Result: result,
		Error:  execErr,
	}
}
