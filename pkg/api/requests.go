package api

// CoachRequest is the body for POST /api/v1/coach. Exactly like the
// orchestrator's own entry contract, one of workflow, intent, or message must
// be present; data carries intent-specific inputs.
type CoachRequest struct {
	UserID    string         `json:"user_id" binding:"required"`
	SessionID string         `json:"session_id,omitempty"`
	Intent    string         `json:"intent,omitempty"`
	Workflow  string         `json:"workflow,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Context   *ContextFields `json:"context,omitempty"`
}

// CreateSessionRequest is the body for POST /api/v1/sessions. Same request
// surface as CoachRequest minus session_id; the queue assigns one.
type CreateSessionRequest struct {
	UserID   string         `json:"user_id" binding:"required"`
	Intent   string         `json:"intent,omitempty"`
	Workflow string         `json:"workflow,omitempty"`
	Message  string         `json:"message,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Context  *ContextFields `json:"context,omitempty"`
}

// ContextFields are the caller-settable parts of the agent context. Identity
// fields (user id, session id, correlation id) are never taken from here.
type ContextFields struct {
	CurrentObjective string         `json:"current_objective,omitempty"`
	SkillLevel       string         `json:"skill_level,omitempty"`
	LearningGoals    []string       `json:"learning_goals,omitempty"`
	TimeConstraints  map[string]any `json:"time_constraints,omitempty"`
	Preferences      map[string]any `json:"preferences,omitempty"`
	AttemptCount     int            `json:"attempt_count,omitempty"`
	LastFeedback     map[string]any `json:"last_feedback,omitempty"`
}

// asMap converts the context fields to the generic map stored on a queued
// session's request document, skipping unset fields. The queue worker
// rebuilds the agent context from exactly these keys.
func (f *ContextFields) asMap() map[string]any {
	if f == nil {
		return nil
	}
	m := make(map[string]any)
	if f.CurrentObjective != "" {
		m["current_objective"] = f.CurrentObjective
	}
	if f.SkillLevel != "" {
		m["skill_level"] = f.SkillLevel
	}
	if len(f.LearningGoals) > 0 {
		m["learning_goals"] = f.LearningGoals
	}
	if len(f.TimeConstraints) > 0 {
		m["time_constraints"] = f.TimeConstraints
	}
	if len(f.Preferences) > 0 {
		m["preferences"] = f.Preferences
	}
	if f.AttemptCount > 0 {
		m["attempt_count"] = f.AttemptCount
	}
	if len(f.LastFeedback) > 0 {
		m["last_feedback"] = f.LastFeedback
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
