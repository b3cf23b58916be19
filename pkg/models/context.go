package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Context is the immutable per-request carrier handed to every agent.
// Agents read it; they never mutate it. Scratch data belongs on the agent's
// own Result metadata.
type Context struct {
	UserID           string         `json:"user_id"`
	SessionID        string         `json:"session_id"`
	CorrelationID    string         `json:"correlation_id"`
	CurrentObjective string         `json:"current_objective,omitempty"`
	SkillLevel       SkillLevel     `json:"skill_level,omitempty"`
	LearningGoals    []string       `json:"learning_goals,omitempty"`
	TimeConstraints  map[string]any `json:"time_constraints,omitempty"`
	Preferences      map[string]any `json:"preferences,omitempty"`
	AttemptCount     int            `json:"attempt_count"`
	LastFeedback     map[string]any `json:"last_feedback,omitempty"`
}

// NewContext builds a request context. UserID and SessionID are required;
// a correlation id is generated when none is supplied.
func NewContext(userID, sessionID string) (*Context, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if sessionID == "" {
		return nil, fmt.Errorf("session_id is required")
	}
	return &Context{
		UserID:        userID,
		SessionID:     sessionID,
		CorrelationID: uuid.New().String(),
	}, nil
}

// WithCorrelationID returns a copy of the context carrying the given
// correlation id. Used when a caller (HTTP middleware, queue worker) already
// assigned one.
func (c *Context) WithCorrelationID(id string) *Context {
	if id == "" {
		return c
	}
	out := *c
	out.CorrelationID = id
	return &out
}

// Validate checks the construction invariants. SkillLevel and AttemptCount
// are optional but must be well-formed when present.
func (c *Context) Validate() error {
	if c.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if c.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	if c.CorrelationID == "" {
		return fmt.Errorf("correlation_id is required")
	}
	if c.SkillLevel != "" && !ValidSkillLevel(c.SkillLevel) {
		return fmt.Errorf("unknown skill_level %q", c.SkillLevel)
	}
	if c.AttemptCount < 0 {
		return fmt.Errorf("attempt_count must be >= 0")
	}
	return nil
}
