package events

import (
	"github.com/learnloop/mentor/pkg/models"
)

// SessionStatusPayload is the payload for session.status events.
// Published when a coaching session transitions between lifecycle states.
type SessionStatusPayload struct {
	Type      string               `json:"type"`            // always EventTypeSessionStatus
	SessionID string               `json:"session_id"`      // session UUID
	Status    models.SessionStatus `json:"status"`          // pending, in_progress, completed, failed, timed_out, cancelled
	Error     string               `json:"error,omitempty"` // failure detail on failed/timed_out
	Timestamp string               `json:"timestamp"`       // RFC3339Nano
}

// WorkflowStepPayload is the payload for workflow.step events.
// One event per step transition; a three-step workflow emits at least six
// (started and a terminal status per step).
type WorkflowStepPayload struct {
	Type       string `json:"type"`            // always EventTypeWorkflowStep
	SessionID  string `json:"session_id"`      // owning session
	Workflow   string `json:"workflow"`        // workflow name (e.g. "submission_review")
	StepIndex  int    `json:"step_index"`      // 1-based
	TotalSteps int    `json:"total_steps"`     // steps in the workflow
	Intent     string `json:"intent"`          // intent the step dispatches
	AgentType  string `json:"agent_type"`      // agent addressed by the step
	Status     string `json:"status"`          // started, completed, failed, skipped
	Error      string `json:"error,omitempty"` // failure detail on failed
	Timestamp  string `json:"timestamp"`       // RFC3339Nano
}

// BreakerStatePayload is the payload for breaker.state events.
// Published when an agent's circuit breaker changes state. The session is
// the one whose call observed the transition; the breaker itself is
// per-agent and outlives the session.
type BreakerStatePayload struct {
	Type      string `json:"type"`       // always EventTypeBreakerState
	SessionID string `json:"session_id"` // session whose call tripped the transition
	AgentType string `json:"agent_type"` // agent the breaker guards
	State     string `json:"state"`      // closed, open, half_open
	Failures  int    `json:"failures"`   // consecutive failures at transition time
	Timestamp string `json:"timestamp"`  // RFC3339Nano
}

// FallbackUsedPayload is the payload for fallback.used events.
// Published when a degraded path served the response (template exercise,
// static review, stale cache entry).
type FallbackUsedPayload struct {
	Type      string `json:"type"`       // always EventTypeFallbackUsed
	SessionID string `json:"session_id"` // owning session
	AgentType string `json:"agent_type"` // agent whose fallback ran
	Intent    string `json:"intent"`     // operation that degraded
	Reason    string `json:"reason"`     // timeout, error, breaker_open
	Timestamp string `json:"timestamp"`  // RFC3339Nano
}

// TriggerDetectedPayload is the payload for trigger.detected events.
// Published when the progress tracker's detection pass fires an adaptation
// trigger for a learner.
type TriggerDetectedPayload struct {
	Type        string  `json:"type"`              // always EventTypeTriggerDetected
	SessionID   string  `json:"session_id"`        // owning session
	UserID      string  `json:"user_id"`           // learner the trigger concerns
	TriggerType string  `json:"trigger_type"`      // consecutive_failures, quick_success, ...
	Severity    string  `json:"severity"`          // high, medium, low
	Action      string  `json:"action"`            // suggested adaptation action tag
	Confidence  float64 `json:"confidence"`        // 0..1
	TaskID      string  `json:"task_id,omitempty"` // task that fired the trigger, when task-scoped
	Timestamp   string  `json:"timestamp"`         // RFC3339Nano
}
