// Package events provides real-time event delivery via SSE and PostgreSQL
// NOTIFY/LISTEN for cross-pod distribution.
//
// Every persistent event is written to the events table and announced with
// pg_notify inside one transaction, so the row id doubles as the stream
// cursor. A reconnecting client replays its channel from the last id it saw
// (catch-up), then rides live notifications; the db_event_id field injected
// into every delivered payload is what it remembers between connections.
// Duplicates are possible in the handoff window and clients deduplicate by
// db_event_id.
package events

// Persistent event types (stored in DB + NOTIFY).
const (
	// Session lifecycle
	EventTypeSessionStatus = "session.status"

	// Workflow progress — one event per step transition
	EventTypeWorkflowStep = "workflow.step"

	// Circuit breaker transitions
	EventTypeBreakerState = "breaker.state"

	// Degraded-path notices (template exercise, static review, stale cache)
	EventTypeFallbackUsed = "fallback.used"

	// Adaptation triggers surfaced by the progress tracker
	EventTypeTriggerDetected = "trigger.detected"
)

// Workflow step status values (used in WorkflowStepPayload.Status).
const (
	WorkflowStepStarted   = "started"
	WorkflowStepCompleted = "completed"
	WorkflowStepFailed    = "failed"
	WorkflowStepSkipped   = "skipped"
)

// GlobalSessionsChannel is the channel for session-level status events.
// Dashboards subscribe to this for cross-session updates; deliveries on it
// are transient (notify-only), never part of catch-up.
const GlobalSessionsChannel = "sessions"

// SessionChannel returns the channel name for a specific session's events.
// Format: "session:{session_id}"
func SessionChannel(sessionID string) string {
	return "session:" + sessionID
}
