package api

import (
	"github.com/learnloop/mentor/pkg/database"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/orchestrator"
	"github.com/learnloop/mentor/pkg/queue"
)

// CoachResponse is returned by POST /api/v1/coach for both outcomes; on
// dispatch errors the HTTP status carries the classification and the result
// carries the code and message.
type CoachResponse struct {
	SessionID     string         `json:"session_id"`
	CorrelationID string         `json:"correlation_id"`
	Result        *models.Result `json:"result"`
}

// SessionCreatedResponse is returned by POST /api/v1/sessions.
type SessionCreatedResponse struct {
	SessionID     string `json:"session_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
	Message       string `json:"message"`
}

// CancelResponse is returned by POST /api/v1/sessions/:id/cancel.
type CancelResponse struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// ProgressResponse is returned by GET /api/v1/users/:id/progress. Progress
// carries the tracker's snapshot: metrics, detected triggers, and the
// needs_adaptation verdict.
type ProgressResponse struct {
	UserID        string         `json:"user_id"`
	CorrelationID string         `json:"correlation_id"`
	Progress      map[string]any `json:"progress"`
}

// HealthResponse is returned by the health endpoints.
type HealthResponse struct {
	Status       string                 `json:"status"`
	Version      string                 `json:"version"`
	Orchestrator *orchestrator.Health   `json:"orchestrator,omitempty"`
	Database     *database.HealthStatus `json:"database,omitempty"`
	WorkerPool   *queue.PoolHealth      `json:"worker_pool,omitempty"`
	Checks       map[string]HealthCheck `json:"checks"`
}

// HealthCheck is one component's verdict within a HealthResponse.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// IntentRoute is one row of the static routing table.
type IntentRoute struct {
	Intent models.Intent    `json:"intent"`
	Agent  models.AgentType `json:"agent_type"`
}

// AgentIntents lists the intents one live agent accepts.
type AgentIntents struct {
	AgentType models.AgentType `json:"agent_type"`
	Intents   []models.Intent  `json:"intents"`
}

// IntentsResponse is returned by GET /api/v1/intents: the static routing
// table in declaration order plus what the registered agents actually
// support right now.
type IntentsResponse struct {
	Routes []IntentRoute  `json:"routes"`
	Agents []AgentIntents `json:"agents"`
}
