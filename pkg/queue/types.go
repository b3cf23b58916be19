// Package queue runs the asynchronous coaching sessions: a pool of workers
// claims pending coach_sessions from the database, executes them through the
// orchestrator, and records the terminal outcome.
//
// Claims use FOR UPDATE SKIP LOCKED (via the session service) so any number
// of replicas can poll the same table without double-claiming. There is no
// broker and no in-memory queue state; a restarted replica requeues its own
// abandoned claims at startup and a periodic scan requeues claims whose pod
// died without restarting.
package queue

import (
	"context"
	"errors"
	"time"

	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/models"
)

// ErrNoSessionsAvailable indicates no pending sessions are in the queue.
var ErrNoSessionsAvailable = errors.New("no sessions available")

// Poll cadence. Jitter spreads the claim queries of concurrent workers and
// replicas so they do not hit the pending index in lockstep.
const (
	pollInterval       = 1 * time.Second
	pollIntervalJitter = 250 * time.Millisecond
)

// eventCleanupGrace is how long a finished session's streamed events stay in
// the events table after the terminal status event, giving subscribers time
// to receive it and reconnecting clients time to catch up.
const eventCleanupGrace = 60 * time.Second

// SessionExecutor runs one claimed session to completion. The worker owns
// claiming, the per-session timeout context, the terminal status write, and
// event cleanup; the executor owns everything in between.
//
// Execute must honor ctx cancellation. A nil return or a result with no
// status is resolved by the worker from the context's state.
type SessionExecutor interface {
	Execute(ctx context.Context, session *models.CoachSession) *ExecutionResult
}

// ExecutionResult is the terminal state of one session execution.
type ExecutionResult struct {
	Status models.SessionStatus // completed, failed, timed_out, cancelled
	Result *models.Result       // orchestrator result (nil when execution never ran)
	Error  error                // failure detail (nil on success)
}

// ErrorMessage returns the error text for the session record, "" when none.
func (r *ExecutionResult) ErrorMessage() string {
	if r.Error != nil {
		return r.Error.Error()
	}
	return ""
}

// SessionStore is the subset of the coach session service used by the pool
// and its workers. *services.CoachSessionService implements it.
type SessionStore interface {
	ClaimNextPendingSession(ctx context.Context, podID string) (*models.CoachSession, error)
	CompleteSession(ctx context.Context, sessionID string, status models.SessionStatus, result *models.Result, errorMessage string) error
	RequeueOrphanedSessions(ctx context.Context, olderThan time.Duration) (int, error)
	RequeuePodSessions(ctx context.Context, podID string) (int, error)
	CountSessionsByStatus(ctx context.Context) (map[string]int, error)
}

// EventCleaner prunes a finished session's streamed events after the
// delivery grace period. *services.EventService implements it.
type EventCleaner interface {
	CleanupSessionEvents(ctx context.Context, sessionID string) (int, error)
}

// StatusPublisher publishes session lifecycle events. Implemented by
// events.EventPublisher; defined as an interface here so workers can run
// with streaming disabled (nil) and tests can capture publishes.
type StatusPublisher interface {
	PublishSessionStatus(ctx context.Context, sessionID string, payload events.SessionStatusPayload) error
}

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy       bool           `json:"is_healthy"`
	DBReachable     bool           `json:"db_reachable"`
	DBError         string         `json:"db_error,omitempty"`
	PodID           string         `json:"pod_id"`
	ActiveWorkers   int            `json:"active_workers"`
	TotalWorkers    int            `json:"total_workers"`
	ActiveSessions  int            `json:"active_sessions"` // sessions running on this pod
	QueueDepth      int            `json:"queue_depth"`     // pending sessions across all pods
	InProgress      int            `json:"in_progress"`     // in-progress sessions across all pods
	WorkerStats     []WorkerHealth `json:"worker_stats"`
	LastOrphanScan  time.Time      `json:"last_orphan_scan"`
	OrphansRequeued int            `json:"orphans_requeued"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID                string    `json:"id"`
	Status            string    `json:"status"` // "idle" or "working"
	CurrentSessionID  string    `json:"current_session_id,omitempty"`
	SessionsProcessed int       `json:"sessions_processed"`
	LastActivity      time.Time `json:"last_activity"`
}
