package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/models"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes sessions.
type Worker struct {
	id        string
	podID     string
	store     SessionStore
	cleaner   EventCleaner
	config    *config.QueueConfig
	executor  SessionExecutor
	publisher StatusPublisher
	pool      SessionRegistry
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// Health tracking
	mu                sync.RWMutex
	status            WorkerStatus
	currentSessionID  string
	sessionsProcessed int
	lastActivity      time.Time
}

// SessionRegistry is the subset of WorkerPool used by Worker for session
// registration.
type SessionRegistry interface {
	RegisterSession(sessionID string, cancel context.CancelFunc)
	UnregisterSession(sessionID string)
}

// NewWorker creates a new queue worker.
// cleaner may be nil (event cleanup disabled).
// publisher may be nil (streaming disabled).
func NewWorker(id, podID string, store SessionStore, cleaner EventCleaner, cfg *config.QueueConfig, executor SessionExecutor, pool SessionRegistry, publisher StatusPublisher) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		store:        store,
		cleaner:      cleaner,
		config:       cfg,
		executor:     executor,
		publisher:    publisher,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:                w.id,
		Status:            string(w.status),
		CurrentSessionID:  w.currentSessionID,
		SessionsProcessed: w.sessionsProcessed,
		LastActivity:      w.lastActivity,
	}
}

// run is the main worker loop. An empty queue backs off by the jittered poll
// interval; a successful claim polls again immediately so a backlog drains
// at full speed.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoSessionsAvailable) {
					w.sleep(nextPollDelay())
					continue
				}
				log.Error("Error processing session", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims the next pending session and runs it to a terminal
// status.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	session, err := w.store.ClaimNextPendingSession(ctx, w.podID)
	if err != nil {
		return fmt.Errorf("claiming session: %w", err)
	}
	if session == nil {
		return ErrNoSessionsAvailable
	}

	log := slog.With("session_id", session.ID, "worker_id", w.id)
	log.Info("Session claimed", "intent", session.Intent, "workflow", session.Workflow)

	w.publishStatus(ctx, session.ID, models.SessionStatusInProgress, "")

	w.setStatus(WorkerStatusWorking, session.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	// Per-session timeout; also the handle the cancel endpoint pulls.
	sessionCtx, cancelSession := context.WithTimeout(ctx, w.config.SessionTimeout)
	defer cancelSession()

	w.pool.RegisterSession(session.ID, cancelSession)
	defer w.pool.UnregisterSession(session.ID)

	result := w.finalizeResult(sessionCtx, w.executor.Execute(sessionCtx, session))

	// Terminal write on a fresh context: the session context is routinely
	// expired or cancelled by this point.
	if err := w.store.CompleteSession(context.Background(), session.ID, result.Status, result.Result, result.ErrorMessage()); err != nil {
		log.Error("Failed to record terminal session status", "status", result.Status, "error", err)
		return err
	}

	w.publishStatus(context.Background(), session.ID, result.Status, result.ErrorMessage())
	w.scheduleEventCleanup(session.ID)

	w.mu.Lock()
	w.sessionsProcessed++
	w.mu.Unlock()

	log.Info("Session processing complete", "status", result.Status)
	return nil
}

// finalizeResult guarantees a terminal result. A nil result or one carrying
// no status is resolved from the session context: deadline means timed_out,
// cancellation means cancelled, anything else is a failed execution.
func (w *Worker) finalizeResult(sessionCtx context.Context, result *ExecutionResult) *ExecutionResult {
	if result == nil {
		result = &ExecutionResult{}
	}
	if result.Status != "" {
		return result
	}

	switch {
	case errors.Is(sessionCtx.Err(), context.DeadlineExceeded):
		result.Status = models.SessionStatusTimedOut
		if result.Error == nil {
			result.Error = fmt.Errorf("session timed out after %v", w.config.SessionTimeout)
		}
	case errors.Is(sessionCtx.Err(), context.Canceled):
		result.Status = models.SessionStatusCancelled
		if result.Error == nil {
			result.Error = context.Canceled
		}
	default:
		result.Status = models.SessionStatusFailed
		if result.Error == nil {
			result.Error = fmt.Errorf("executor returned no terminal status")
		}
	}
	return result
}

// publishStatus publishes a session status event for SSE delivery. Errors
// are logged, never surfaced; streaming is observability, not bookkeeping.
func (w *Worker) publishStatus(ctx context.Context, sessionID string, status models.SessionStatus, errMsg string) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.PublishSessionStatus(ctx, sessionID, events.SessionStatusPayload{
		Type:      events.EventTypeSessionStatus,
		SessionID: sessionID,
		Status:    status,
		Error:     errMsg,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	}); err != nil {
		slog.Warn("Failed to publish session status",
			"session_id", sessionID, "status", status, "error", err)
	}
}

// scheduleEventCleanup deletes the session's streamed events after a grace
// period, leaving reconnecting clients a window to catch up on the terminal
// event.
func (w *Worker) scheduleEventCleanup(sessionID string) {
	if w.cleaner == nil {
		return
	}
	time.AfterFunc(eventCleanupGrace, func() {
		if _, err := w.cleaner.CleanupSessionEvents(context.Background(), sessionID); err != nil {
			slog.Warn("Failed to clean up session events after grace period",
				"session_id", sessionID, "error", err)
		}
	})
}

// nextPollDelay returns the poll interval with jitter applied.
// Range: [pollInterval - pollIntervalJitter, pollInterval + pollIntervalJitter].
func nextPollDelay() time.Duration {
	offset := time.Duration(rand.Int64N(int64(2 * pollIntervalJitter)))
	return pollInterval - pollIntervalJitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentSessionID = sessionID
	w.lastActivity = time.Now()
}
