package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/models"
)

// WorkerPool manages a pool of queue workers.
type WorkerPool struct {
	podID     string
	store     SessionStore
	cleaner   EventCleaner
	config    *config.QueueConfig
	executor  SessionExecutor
	publisher StatusPublisher
	workers   []*Worker
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup

	// Session cancel registry: session_id → cancel function
	activeSessions map[string]context.CancelFunc
	mu             sync.RWMutex
	started        bool

	// Orphan requeue state
	orphans orphanState
}

// NewWorkerPool creates a new worker pool.
// cleaner and publisher may be nil; workers pass them through.
func NewWorkerPool(podID string, store SessionStore, cleaner EventCleaner, cfg *config.QueueConfig, executor SessionExecutor, publisher StatusPublisher) *WorkerPool {
	return &WorkerPool{
		podID:          podID,
		store:          store,
		cleaner:        cleaner,
		config:         cfg,
		executor:       executor,
		publisher:      publisher,
		workers:        make([]*Worker, 0, cfg.WorkerCount),
		stopCh:         make(chan struct{}),
		activeSessions: make(map[string]context.CancelFunc),
	}
}

// Start requeues this pod's abandoned claims, spawns the worker goroutines,
// and starts the orphan requeue background task.
// It is safe to call multiple times; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) error {
	if p.started {
		slog.Warn("Worker pool already started, ignoring duplicate Start call", "pod_id", p.podID)
		return nil
	}
	p.started = true

	// Claims left over from a previous run of this pod go back to the queue
	// before any worker starts claiming new work.
	requeued, err := p.store.RequeuePodSessions(ctx, p.podID)
	if err != nil {
		return fmt.Errorf("requeueing sessions from previous run: %w", err)
	}
	if requeued > 0 {
		slog.Warn("Requeued sessions from previous run", "pod_id", p.podID, "count", requeued)
	}

	slog.Info("Starting worker pool", "pod_id", p.podID, "worker_count", p.config.WorkerCount)

	for i := 0; i < p.config.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", p.podID, i)
		worker := NewWorker(workerID, p.podID, p.store, p.cleaner, p.config, p.executor, p, p.publisher)
		p.workers = append(p.workers, worker)
		worker.Start(ctx)
	}

	// Start orphan requeue scanning
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.runOrphanRequeue(ctx)
	}()

	slog.Info("Worker pool started")
	return nil
}

// Stop signals all workers to stop and waits for them to finish.
// Workers finish their current sessions before exiting (graceful shutdown).
func (p *WorkerPool) Stop() {
	slog.Info("Stopping worker pool gracefully")

	// Log active sessions
	active := p.getActiveSessionIDs()
	if len(active) > 0 {
		slog.Info("Waiting for active sessions to complete",
			"count", len(active),
			"session_ids", active)
	}

	// Signal all workers to stop (they finish current sessions)
	for _, worker := range p.workers {
		worker.Stop()
	}

	// Signal orphan requeue to stop
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()

	slog.Info("Worker pool stopped gracefully")
}

// RegisterSession stores a cancel function for manual cancellation.
func (p *WorkerPool) RegisterSession(sessionID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeSessions[sessionID] = cancel
}

// UnregisterSession removes the cancel function when processing ends.
func (p *WorkerPool) UnregisterSession(sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.activeSessions, sessionID)
}

// CancelSession triggers context cancellation for a session on this pod.
// Returns true if the session was found and cancelled on this pod.
func (p *WorkerPool) CancelSession(sessionID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.activeSessions[sessionID]; ok {
		cancel()
		return true
	}
	return false
}

// Health returns the current health status of the pool.
func (p *WorkerPool) Health() *PoolHealth {
	ctx := context.Background()

	counts, err := p.store.CountSessionsByStatus(ctx)
	if err != nil {
		slog.Error("Failed to query session counts for health check",
			"pod_id", p.podID,
			"error", err)
	}

	workerStats := make([]WorkerHealth, len(p.workers))
	activeWorkers := 0
	for i, worker := range p.workers {
		stats := worker.Health()
		workerStats[i] = stats
		if stats.Status == string(WorkerStatusWorking) {
			activeWorkers++
		}
	}

	// DB errors affect health status: a pool that cannot reach the DB
	// cannot claim work.
	dbHealthy := err == nil
	var dbError string
	if err != nil {
		dbError = fmt.Sprintf("session count query failed: %v", err)
	}

	p.orphans.mu.Lock()
	lastOrphanScan := p.orphans.lastScan
	orphansRequeued := p.orphans.requeued
	p.orphans.mu.Unlock()

	return &PoolHealth{
		IsHealthy:       len(p.workers) > 0 && dbHealthy,
		DBReachable:     dbHealthy,
		DBError:         dbError,
		PodID:           p.podID,
		ActiveWorkers:   activeWorkers,
		TotalWorkers:    len(p.workers),
		ActiveSessions:  len(p.getActiveSessionIDs()),
		QueueDepth:      counts[string(models.SessionStatusPending)],
		InProgress:      counts[string(models.SessionStatusInProgress)],
		WorkerStats:     workerStats,
		LastOrphanScan:  lastOrphanScan,
		OrphansRequeued: orphansRequeued,
	}
}

// getActiveSessionIDs returns IDs of currently processing sessions (for logging).
func (p *WorkerPool) getActiveSessionIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sessions := make([]string, 0, len(p.activeSessions))
	for id := range p.activeSessions {
		sessions = append(sessions, id)
	}
	return sessions
}
