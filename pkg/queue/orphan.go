package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// orphanState tracks orphan requeue metrics (thread-safe).
type orphanState struct {
	mu       sync.Mutex
	lastScan time.Time
	requeued int
}

// runOrphanRequeue periodically returns abandoned claims to the queue.
// All pods run this scan independently; the requeue update is idempotent,
// so overlapping scans are harmless.
func (p *WorkerPool) runOrphanRequeue(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.requeueOrphans(ctx); err != nil {
				slog.Error("Orphan requeue failed", "error", err)
			}
		}
	}
}

// requeueOrphans returns in-progress sessions whose claim has outlived any
// possible owner to pending. The sessions lose their pod assignment and are
// picked up again by the next claim, on whichever pod polls first.
func (p *WorkerPool) requeueOrphans(ctx context.Context) error {
	requeued, err := p.store.RequeueOrphanedSessions(ctx, p.orphanCutoff())
	if err != nil {
		return err
	}

	p.orphans.mu.Lock()
	p.orphans.lastScan = time.Now()
	p.orphans.requeued += requeued
	p.orphans.mu.Unlock()

	if requeued > 0 {
		slog.Warn("Requeued orphaned sessions", "count", requeued, "older_than", p.orphanCutoff())
	}
	return nil
}

// orphanCutoff is the claim age past which a session is considered
// abandoned. A live worker finishes or times out within SessionTimeout and
// writes the terminal status right after, so a claim twice that old belongs
// to a pod that died without restarting.
func (p *WorkerPool) orphanCutoff() time.Duration {
	return 2 * p.config.SessionTimeout
}
