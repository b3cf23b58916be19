package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/models"
)

func TestPoolRegisterAndCancelSession(t *testing.T) {
	pool := &WorkerPool{
		activeSessions: make(map[string]context.CancelFunc),
	}

	ctx, cancel := context.WithCancel(context.Background())
	pool.RegisterSession("session-1", cancel)

	assert.True(t, pool.CancelSession("session-1"))
	assert.Error(t, ctx.Err(), "cancel must fire the registered cancel func")

	assert.False(t, pool.CancelSession("unknown"))
}

func TestPoolUnregisterSession(t *testing.T) {
	pool := &WorkerPool{
		activeSessions: make(map[string]context.CancelFunc),
	}

	_, cancel := context.WithCancel(context.Background())
	pool.RegisterSession("session-1", cancel)
	assert.True(t, pool.CancelSession("session-1"))

	pool.UnregisterSession("session-1")
	assert.False(t, pool.CancelSession("session-1"))
}

func TestPoolGetActiveSessionIDs(t *testing.T) {
	pool := &WorkerPool{
		activeSessions: make(map[string]context.CancelFunc),
	}

	assert.Empty(t, pool.getActiveSessionIDs())

	_, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	_, cancel2 := context.WithCancel(context.Background())
	defer cancel2()
	pool.RegisterSession("session-a", cancel1)
	pool.RegisterSession("session-b", cancel2)

	ids := pool.getActiveSessionIDs()
	require.Len(t, ids, 2)
	assert.Contains(t, ids, "session-a")
	assert.Contains(t, ids, "session-b")
}

func TestPoolStopTwiceDoesNotPanic(t *testing.T) {
	pool := &WorkerPool{
		stopCh:         make(chan struct{}),
		activeSessions: make(map[string]context.CancelFunc),
	}

	pool.Stop()

	// sync.Once guards the channel close.
	assert.NotPanics(t, func() { pool.Stop() })
}

func TestPoolStartSweepsOwnClaims(t *testing.T) {
	store := &fakeStore{podCount: 2}
	cfg := testQueueConfig()
	cfg.WorkerCount = 1
	pool := NewWorkerPool("pod-1", store, nil, cfg, &fakeExecutor{fn: completeImmediately}, nil)

	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	assert.Equal(t, []string{"pod-1"}, store.podSweepCalls(),
		"startup must requeue claims left by a previous run of this pod")

	// Duplicate Start is a no-op.
	require.NoError(t, pool.Start(context.Background()))
	assert.Equal(t, []string{"pod-1"}, store.podSweepCalls())
}

func TestPoolStartFailsWhenSweepFails(t *testing.T) {
	store := &failingSweepStore{fakeStore: &fakeStore{}}
	pool := NewWorkerPool("pod-1", store, nil, testQueueConfig(), nil, nil)

	err := pool.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requeueing sessions from previous run")
}

// failingSweepStore wraps fakeStore with a startup sweep that always fails.
type failingSweepStore struct {
	*fakeStore
}

func (s *failingSweepStore) RequeuePodSessions(context.Context, string) (int, error) {
	return 0, errors.New("database unavailable")
}

func TestPoolProcessesQueuedSessions(t *testing.T) {
	store := &fakeStore{
		pending: []*models.CoachSession{
			pendingSession("s1"), pendingSession("s2"), pendingSession("s3"),
		},
		counts: map[string]int{},
	}
	pool := NewWorkerPool("pod-1", store, nil, testQueueConfig(), &fakeExecutor{fn: completeImmediately}, nil)

	require.NoError(t, pool.Start(context.Background()))
	require.Eventually(t, func() bool {
		return len(store.completedCalls()) == 3
	}, 2*time.Second, 10*time.Millisecond)
	pool.Stop()

	for _, call := range store.completedCalls() {
		assert.Equal(t, models.SessionStatusCompleted, call.status)
	}
}

func TestPoolHealth(t *testing.T) {
	store := &fakeStore{
		counts: map[string]int{
			string(models.SessionStatusPending):    3,
			string(models.SessionStatusInProgress): 2,
		},
	}
	cfg := testQueueConfig()
	pool := NewWorkerPool("pod-1", store, nil, cfg, &fakeExecutor{fn: completeImmediately}, nil)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	h := pool.Health()
	assert.True(t, h.IsHealthy)
	assert.True(t, h.DBReachable)
	assert.Empty(t, h.DBError)
	assert.Equal(t, "pod-1", h.PodID)
	assert.Equal(t, cfg.WorkerCount, h.TotalWorkers)
	assert.Equal(t, 3, h.QueueDepth)
	assert.Equal(t, 2, h.InProgress)
	assert.Len(t, h.WorkerStats, cfg.WorkerCount)
}

func TestPoolHealthUnreachableDB(t *testing.T) {
	store := &fakeStore{countsErr: errors.New("connection refused")}
	pool := NewWorkerPool("pod-1", store, nil, testQueueConfig(), &fakeExecutor{fn: completeImmediately}, nil)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	h := pool.Health()
	assert.False(t, h.IsHealthy)
	assert.False(t, h.DBReachable)
	assert.Contains(t, h.DBError, "connection refused")
}

func TestPoolOrphanRequeue(t *testing.T) {
	store := &fakeStore{orphanCount: 4}
	cfg := testQueueConfig()
	pool := NewWorkerPool("pod-1", store, nil, cfg, nil, nil)

	require.NoError(t, pool.requeueOrphans(context.Background()))

	store.mu.Lock()
	cuts := append([]time.Duration(nil), store.orphanCuts...)
	store.mu.Unlock()
	require.Len(t, cuts, 1)
	assert.Equal(t, 2*cfg.SessionTimeout, cuts[0],
		"a claim older than twice the session timeout has no live owner")

	h := pool.Health()
	assert.Equal(t, 4, h.OrphansRequeued)
	assert.False(t, h.LastOrphanScan.IsZero())
}
