package breaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func succeed(context.Context) error { return nil }
func fail(context.Context) error    { return errBoom }

// newTestBreaker returns a breaker with a controllable clock.
func newTestBreaker(cfg Config) (*CircuitBreaker, *time.Time) {
	b := New("test", cfg)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestExecute_SuccessKeepsClosed(t *testing.T) {
	b, _ := newTestBreaker(Config{})

	for i := 0; i < 10; i++ {
		require.NoError(t, b.Execute(context.Background(), 0, succeed))
	}

	stats := b.Stats()
	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, 0, stats.ConsecutiveFailures)
	assert.Equal(t, int64(10), stats.TotalCalls)
}

func TestExecute_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})

	// threshold-1 failures: still closed
	for i := 0; i < 2; i++ {
		require.Error(t, b.Execute(context.Background(), 0, fail))
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Stats().ConsecutiveFailures)

	// threshold-th failure opens the circuit
	require.Error(t, b.Execute(context.Background(), 0, fail))
	assert.Equal(t, StateOpen, b.State())
}

func TestExecute_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})

	require.Error(t, b.Execute(context.Background(), 0, fail))
	require.Error(t, b.Execute(context.Background(), 0, fail))
	require.NoError(t, b.Execute(context.Background(), 0, succeed))
	assert.Equal(t, 0, b.Stats().ConsecutiveFailures)

	// Two more failures must not open (the run restarted).
	require.Error(t, b.Execute(context.Background(), 0, fail))
	require.Error(t, b.Execute(context.Background(), 0, fail))
	assert.Equal(t, StateClosed, b.State())
}

func TestExecute_OpenRejectsWithoutInvoking(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1, RecoveryTimeout: time.Minute})
	require.Error(t, b.Execute(context.Background(), 0, fail))
	require.Equal(t, StateOpen, b.State())

	invoked := false
	err := b.Execute(context.Background(), 0, func(context.Context) error {
		invoked = true
		return nil
	})
	require.ErrorIs(t, err, ErrOpen)
	assert.False(t, invoked, "wrapped operation must not run while open")
	assert.Equal(t, int64(1), b.Stats().RejectedCalls)
	// Rejected call is not an admitted call.
	assert.Equal(t, int64(1), b.Stats().TotalCalls)
}

func TestExecute_RecoveryProbeAndClose(t *testing.T) {
	b, now := newTestBreaker(Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 2,
	})
	require.Error(t, b.Execute(context.Background(), 0, fail))
	require.Equal(t, StateOpen, b.State())

	// Exactly the recovery timeout elapsed: probe is admitted.
	*now = now.Add(time.Minute)
	require.NoError(t, b.Execute(context.Background(), 0, succeed))
	assert.Equal(t, StateHalfOpen, b.State())
	assert.Equal(t, 1, b.Stats().HalfOpenSuccesses)

	// Second consecutive success reaches the threshold and closes.
	require.NoError(t, b.Execute(context.Background(), 0, succeed))
	stats := b.Stats()
	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, 0, stats.ConsecutiveFailures)
	assert.Equal(t, 0, stats.HalfOpenSuccesses)
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 3,
	})
	require.Error(t, b.Execute(context.Background(), 0, fail))

	*now = now.Add(2 * time.Minute)
	require.NoError(t, b.Execute(context.Background(), 0, succeed))
	require.Equal(t, StateHalfOpen, b.State())

	require.Error(t, b.Execute(context.Background(), 0, fail))
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, 0, b.Stats().HalfOpenSuccesses)

	// Still inside the new recovery window: rejected again.
	err := b.Execute(context.Background(), 0, succeed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestExecute_TimeoutCountsAsFailure(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 5})

	err := b.Execute(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-time.After(500 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, b.Stats().ConsecutiveFailures)
}

func TestExecute_AbandonedCallResultDiscarded(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 5})

	release := make(chan struct{})
	err := b.Execute(context.Background(), 10*time.Millisecond, func(ctx context.Context) error {
		<-release // ignores cancellation on purpose
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, 1, b.Stats().ConsecutiveFailures)

	// Let the abandoned operation finish; its success must not be recorded.
	close(release)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, b.Stats().ConsecutiveFailures)
}

func TestReset_Idempotent(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 1})
	require.Error(t, b.Execute(context.Background(), 0, fail))
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	first := b.Stats()
	b.Reset()
	second := b.Stats()

	assert.Equal(t, "closed", first.State)
	assert.Equal(t, 0, first.ConsecutiveFailures)
	assert.Equal(t, int64(0), first.TotalCalls)
	assert.Equal(t, first, second, "reset must be idempotent")
}

func TestExecute_OnStateChangeCallback(t *testing.T) {
	changes := make(chan string, 4)
	b, now := newTestBreaker(Config{
		FailureThreshold: 1,
		RecoveryTimeout:  time.Second,
		SuccessThreshold: 1,
		OnStateChange: func(name string, from, to State) {
			changes <- fmt.Sprintf("%s:%s->%s", name, from, to)
		},
	})

	require.Error(t, b.Execute(context.Background(), 0, fail))
	assert.Equal(t, "test:closed->open", <-changes)

	*now = now.Add(time.Second)
	require.NoError(t, b.Execute(context.Background(), 0, succeed))
	assert.Equal(t, "test:open->half_open", <-changes)
	assert.Equal(t, "test:half_open->closed", <-changes)
}

func TestManager_GetReturnsSameInstance(t *testing.T) {
	m := NewManager(Config{FailureThreshold: 2})

	a := m.Get("profile")
	b := m.Get("profile")
	assert.Same(t, a, b)

	c := m.Get("reviewer")
	assert.NotSame(t, a, c)
}

func TestManager_AllStatsSorted(t *testing.T) {
	m := NewManager(Config{})
	m.Get("reviewer")
	m.Get("profile")
	m.Get("orchestrator")

	stats := m.AllStats()
	require.Len(t, stats, 3)
	assert.Equal(t, "orchestrator", stats[0].Name)
	assert.Equal(t, "profile", stats[1].Name)
	assert.Equal(t, "reviewer", stats[2].Name)
}

func TestManager_ResetAll(t *testing.T) {
	m := NewManager(Config{FailureThreshold: 1})
	require.Error(t, m.Get("a").Execute(context.Background(), 0, fail))
	require.Error(t, m.Get("b").Execute(context.Background(), 0, fail))

	m.ResetAll()
	for _, s := range m.AllStats() {
		assert.Equal(t, "closed", s.State)
	}

	assert.False(t, m.Reset("missing"))
	assert.True(t, m.Reset("a"))
}
