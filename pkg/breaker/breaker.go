// Package breaker implements the per-agent circuit breaker: a three-state
// failure isolator with time-based recovery. The guard is never held while
// the wrapped operation runs, so a slow call does not serialize other
// callers.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without invoking the
// wrapped operation.
var ErrOpen = errors.New("circuit breaker is open")

// State is the breaker's position in the state machine.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config holds the immutable breaker tuning.
type Config struct {
	// FailureThreshold is the consecutive-failure count in Closed that opens
	// the circuit.
	FailureThreshold int
	// RecoveryTimeout is the minimum dwell time in Open before a probe call
	// is admitted.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the consecutive-success count in HalfOpen required
	// to close.
	SuccessThreshold int
	// DefaultTimeout is the per-call wall-clock timeout applied when the
	// caller does not supply one.
	DefaultTimeout time.Duration
	// OnStateChange, when set, is invoked (outside the guard) after every
	// state transition.
	OnStateChange func(name string, from, to State)
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		RecoveryTimeout:  60 * time.Second,
		SuccessThreshold: 3,
		DefaultTimeout:   30 * time.Second,
	}
}

// withDefaults fills zero-valued fields so a partially specified config
// behaves sensibly.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.RecoveryTimeout <= 0 {
		c.RecoveryTimeout = d.RecoveryTimeout
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = d.DefaultTimeout
	}
	return c
}

// CircuitBreaker guards one agent. All counter and state mutation happens
// under mu; the wrapped operation runs with mu released.
type CircuitBreaker struct {
	name string
	cfg  Config

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	halfOpenSuccesses   int
	totalCalls          int64
	rejectedCalls       int64
	stateChanges        int64
	lastFailureAt       time.Time
	lastSuccessAt       time.Time

	// now is stubbed in tests.
	now func() time.Time
}

// Stats is a point-in-time snapshot of breaker state.
type Stats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	HalfOpenSuccesses   int       `json:"half_open_successes"`
	TotalCalls          int64     `json:"total_calls"`
	RejectedCalls       int64     `json:"rejected_calls"`
	StateChanges        int64     `json:"state_changes"`
	LastFailureAt       time.Time `json:"last_failure_at,omitzero"`
	LastSuccessAt       time.Time `json:"last_success_at,omitzero"`
	FailureThreshold    int       `json:"failure_threshold"`
	RecoveryTimeout     string    `json:"recovery_timeout"`
	SuccessThreshold    int       `json:"success_threshold"`
	DefaultTimeout      string    `json:"default_timeout"`
}

// New creates a breaker in Closed with the given config (zero fields take
// defaults).
func New(name string, cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		name:  name,
		cfg:   cfg.withDefaults(),
		state: StateClosed,
		now:   time.Now,
	}
}

// Execute runs op under the breaker with the given timeout (0 uses the
// breaker default). The returned error is ErrOpen when the call was rejected,
// a context.DeadlineExceeded-wrapping error on timeout, or op's own error.
//
// A timed-out op is signalled through its context and abandoned; its eventual
// result is discarded and never recorded against the breaker.
func (b *CircuitBreaker) Execute(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	if !b.admit() {
		return fmt.Errorf("%s: %w", b.name, ErrOpen)
	}

	if timeout <= 0 {
		timeout = b.cfg.DefaultTimeout
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Buffered so the goroutine of an abandoned call can complete and be
	// collected.
	done := make(chan error, 1)
	go func() {
		done <- op(opCtx)
	}()

	var err error
	select {
	case err = <-done:
	case <-opCtx.Done():
		err = fmt.Errorf("%s: call timed out after %s: %w", b.name, timeout, opCtx.Err())
	}

	if err != nil {
		b.recordFailure()
		return err
	}
	b.recordSuccess()
	return nil
}

// admit evaluates the admission rules under the guard and performs the
// Open → HalfOpen transition when the recovery timeout has elapsed.
func (b *CircuitBreaker) admit() bool {
	b.mu.Lock()
	var notify func()

	if b.state == StateOpen {
		if b.now().Sub(b.lastFailureAt) < b.cfg.RecoveryTimeout {
			b.rejectedCalls++
			b.mu.Unlock()
			return false
		}
		notify = b.transition(StateHalfOpen)
	}

	b.totalCalls++
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
	return true
}

func (b *CircuitBreaker) recordSuccess() {
	b.mu.Lock()
	var notify func()
	b.lastSuccessAt = b.now()

	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0
	case StateHalfOpen:
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
			notify = b.transition(StateClosed)
		}
	}
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
}

func (b *CircuitBreaker) recordFailure() {
	b.mu.Lock()
	var notify func()
	b.lastFailureAt = b.now()

	switch b.state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			notify = b.transition(StateOpen)
		}
	case StateHalfOpen:
		notify = b.transition(StateOpen)
	}
	b.mu.Unlock()

	if notify != nil {
		notify()
	}
}

// transition moves to the target state and applies entry side effects.
// Caller holds mu. The returned func delivers the OnStateChange callback and
// must be invoked after the guard is released, so callbacks observe
// transitions in order and cannot deadlock against the guard.
func (b *CircuitBreaker) transition(to State) func() {
	from := b.state
	if from == to {
		return nil
	}
	b.state = to
	b.stateChanges++

	switch to {
	case StateClosed:
		b.consecutiveFailures = 0
		b.halfOpenSuccesses = 0
	case StateHalfOpen:
		b.halfOpenSuccesses = 0
	}

	slog.Info("Circuit breaker state changed",
		"breaker", b.name,
		"from", from.String(),
		"to", to.String(),
		"consecutive_failures", b.consecutiveFailures,
	)

	if b.cfg.OnStateChange == nil {
		return nil
	}
	return func() { b.cfg.OnStateChange(b.name, from, to) }
}

// State returns the current state.
func (b *CircuitBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// DefaultTimeout returns the per-call timeout applied when a payload does not
// carry its own.
func (b *CircuitBreaker) DefaultTimeout() time.Duration {
	return b.cfg.DefaultTimeout
}

// Stats returns a snapshot of the breaker's observable state.
func (b *CircuitBreaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Name:                b.name,
		State:               b.state.String(),
		ConsecutiveFailures: b.consecutiveFailures,
		HalfOpenSuccesses:   b.halfOpenSuccesses,
		TotalCalls:          b.totalCalls,
		RejectedCalls:       b.rejectedCalls,
		StateChanges:        b.stateChanges,
		LastFailureAt:       b.lastFailureAt,
		LastSuccessAt:       b.lastSuccessAt,
		FailureThreshold:    b.cfg.FailureThreshold,
		RecoveryTimeout:     b.cfg.RecoveryTimeout.String(),
		SuccessThreshold:    b.cfg.SuccessThreshold,
		DefaultTimeout:      b.cfg.DefaultTimeout.String(),
	}
}

// Reset returns the breaker to Closed with zeroed counters. Idempotent.
func (b *CircuitBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateClosed {
		// Direct assignment rather than transition(): reset is an operator
		// action, not a state-machine event, and must not fire callbacks.
		b.state = StateClosed
	}
	b.consecutiveFailures = 0
	b.halfOpenSuccesses = 0
	b.totalCalls = 0
	b.rejectedCalls = 0
	b.stateChanges = 0
	b.lastFailureAt = time.Time{}
	b.lastSuccessAt = time.Time{}

	slog.Debug("Circuit breaker reset", "breaker", b.name)
}
