// Package agent provides the specialist agent contract, the protection
// envelope every call passes through, and the registry that tracks which
// agents are live. Specialists implement Agent; callers go through the
// registry's envelopes and never invoke Process directly.
package agent

import (
	"context"
	"errors"

	"github.com/learnloop/mentor/pkg/models"
)

var (
	// ErrAgentNotRegistered is returned when a lookup names an agent type
	// with no live registration.
	ErrAgentNotRegistered = errors.New("agent not registered")

	// ErrNoAgentForIntent is returned when no registered agent supports the
	// requested intent.
	ErrNoAgentForIntent = errors.New("no agent registered for intent")
)

// Agent is one specialist in the coaching runtime.
// Implementations must be safe for concurrent Process calls.
type Agent interface {
	// Type returns the agent's registry identity.
	Type() models.AgentType

	// SupportedIntents returns the intents this agent accepts. Checked by
	// the envelope before Process is ever called.
	SupportedIntents() []models.Intent

	// Process handles one request.
	// ctx carries the per-call timeout and cancellation signal; anything
	// that blocks must honor it.
	//
	// Returns (nil, error) for failures that should count against the
	// agent's circuit breaker. Returns (*Result, nil) otherwise: an
	// unsuccessful Result with a nil error is a domain "no" (the work
	// finished) and leaves the breaker untouched.
	Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error)
}

// TimeoutFallback is implemented by agents that can produce a degraded
// answer when their Process call times out. The fallback runs outside the
// breaker and must be fast and non-blocking. Returning nil declines.
type TimeoutFallback interface {
	FallbackOnTimeout(cctx *models.Context, payload *models.Payload) *models.Result
}

// ErrorFallback is implemented by agents that can produce a degraded answer
// when Process fails or the circuit is open. Same constraints as
// TimeoutFallback.
type ErrorFallback interface {
	FallbackOnError(cctx *models.Context, payload *models.Payload, err error) *models.Result
}

// PayloadValidator replaces the envelope's default payload checks (intent
// present and supported) for agents with a wider request surface. The
// orchestrator implements it: a request may name a workflow or carry a
// free-text message instead of an intent. Context validation is never
// delegated.
type PayloadValidator interface {
	ValidatePayload(payload *models.Payload) error
}
