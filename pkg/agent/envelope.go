package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/models"
)

// Fallback reasons recorded in result metadata when a degraded path served
// the response.
const (
	FallbackReasonTimeout     = "timeout"
	FallbackReasonError       = "error"
	FallbackReasonBreakerOpen = "breaker_open"
)

// Envelope wraps one agent with the full protection chain:
// validate → circuit breaker → timeout → fallback. Execute never returns a
// Go error; every failure mode is converted into an Error Result so callers
// have exactly one shape to handle.
//
// Validation failures are rejected before the breaker is consulted and do
// not advance its counters; a malformed request says nothing about the
// agent's health.
type Envelope struct {
	agent     Agent
	breaker   *breaker.CircuitBreaker
	supported map[models.Intent]struct{}
	logger    *slog.Logger
}

// NewEnvelope wraps agent with the given breaker. The breaker is owned by
// the caller (normally the registry's manager) so its state can outlive the
// agent registration.
func NewEnvelope(a Agent, cb *breaker.CircuitBreaker) *Envelope {
	supported := make(map[models.Intent]struct{}, len(a.SupportedIntents()))
	for _, intent := range a.SupportedIntents() {
		supported[intent] = struct{}{}
	}
	return &Envelope{
		agent:     a,
		breaker:   cb,
		supported: supported,
		logger:    slog.With("component", "envelope", "agent_type", a.Type()),
	}
}

// Agent returns the wrapped agent.
func (e *Envelope) Agent() Agent { return e.agent }

// Breaker returns the protecting circuit breaker.
func (e *Envelope) Breaker() *breaker.CircuitBreaker { return e.breaker }

// Execute runs one protected call. The effective timeout is
// payload.Timeout when positive, otherwise the breaker's default.
func (e *Envelope) Execute(ctx context.Context, cctx *models.Context, payload *models.Payload) *models.Result {
	start := time.Now()

	if result := e.validate(cctx, payload); result != nil {
		return e.annotate(result, payload, start, "")
	}

	logger := e.logger.With("correlation_id", cctx.CorrelationID, "intent", payload.Intent)

	timeout := payload.Timeout
	if timeout <= 0 {
		timeout = e.breaker.DefaultTimeout()
	}

	var result *models.Result
	err := e.breaker.Execute(ctx, timeout, func(opCtx context.Context) error {
		r, procErr := e.agent.Process(opCtx, cctx, payload)
		if procErr != nil {
			return procErr
		}
		if r == nil {
			return fmt.Errorf("agent %s returned nil result for intent %s", e.agent.Type(), payload.Intent)
		}
		result = r
		return nil
	})

	switch {
	case err == nil:
		return e.annotate(result, payload, start, "")

	case errors.Is(err, breaker.ErrOpen):
		logger.Warn("Call rejected, circuit open")
		if fb, ok := e.agent.(ErrorFallback); ok {
			if r := fb.FallbackOnError(cctx, payload, err); r != nil {
				return e.annotate(r, payload, start, FallbackReasonBreakerOpen)
			}
		}
		return e.annotate(models.ErrorResult(models.ErrCodeCircuitOpen,
			fmt.Sprintf("agent %s is temporarily unavailable (circuit open)", e.agent.Type())),
			payload, start, "")

	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Call timed out", "timeout", timeout)
		if fb, ok := e.agent.(TimeoutFallback); ok {
			if r := fb.FallbackOnTimeout(cctx, payload); r != nil {
				return e.annotate(r, payload, start, FallbackReasonTimeout)
			}
		}
		return e.annotate(models.ErrorResult(models.ErrCodeTimeout,
			fmt.Sprintf("agent %s did not answer within %s", e.agent.Type(), timeout)),
			payload, start, "")

	default:
		logger.Error("Call failed", "error", err)
		if fb, ok := e.agent.(ErrorFallback); ok {
			if r := fb.FallbackOnError(cctx, payload, err); r != nil {
				return e.annotate(r, payload, start, FallbackReasonError)
			}
		}
		return e.annotate(models.ErrorResult(models.CodeOf(err), err.Error()), payload, start, "")
	}
}

// validate checks request shape before the breaker is consulted.
// Returns nil when the request is well-formed.
func (e *Envelope) validate(cctx *models.Context, payload *models.Payload) *models.Result {
	if cctx == nil {
		return models.ErrorResult(models.ErrCodeValidation, "context is required")
	}
	if err := cctx.Validate(); err != nil {
		return models.ErrorResult(models.ErrCodeValidation, err.Error())
	}
	if payload == nil {
		return models.ErrorResult(models.ErrCodeValidation, "payload is required")
	}
	if v, ok := e.agent.(PayloadValidator); ok {
		if err := v.ValidatePayload(payload); err != nil {
			return models.ErrorResult(models.ErrCodeValidation, err.Error())
		}
		return nil
	}
	if payload.Intent == "" {
		return models.ErrorResult(models.ErrCodeValidation, "intent is required")
	}
	if _, ok := e.supported[payload.Intent]; !ok {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("agent %s does not support intent %s", e.agent.Type(), payload.Intent))
	}
	return nil
}

// annotate stamps the uniform call metadata onto the result. A non-empty
// fallbackReason marks the result as served by a degraded path.
func (e *Envelope) annotate(result *models.Result, payload *models.Payload, start time.Time, fallbackReason string) *models.Result {
	result.WithMetadata("agent_type", string(e.agent.Type()))
	if payload != nil && payload.Intent != "" {
		result.WithMetadata("intent", string(payload.Intent))
	}
	result.WithMetadata("duration_ms", time.Since(start).Milliseconds())
	if fallbackReason != "" {
		result.WithMetadata("fallback", true)
		result.WithMetadata("fallback_reason", fallbackReason)
	}
	return result
}
