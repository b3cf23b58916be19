package orchestrator

import (
	"fmt"
	"time"

	"github.com/learnloop/mentor/pkg/models"
)

// FailurePolicy decides what the engine does when a step returns an Error
// result. The zero value aborts.
type FailurePolicy string

const (
	FailAbort    FailurePolicy = "abort"
	FailContinue FailurePolicy = "continue"
	FailFallback FailurePolicy = "fallback"
)

// TransformFunc builds a step's payload from the request context and the
// outputs of earlier steps. Transforms must be pure: no I/O, no mutation of
// prior outputs.
type TransformFunc func(cctx *models.Context, prior []StepOutput) *models.Payload

// ConditionFunc gates a step. Returning false skips the step entirely; it is
// neither invoked nor recorded.
type ConditionFunc func(cctx *models.Context, prior []StepOutput) bool

// Step binds one workflow position to an agent and intent. Without a
// Transform the step inherits the workflow's incoming payload with the
// intent overridden; without a Timeout the target envelope's default
// applies.
type Step struct {
	AgentType      models.AgentType
	Intent         models.Intent
	Transform      TransformFunc
	Condition      ConditionFunc
	OnFailure      FailurePolicy
	FallbackIntent models.Intent
	Timeout        time.Duration
}

// failurePolicy returns the effective policy; the zero value aborts.
func (s Step) failurePolicy() FailurePolicy {
	if s.OnFailure == "" {
		return FailAbort
	}
	return s.OnFailure
}

// Workflow is an immutable, named sequence of steps executed strictly in
// declaration order.
type Workflow struct {
	Name        string
	Description string
	Steps       []Step
}

// Validate checks structural soundness of a definition.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if len(w.Steps) == 0 {
		return fmt.Errorf("workflow %s has no steps", w.Name)
	}
	for i, step := range w.Steps {
		if step.AgentType == "" {
			return fmt.Errorf("workflow %s step %d: agent type is required", w.Name, i)
		}
		if step.Intent == "" {
			return fmt.Errorf("workflow %s step %d: intent is required", w.Name, i)
		}
		switch step.OnFailure {
		case "", FailAbort, FailContinue:
		case FailFallback:
			if step.FallbackIntent == "" {
				return fmt.Errorf("workflow %s step %d: fallback policy requires a fallback intent", w.Name, i)
			}
		default:
			return fmt.Errorf("workflow %s step %d: unknown failure policy %q", w.Name, i, step.OnFailure)
		}
	}
	return nil
}

// StepOutput is one executed step's recorded result data, in execution
// order. For a step rescued by a Fallback policy, Intent is the fallback
// intent that actually produced the data.
type StepOutput struct {
	Step   int            `json:"step"`
	Intent models.Intent  `json:"intent"`
	Data   map[string]any `json:"data,omitempty"`
}

// stepValue returns the value under key from the most recent output of the
// given step intent, or nil.
func stepValue(prior []StepOutput, intent models.Intent, key string) any {
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].Intent == intent {
			return prior[i].Data[key]
		}
	}
	return nil
}

// carry copies the named keys from the most recent output of the given step
// intent into a fresh data map. Missing outputs or keys are skipped; the
// receiving specialist validates its own inputs.
func carry(prior []StepOutput, intent models.Intent, keys ...string) map[string]any {
	data := make(map[string]any)
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].Intent != intent {
			continue
		}
		for _, key := range keys {
			if v, ok := prior[i].Data[key]; ok {
				data[key] = v
			}
		}
		break
	}
	return data
}
