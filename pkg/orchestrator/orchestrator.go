// Package orchestrator implements the coordination agent: single-intent
// routing through the agent registry, free-text intent classification, and
// a fixed multi-step workflow catalog that threads state across specialists.
// The orchestrator is itself an Agent and runs under the same protection
// envelope as the specialists it dispatches to.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/learnloop/mentor/pkg/agent"
	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/routing"
)

// Orchestrator routes requests to specialists and executes workflows. It
// holds no cross-request state: everything a request needs travels in its
// Context and Payload.
type Orchestrator struct {
	agents    *agent.Registry
	router    *routing.Router
	workflows *Registry
	envelope  *agent.Envelope
	publisher EventPublisher
	logger    *slog.Logger
}

// New wires the orchestrator to the live agent registry, the intent router,
// and the enabled workflow set. Its own circuit breaker comes from the same
// manager that backs the specialists, keyed by the orchestrator agent type.
func New(agents *agent.Registry, router *routing.Router, workflows *Registry, breakers *breaker.Manager) *Orchestrator {
	o := &Orchestrator{
		agents:    agents,
		router:    router,
		workflows: workflows,
		logger:    slog.With("component", "orchestrator"),
	}
	o.envelope = agent.NewEnvelope(o, breakers.Get(string(models.AgentTypeOrchestrator)))
	return o
}

// Execute runs one request through the orchestrator's own protection
// envelope. This is the front door the API layer calls.
func (o *Orchestrator) Execute(ctx context.Context, cctx *models.Context, payload *models.Payload) *models.Result {
	return o.envelope.Execute(ctx, cctx, payload)
}

// Envelope returns the orchestrator's protection envelope.
func (o *Orchestrator) Envelope() *agent.Envelope { return o.envelope }

// Type implements agent.Agent.
func (o *Orchestrator) Type() models.AgentType { return models.AgentTypeOrchestrator }

// SupportedIntents implements agent.Agent: every specialist intent plus the
// workflow-control intents.
func (o *Orchestrator) SupportedIntents() []models.Intent {
	return append(models.AllIntents(), models.IntentExecuteWorkflow, models.IntentClassifyMessage)
}

// ValidatePayload implements agent.PayloadValidator. The orchestrator's
// request surface is wider than a specialist's: a workflow name or a
// free-text message is as valid an entry point as an intent.
func (o *Orchestrator) ValidatePayload(payload *models.Payload) error {
	if payload.Workflow == "" && payload.Intent == "" && payload.Message == "" {
		return fmt.Errorf("one of workflow, intent, or message is required")
	}
	return nil
}

// Process implements agent.Agent. Mode selection: an explicit workflow wins,
// then an explicit intent, then free-text classification.
//
// Routing misses (unknown workflow, unknown intent, unregistered agent) are
// Error results with a nil Go error: they say nothing about the
// orchestrator's own health and must not advance its breaker.
func (o *Orchestrator) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	logger := o.logger.With("correlation_id", cctx.CorrelationID)

	switch {
	case payload.Workflow != "":
		wf, ok := o.workflows.Get(payload.Workflow)
		if !ok {
			logger.Warn("Unknown workflow requested", "workflow", payload.Workflow)
			return models.ErrorResult(models.ErrCodeUnknownWorkflow,
				fmt.Sprintf("unknown workflow %q", payload.Workflow)), nil
		}
		return o.runWorkflow(ctx, logger, cctx, wf, payload), nil

	case payload.Intent != "":
		return o.dispatchIntent(ctx, logger, cctx, payload), nil

	case payload.Message != "":
		return o.classifyAndDispatch(ctx, logger, cctx, payload), nil

	default:
		return models.ErrorResult(models.ErrCodeValidation,
			"one of workflow, intent, or message is required"), nil
	}
}

// dispatchIntent resolves an explicit intent and invokes the owning agent's
// envelope. The static routing table is authoritative for enumerated
// intents; intents outside it fall back to the registry's derived index so
// operator-registered agents with custom intents stay reachable.
func (o *Orchestrator) dispatchIntent(ctx context.Context, logger *slog.Logger, cctx *models.Context, payload *models.Payload) *models.Result {
	switch payload.Intent {
	case models.IntentExecuteWorkflow:
		return models.ErrorResult(models.ErrCodeValidation, "execute_workflow requires a workflow name")
	case models.IntentClassifyMessage:
		return o.classifyOnly(payload)
	}

	if agentType, routed := routing.RouteIntent(payload.Intent); routed {
		env, err := o.agents.Envelope(agentType)
		if err != nil {
			logger.Warn("Intent routed to an unregistered agent",
				"intent", payload.Intent, "agent_type", agentType)
			return models.ErrorResult(models.ErrCodeAgentUnavailable,
				fmt.Sprintf("agent %s is not registered", agentType))
		}
		logger.Info("Dispatching intent", "intent", payload.Intent, "agent_type", agentType)
		return o.executeEnvelope(ctx, env, cctx, payload)
	}

	env, err := o.agents.EnvelopeForIntent(payload.Intent)
	if err != nil {
		logger.Warn("No agent for intent", "intent", payload.Intent)
		return models.ErrorResult(models.ErrCodeNoAgentForIntent,
			fmt.Sprintf("no agent can handle intent %q", payload.Intent))
	}
	logger.Info("Dispatching custom intent", "intent", payload.Intent, "agent_type", env.Agent().Type())
	return o.executeEnvelope(ctx, env, cctx, payload)
}

// classifyAndDispatch infers an intent from a free-text message. Below the
// confidence threshold the caller gets a clarification prompt instead of a
// wrong guess.
func (o *Orchestrator) classifyAndDispatch(ctx context.Context, logger *slog.Logger, cctx *models.Context, payload *models.Payload) *models.Result {
	c := o.router.Classify(payload.Message)
	if !c.Matched {
		logger.Info("Message below classification confidence", "confidence", c.Confidence)
		return models.SuccessResult(map[string]any{
			"needs_clarification": true,
			"confidence":          c.Confidence,
			"alternatives":        c.Alternatives,
		}).WithNextActions("clarify_request")
	}

	logger.Info("Message classified", "intent", c.Intent, "confidence", c.Confidence)
	routed := payload.Clone()
	routed.Intent = c.Intent
	routed.Message = ""

	result := o.dispatchIntent(ctx, logger, cctx, routed)
	return result.WithMetadata("classified_intent", string(c.Intent)).
		WithMetadata("classification_confidence", c.Confidence)
}

// classifyOnly serves the classify_message control intent: it reports the
// classification without dispatching.
func (o *Orchestrator) classifyOnly(payload *models.Payload) *models.Result {
	if payload.Message == "" {
		return models.ErrorResult(models.ErrCodeValidation, "classify_message requires a message")
	}
	c := o.router.Classify(payload.Message)
	return models.SuccessResult(map[string]any{
		"matched":      c.Matched,
		"intent":       string(c.Intent),
		"target_agent": string(c.TargetAgent),
		"confidence":   c.Confidence,
		"alternatives": c.Alternatives,
	})
}

// runWorkflow executes the steps strictly in declaration order, threading
// prior step outputs into later payloads. Step failures follow the step's
// policy; an abort never starts a subsequent step.
func (o *Orchestrator) runWorkflow(ctx context.Context, logger *slog.Logger, cctx *models.Context, wf *Workflow, incoming *models.Payload) *models.Result {
	logger = logger.With("workflow", wf.Name)
	logger.Info("Workflow started", "steps", len(wf.Steps))

	prior := make([]StepOutput, 0, len(wf.Steps))
	var lastActions []string

	for i, step := range wf.Steps {
		if step.Condition != nil && !step.Condition(cctx, prior) {
			logger.Info("Workflow step skipped", "step", i, "intent", step.Intent)
			o.emitWorkflowStep(ctx, cctx, wf, i, step.Intent, step.AgentType, events.WorkflowStepSkipped, "")
			continue
		}

		payload := stepPayload(step, cctx, incoming, prior)
		o.emitWorkflowStep(ctx, cctx, wf, i, step.Intent, step.AgentType, events.WorkflowStepStarted, "")
		result := o.invokeStep(ctx, cctx, step, payload)
		out := StepOutput{Step: i, Intent: step.Intent, Data: result.Data}

		if result.IsError() {
			o.emitWorkflowStep(ctx, cctx, wf, i, step.Intent, step.AgentType, events.WorkflowStepFailed, result.Error)
			switch step.failurePolicy() {
			case FailContinue:
				logger.Warn("Workflow step failed, continuing",
					"step", i, "intent", step.Intent, "error_code", result.ErrorCode)

			case FailFallback:
				logger.Warn("Workflow step failed, running fallback intent",
					"step", i, "intent", step.Intent,
					"fallback_intent", step.FallbackIntent, "error_code", result.ErrorCode)
				fb := payload.Clone()
				fb.Intent = step.FallbackIntent
				fbAgent := fallbackAgentType(step.FallbackIntent)
				o.emitWorkflowStep(ctx, cctx, wf, i, step.FallbackIntent, fbAgent, events.WorkflowStepStarted, "")
				result = o.dispatchIntent(ctx, logger, cctx, fb)
				if result.IsError() {
					o.emitWorkflowStep(ctx, cctx, wf, i, step.FallbackIntent, fbAgent, events.WorkflowStepFailed, result.Error)
				} else {
					o.emitWorkflowStep(ctx, cctx, wf, i, step.FallbackIntent, fbAgent, events.WorkflowStepCompleted, "")
				}
				out.Intent = step.FallbackIntent
				out.Data = result.Data

			default: // FailAbort
				logger.Warn("Workflow aborted",
					"step", i, "intent", step.Intent, "error_code", result.ErrorCode)
				prior = append(prior, out)
				return models.ErrorResult(result.ErrorCode,
					fmt.Sprintf("workflow %s failed at step %d (%s): %s", wf.Name, i, step.Intent, result.Error)).
					WithMetadata("workflow_step", i).
					WithMetadata("partial_outputs", prior)
			}
		} else {
			o.emitWorkflowStep(ctx, cctx, wf, i, step.Intent, step.AgentType, events.WorkflowStepCompleted, "")
		}

		prior = append(prior, out)
		lastActions = result.NextActions
	}

	logger.Info("Workflow completed", "steps_completed", len(prior))
	return models.SuccessResult(map[string]any{
		"workflow_name":   wf.Name,
		"steps_completed": len(prior),
		"outputs":         prior,
	}).WithNextActions(lastActions...)
}

// invokeStep resolves the step's agent by type and executes under its
// envelope. A missing agent is a step failure, handled by the step's policy.
func (o *Orchestrator) invokeStep(ctx context.Context, cctx *models.Context, step Step, payload *models.Payload) *models.Result {
	env, err := o.agents.Envelope(step.AgentType)
	if err != nil {
		return models.ErrorResult(models.ErrCodeAgentUnavailable,
			fmt.Sprintf("agent %s is not registered", step.AgentType))
	}
	return o.executeEnvelope(ctx, env, cctx, payload)
}

// stepPayload builds the payload one step runs with: the transform's output
// when present, otherwise the incoming payload with the step intent
// overridden. Step timeout semantics are step.Timeout or the target
// envelope's default, never the incoming request's.
func stepPayload(step Step, cctx *models.Context, incoming *models.Payload, prior []StepOutput) *models.Payload {
	var p *models.Payload
	if step.Transform != nil {
		p = step.Transform(cctx, prior)
		if p == nil {
			p = &models.Payload{}
		}
	} else {
		p = incoming.Clone()
	}
	p.Intent = step.Intent
	p.Workflow = ""
	p.Message = ""
	p.Timeout = step.Timeout
	return p
}

// Health describes the orchestrator and everything it dispatches to.
type Health struct {
	RegisteredAgents   []agent.AgentHealth `json:"registered_agents"`
	AvailableWorkflows []string            `json:"available_workflows"`
	Breaker            breaker.Stats       `json:"breaker"`
	Router             routing.RouterStats `json:"router"`
}

// Health returns a point-in-time snapshot: live agents with their breaker
// stats, the enabled workflows, the orchestrator's own breaker, and router
// state.
func (o *Orchestrator) Health() Health {
	return Health{
		RegisteredAgents:   o.agents.Health(),
		AvailableWorkflows: o.workflows.Names(),
		Breaker:            o.envelope.Breaker().Stats(),
		Router:             o.router.Stats(),
	}
}
