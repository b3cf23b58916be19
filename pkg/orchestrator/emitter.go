package orchestrator

import (
	"context"
	"time"

	"github.com/learnloop/mentor/pkg/agent"
	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/routing"
)

// EventPublisher receives the coordination events observed during dispatch:
// workflow step transitions, breaker state changes, fallback use, and
// adaptation triggers. Implemented by events.EventPublisher. Emission is
// best-effort observability: publish failures are logged and never affect
// the dispatch result.
type EventPublisher interface {
	PublishWorkflowStep(ctx context.Context, sessionID string, payload events.WorkflowStepPayload) error
	PublishBreakerState(ctx context.Context, sessionID string, payload events.BreakerStatePayload) error
	PublishFallbackUsed(ctx context.Context, sessionID string, payload events.FallbackUsedPayload) error
	PublishTriggerDetected(ctx context.Context, sessionID string, payload events.TriggerDetectedPayload) error
}

// SetEventPublisher wires coordination-event streaming. Call during startup
// before the orchestrator serves traffic; a nil publisher disables emission.
func (o *Orchestrator) SetEventPublisher(pub EventPublisher) {
	o.publisher = pub
}

// executeEnvelope runs one specialist dispatch and emits what the call made
// observable: a breaker transition, a degraded path, detected adaptation
// triggers. Results passing through the orchestrator's own envelope are not
// re-inspected, so each dispatch is reported once.
func (o *Orchestrator) executeEnvelope(ctx context.Context, env *agent.Envelope, cctx *models.Context, payload *models.Payload) *models.Result {
	if o.publisher == nil {
		return env.Execute(ctx, cctx, payload)
	}

	before := env.Breaker().State()
	result := env.Execute(ctx, cctx, payload)

	if after := env.Breaker().State(); after != before {
		o.emitBreakerState(ctx, cctx, env.Agent().Type(), after, env.Breaker().Stats().ConsecutiveFailures)
	}
	if reason, ok := result.Metadata["fallback_reason"].(string); ok && reason != "" {
		o.emitFallbackUsed(ctx, cctx, env.Agent().Type(), payload.Intent, reason)
	}
	if triggers, ok := result.Data["triggers"].([]models.AdaptationTrigger); ok {
		o.emitTriggersDetected(ctx, cctx, triggers)
	}
	return result
}

func (o *Orchestrator) emitBreakerState(ctx context.Context, cctx *models.Context, agentType models.AgentType, state breaker.State, failures int) {
	err := o.publisher.PublishBreakerState(ctx, cctx.SessionID, events.BreakerStatePayload{
		Type:      events.EventTypeBreakerState,
		SessionID: cctx.SessionID,
		AgentType: string(agentType),
		State:     state.String(),
		Failures:  failures,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		o.logger.Warn("Failed to publish breaker state event",
			"agent_type", agentType, "state", state, "error", err)
	}
}

func (o *Orchestrator) emitFallbackUsed(ctx context.Context, cctx *models.Context, agentType models.AgentType, intent models.Intent, reason string) {
	err := o.publisher.PublishFallbackUsed(ctx, cctx.SessionID, events.FallbackUsedPayload{
		Type:      events.EventTypeFallbackUsed,
		SessionID: cctx.SessionID,
		AgentType: string(agentType),
		Intent:    string(intent),
		Reason:    reason,
		Timestamp: time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		o.logger.Warn("Failed to publish fallback event",
			"agent_type", agentType, "intent", intent, "error", err)
	}
}

func (o *Orchestrator) emitTriggersDetected(ctx context.Context, cctx *models.Context, triggers []models.AdaptationTrigger) {
	for _, trig := range triggers {
		taskID, _ := trig.Details["task_id"].(string)
		err := o.publisher.PublishTriggerDetected(ctx, cctx.SessionID, events.TriggerDetectedPayload{
			Type:        events.EventTypeTriggerDetected,
			SessionID:   cctx.SessionID,
			UserID:      cctx.UserID,
			TriggerType: string(trig.Type),
			Severity:    string(trig.Severity),
			Action:      trig.RecommendedAction,
			Confidence:  trig.Confidence,
			TaskID:      taskID,
			Timestamp:   time.Now().Format(time.RFC3339Nano),
		})
		if err != nil {
			o.logger.Warn("Failed to publish trigger event",
				"trigger_type", trig.Type, "error", err)
		}
	}
}

// emitWorkflowStep publishes one workflow.step transition. The step index is
// reported 1-based; a fallback dispatch reports under the same index with
// the fallback intent.
func (o *Orchestrator) emitWorkflowStep(ctx context.Context, cctx *models.Context, wf *Workflow, index int, intent models.Intent, agentType models.AgentType, status, errMsg string) {
	if o.publisher == nil {
		return
	}
	err := o.publisher.PublishWorkflowStep(ctx, cctx.SessionID, events.WorkflowStepPayload{
		Type:       events.EventTypeWorkflowStep,
		SessionID:  cctx.SessionID,
		Workflow:   wf.Name,
		StepIndex:  index + 1,
		TotalSteps: len(wf.Steps),
		Intent:     string(intent),
		AgentType:  string(agentType),
		Status:     status,
		Error:      errMsg,
		Timestamp:  time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		o.logger.Warn("Failed to publish workflow step event",
			"workflow", wf.Name, "step", index, "status", status, "error", err)
	}
}

// fallbackAgentType resolves the agent a fallback intent routes to, for
// event reporting. Unrouted custom intents report an empty agent type.
func fallbackAgentType(intent models.Intent) models.AgentType {
	if agentType, ok := routing.RouteIntent(intent); ok {
		return agentType
	}
	return ""
}
