package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/agent"
	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/events"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/routing"
)

// capturingPublisher records every emission for inspection.
type capturingPublisher struct {
	mu        sync.Mutex
	steps     []events.WorkflowStepPayload
	breakers  []events.BreakerStatePayload
	fallbacks []events.FallbackUsedPayload
	triggers  []events.TriggerDetectedPayload
	err       error
}

func (p *capturingPublisher) PublishWorkflowStep(_ context.Context, _ string, payload events.WorkflowStepPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.steps = append(p.steps, payload)
	return p.err
}

func (p *capturingPublisher) PublishBreakerState(_ context.Context, _ string, payload events.BreakerStatePayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.breakers = append(p.breakers, payload)
	return p.err
}

func (p *capturingPublisher) PublishFallbackUsed(_ context.Context, _ string, payload events.FallbackUsedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fallbacks = append(p.fallbacks, payload)
	return p.err
}

func (p *capturingPublisher) PublishTriggerDetected(_ context.Context, _ string, payload events.TriggerDetectedPayload) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.triggers = append(p.triggers, payload)
	return p.err
}

type fallbackSpecialist struct {
	stubSpecialist
	onError func(cctx *models.Context, payload *models.Payload, err error) *models.Result
}

func (s *fallbackSpecialist) FallbackOnError(cctx *models.Context, payload *models.Payload, err error) *models.Result {
	if s.onError == nil {
		return nil
	}
	return s.onError(cctx, payload, err)
}

// stepTransition is the observable identity of one workflow.step event.
type stepTransition struct {
	Index  int
	Intent string
	Status string
}

func transitions(steps []events.WorkflowStepPayload) []stepTransition {
	out := make([]stepTransition, 0, len(steps))
	for _, s := range steps {
		out = append(out, stepTransition{s.StepIndex, s.Intent, s.Status})
	}
	return out
}

func TestEmission_WorkflowStepEvents(t *testing.T) {
	wf := &Workflow{
		Name: "guarded",
		Steps: []Step{
			{AgentType: models.AgentTypeProfile, Intent: models.IntentGetProfile},
			{
				AgentType: models.AgentTypeProfile,
				Intent:    models.IntentUpdateGoals,
				Condition: func(*models.Context, []StepOutput) bool { return false },
			},
			{AgentType: models.AgentTypeProfile, Intent: models.IntentSetConstraints},
		},
	}
	f := newFixtureWith(t, []*Workflow{wf}, nil)
	pub := &capturingPublisher{}
	f.orch.SetEventPublisher(pub)
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		succeedWith(map[string]any{"ok": true}))

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Workflow: "guarded"})
	require.True(t, result.Success, result.Error)

	assert.Equal(t, []stepTransition{
		{1, "get_profile", events.WorkflowStepStarted},
		{1, "get_profile", events.WorkflowStepCompleted},
		{2, "update_goals", events.WorkflowStepSkipped},
		{3, "set_constraints", events.WorkflowStepStarted},
		{3, "set_constraints", events.WorkflowStepCompleted},
	}, transitions(pub.steps))

	for _, s := range pub.steps {
		assert.Equal(t, events.EventTypeWorkflowStep, s.Type)
		assert.Equal(t, "sess-1", s.SessionID)
		assert.Equal(t, "guarded", s.Workflow)
		assert.Equal(t, 3, s.TotalSteps)
		assert.Equal(t, string(models.AgentTypeProfile), s.AgentType)
		assert.NotEmpty(t, s.Timestamp)
	}
}

func TestEmission_AbortedStepReportsFailure(t *testing.T) {
	wf := &Workflow{
		Name: "strict",
		Steps: []Step{
			{AgentType: models.AgentTypeProfile, Intent: models.IntentGetProfile},
			{AgentType: models.AgentTypeProfile, Intent: models.IntentUpdateGoals},
		},
	}
	f := newFixtureWith(t, []*Workflow{wf}, nil)
	pub := &capturingPublisher{}
	f.orch.SetEventPublisher(pub)
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			if p.Intent == models.IntentUpdateGoals {
				return nil, errors.New("profile store down")
			}
			return models.SuccessResult(nil), nil
		})

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Workflow: "strict"})
	require.True(t, result.IsError())

	assert.Equal(t, []stepTransition{
		{1, "get_profile", events.WorkflowStepStarted},
		{1, "get_profile", events.WorkflowStepCompleted},
		{2, "update_goals", events.WorkflowStepStarted},
		{2, "update_goals", events.WorkflowStepFailed},
	}, transitions(pub.steps))
	assert.Contains(t, pub.steps[3].Error, "profile store down")
}

func TestEmission_FallbackStepReportsUnderSameIndex(t *testing.T) {
	wf := &Workflow{
		Name: "rescued",
		Steps: []Step{
			{
				AgentType:      models.AgentTypeExerciseGenerator,
				Intent:         models.IntentGenerateExercise,
				OnFailure:      FailFallback,
				FallbackIntent: models.IntentCreateRecapExercise,
			},
		},
	}
	f := newFixtureWith(t, []*Workflow{wf}, nil)
	pub := &capturingPublisher{}
	f.orch.SetEventPublisher(pub)
	f.register(t, models.AgentTypeExerciseGenerator, routing.IntentsFor(models.AgentTypeExerciseGenerator),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			if p.Intent == models.IntentGenerateExercise {
				return nil, errors.New("generator offline")
			}
			return models.SuccessResult(map[string]any{"exercise_id": "recap-1"}), nil
		})

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Workflow: "rescued"})
	require.True(t, result.Success, result.Error)

	assert.Equal(t, []stepTransition{
		{1, "generate_exercise", events.WorkflowStepStarted},
		{1, "generate_exercise", events.WorkflowStepFailed},
		{1, "create_recap_exercise", events.WorkflowStepStarted},
		{1, "create_recap_exercise", events.WorkflowStepCompleted},
	}, transitions(pub.steps))
	assert.Equal(t, string(models.AgentTypeExerciseGenerator), pub.steps[2].AgentType)
}

func TestEmission_FallbackUsedFromEnvelope(t *testing.T) {
	f := newFixture(t)
	pub := &capturingPublisher{}
	f.orch.SetEventPublisher(pub)
	require.NoError(t, f.agents.Register(&fallbackSpecialist{
		stubSpecialist: stubSpecialist{
			agentType: models.AgentTypeExerciseGenerator,
			intents:   routing.IntentsFor(models.AgentTypeExerciseGenerator),
			process: func(context.Context, *models.Context, *models.Payload) (*models.Result, error) {
				return nil, errors.New("llm unavailable")
			},
		},
		onError: func(*models.Context, *models.Payload, error) *models.Result {
			return models.SuccessResult(map[string]any{"source": "template"})
		},
	}))

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentGenerateExercise})

	require.True(t, result.Success, result.Error)
	require.Len(t, pub.fallbacks, 1, "one dispatch must emit exactly one fallback event")
	ev := pub.fallbacks[0]
	assert.Equal(t, events.EventTypeFallbackUsed, ev.Type)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, string(models.AgentTypeExerciseGenerator), ev.AgentType)
	assert.Equal(t, "generate_exercise", ev.Intent)
	assert.Equal(t, agent.FallbackReasonError, ev.Reason)
}

func TestEmission_BreakerStateEvents(t *testing.T) {
	breakers := breaker.NewManager(breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})
	agents := agent.NewRegistry(breakers)
	router, err := routing.NewRouter(routing.Config{})
	require.NoError(t, err)
	workflows, err := NewRegistryFrom(Catalog(), nil)
	require.NoError(t, err)
	orch := New(agents, router, workflows, breakers)
	pub := &capturingPublisher{}
	orch.SetEventPublisher(pub)

	require.NoError(t, agents.Register(&stubSpecialist{
		agentType: models.AgentTypeProfile,
		intents:   routing.IntentsFor(models.AgentTypeProfile),
		process: func(context.Context, *models.Context, *models.Payload) (*models.Result, error) {
			return nil, errors.New("store down")
		},
	}))

	result := orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentGetProfile})
	require.True(t, result.IsError())

	require.Len(t, pub.breakers, 1)
	ev := pub.breakers[0]
	assert.Equal(t, events.EventTypeBreakerState, ev.Type)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, string(models.AgentTypeProfile), ev.AgentType)
	assert.Equal(t, "open", ev.State)
	assert.Equal(t, 1, ev.Failures)

	// A second rejected call observes no further transition.
	_ = orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentGetProfile})
	assert.Len(t, pub.breakers, 1)
}

func TestEmission_TriggerDetectedEvents(t *testing.T) {
	f := newFixture(t)
	pub := &capturingPublisher{}
	f.orch.SetEventPublisher(pub)
	f.register(t, models.AgentTypeProgressTracker, routing.IntentsFor(models.AgentTypeProgressTracker),
		succeedWith(map[string]any{
			"needs_adaptation": true,
			"triggers": []models.AdaptationTrigger{
				{
					Type:              models.TriggerConsecutiveFailures,
					Severity:          models.SeverityHigh,
					Details:           map[string]any{"task_id": "t1", "failures": 3},
					RecommendedAction: "reduce_difficulty_and_recap",
					Confidence:        0.95,
				},
				{
					Type:              models.TriggerSlowProgress,
					Severity:          models.SeverityMedium,
					RecommendedAction: "adjust_pace",
					Confidence:        0.7,
				},
			},
		}))

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentDetectAdaptationTriggers})
	require.True(t, result.Success, result.Error)

	require.Len(t, pub.triggers, 2)
	first := pub.triggers[0]
	assert.Equal(t, events.EventTypeTriggerDetected, first.Type)
	assert.Equal(t, "sess-1", first.SessionID)
	assert.Equal(t, "user-1", first.UserID)
	assert.Equal(t, "consecutive_failures", first.TriggerType)
	assert.Equal(t, "high", first.Severity)
	assert.Equal(t, "reduce_difficulty_and_recap", first.Action)
	assert.Equal(t, 0.95, first.Confidence)
	assert.Equal(t, "t1", first.TaskID)

	second := pub.triggers[1]
	assert.Equal(t, "slow_progress", second.TriggerType)
	assert.Empty(t, second.TaskID)
}

func TestEmission_PublisherFailureDoesNotAffectResult(t *testing.T) {
	f := newFixture(t)
	pub := &capturingPublisher{err: errors.New("sink down")}
	f.orch.SetEventPublisher(pub)
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		succeedWith(map[string]any{"ok": true}))

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentGetProfile})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, true, result.Data["ok"])
}
