package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/agent"
	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/routing"
)

type stubSpecialist struct {
	agentType models.AgentType
	intents   []models.Intent
	process   func(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error)
}

func (s *stubSpecialist) Type() models.AgentType            { return s.agentType }
func (s *stubSpecialist) SupportedIntents() []models.Intent { return s.intents }

func (s *stubSpecialist) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	return s.process(ctx, cctx, payload)
}

func succeedWith(data map[string]any) func(context.Context, *models.Context, *models.Payload) (*models.Result, error) {
	return func(context.Context, *models.Context, *models.Payload) (*models.Result, error) {
		return models.SuccessResult(data), nil
	}
}

func testContext() *models.Context {
	return &models.Context{UserID: "user-1", SessionID: "sess-1", CorrelationID: "corr-1"}
}

type fixture struct {
	agents   *agent.Registry
	breakers *breaker.Manager
	orch     *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, Catalog(), nil)
}

func newFixtureWith(t *testing.T, catalog []*Workflow, enabled []string) *fixture {
	t.Helper()
	breakers := breaker.NewManager(breaker.Config{})
	agents := agent.NewRegistry(breakers)
	router, err := routing.NewRouter(routing.Config{})
	require.NoError(t, err)
	workflows, err := NewRegistryFrom(catalog, enabled)
	require.NoError(t, err)
	return &fixture{
		agents:   agents,
		breakers: breakers,
		orch:     New(agents, router, workflows, breakers),
	}
}

func (f *fixture) register(t *testing.T, agentType models.AgentType, intents []models.Intent,
	process func(context.Context, *models.Context, *models.Payload) (*models.Result, error)) {
	t.Helper()
	require.NoError(t, f.agents.Register(&stubSpecialist{agentType: agentType, intents: intents, process: process}))
}

func (f *fixture) breakerStats(agentType models.AgentType) breaker.Stats {
	return f.breakers.Get(string(agentType)).Stats()
}

func TestExecute_RoutesKnownIntent(t *testing.T) {
	f := newFixture(t)
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		succeedWith(map[string]any{"questions": []string{"q1", "q2"}}))

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentAssessSkillLevel})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, []string{"q1", "q2"}, result.Data["questions"])

	orchStats := f.breakerStats(models.AgentTypeOrchestrator)
	profileStats := f.breakerStats(models.AgentTypeProfile)
	assert.Equal(t, int64(1), orchStats.TotalCalls)
	assert.Equal(t, int64(1), profileStats.TotalCalls)
	assert.Equal(t, 0, orchStats.ConsecutiveFailures)
	assert.Equal(t, 0, profileStats.ConsecutiveFailures)
}

func TestExecute_UnknownIntent(t *testing.T) {
	f := newFixture(t)
	invoked := false
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		func(context.Context, *models.Context, *models.Payload) (*models.Result, error) {
			invoked = true
			return models.SuccessResult(nil), nil
		})

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Intent: "xyzzy"})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeNoAgentForIntent, result.ErrorCode)
	assert.False(t, invoked)

	stats := f.breakerStats(models.AgentTypeOrchestrator)
	assert.Equal(t, "closed", stats.State)
	assert.Equal(t, 0, stats.ConsecutiveFailures)
}

func TestExecute_RoutedAgentNotRegistered(t *testing.T) {
	f := newFixture(t)

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentEvaluateSubmission})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeAgentUnavailable, result.ErrorCode)
}

func TestExecute_CustomIntentViaRegistryIndex(t *testing.T) {
	f := newFixture(t)
	f.register(t, models.AgentTypeProfile, []models.Intent{"export_profile_data"},
		succeedWith(map[string]any{"exported": true}))

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: "export_profile_data"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, true, result.Data["exported"])
}

func TestExecute_EmptyPayloadRejected(t *testing.T) {
	f := newFixture(t)

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeValidation, result.ErrorCode)
	assert.Equal(t, int64(0), f.breakerStats(models.AgentTypeOrchestrator).TotalCalls)
}

func TestExecute_UnknownWorkflow(t *testing.T) {
	f := newFixture(t)

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Workflow: "mystery"})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeUnknownWorkflow, result.ErrorCode)
}

func TestExecute_DisabledWorkflowIsUnknown(t *testing.T) {
	f := newFixtureWith(t, Catalog(), []string{WorkflowResourceDiscovery})

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Workflow: WorkflowNewLearnerOnboarding})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeUnknownWorkflow, result.ErrorCode)
}

func TestExecute_OnboardingWorkflow(t *testing.T) {
	f := newFixture(t)
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			switch p.Intent {
			case models.IntentAssessSkillLevel:
				return models.SuccessResult(map[string]any{"skill_level": "beginner"}), nil
			case models.IntentUpdateGoals:
				return models.SuccessResult(map[string]any{"goals": p.StringSlice("goals")}), nil
			case models.IntentSetConstraints:
				return models.SuccessResult(map[string]any{"constraints": p.Map("constraints")}), nil
			}
			return models.SuccessResult(nil), nil
		})

	var planPayload *models.Payload
	f.register(t, models.AgentTypeCurriculumPlanner, routing.IntentsFor(models.AgentTypeCurriculumPlanner),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			planPayload = p
			return models.SuccessResult(map[string]any{"plan_id": "plan-1"}).
				WithNextActions("generate_exercise"), nil
		})

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{
		Intent:   models.IntentAssessSkillLevel,
		Workflow: WorkflowNewLearnerOnboarding,
		Data: map[string]any{
			"goals":       []string{"python"},
			"constraints": map[string]any{"hours_per_week": 5},
		},
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, WorkflowNewLearnerOnboarding, result.Data["workflow_name"])
	assert.Equal(t, 4, result.Data["steps_completed"])
	assert.Equal(t, []string{"generate_exercise"}, result.NextActions)

	outputs, ok := result.Data["outputs"].([]StepOutput)
	require.True(t, ok)
	require.Len(t, outputs, 4)
	wantOrder := []models.Intent{
		models.IntentAssessSkillLevel,
		models.IntentUpdateGoals,
		models.IntentSetConstraints,
		models.IntentCreateLearningPath,
	}
	for i, intent := range wantOrder {
		assert.Equal(t, intent, outputs[i].Intent)
		assert.Equal(t, i, outputs[i].Step)
	}

	// The planner step is fed by the transform, not the raw request.
	require.NotNil(t, planPayload)
	assert.Equal(t, "beginner", planPayload.String("skill_level"))
	assert.Equal(t, []string{"python"}, planPayload.StringSlice("goals"))
	assert.Equal(t, map[string]any{"hours_per_week": 5}, planPayload.Map("constraints"))
}

func TestExecute_ExerciseSubmissionAdaptBranch(t *testing.T) {
	tests := []struct {
		name            string
		needsAdaptation bool
		expectedSteps   int
	}{
		{
			name:            "triggers fire the adapt step",
			needsAdaptation: true,
			expectedSteps:   4,
		},
		{
			name:            "no triggers skips the adapt step",
			needsAdaptation: false,
			expectedSteps:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.register(t, models.AgentTypeReviewer, routing.IntentsFor(models.AgentTypeReviewer),
				succeedWith(map[string]any{
					"task_id": "t1", "passed": false, "score": 45.0, "attempt_number": 2,
				}))

			f.register(t, models.AgentTypeProgressTracker, routing.IntentsFor(models.AgentTypeProgressTracker),
				func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
					if p.Intent != models.IntentDetectAdaptationTriggers {
						return models.SuccessResult(map[string]any{"recorded": true}), nil
					}
					data := map[string]any{"needs_adaptation": tt.needsAdaptation}
					if tt.needsAdaptation {
						data["triggers"] = []models.AdaptationTrigger{{
							Type:              models.TriggerConsecutiveFailures,
							Severity:          models.SeverityHigh,
							RecommendedAction: "reduce_difficulty_and_recap",
							Confidence:        0.95,
						}}
					}
					return models.SuccessResult(data), nil
				})

			var adaptPayload *models.Payload
			f.register(t, models.AgentTypeCurriculumPlanner, routing.IntentsFor(models.AgentTypeCurriculumPlanner),
				func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
					adaptPayload = p
					return models.SuccessResult(map[string]any{"adapted": true}), nil
				})

			result := f.orch.Execute(context.Background(), testContext(), &models.Payload{
				Intent:   models.IntentEvaluateSubmission,
				Workflow: WorkflowExerciseSubmission,
				Data:     map[string]any{"task_id": "t1", "code": "print('x')"},
			})

			require.True(t, result.Success, result.Error)
			assert.Equal(t, tt.expectedSteps, result.Data["steps_completed"])

			if !tt.needsAdaptation {
				assert.Nil(t, adaptPayload)
				return
			}
			require.NotNil(t, adaptPayload)
			assert.Equal(t, models.IntentAdaptDifficulty, adaptPayload.Intent)
			assert.Equal(t, "reduce_difficulty_and_recap", adaptPayload.String("recommended_action"))
			assert.Equal(t, "consecutive_failures", adaptPayload.String("trigger_type"))
			assert.Equal(t, "t1", adaptPayload.String("task_id"))
		})
	}
}

func TestExecute_MessageClassifiedAndDispatched(t *testing.T) {
	f := newFixture(t)
	var got models.Intent
	f.register(t, models.AgentTypeProgressTracker, routing.IntentsFor(models.AgentTypeProgressTracker),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			got = p.Intent
			return models.SuccessResult(map[string]any{"completion_rate": 40.0}), nil
		})

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Message: "show my progress"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, models.IntentGetProgress, got)
	assert.Equal(t, "get_progress", result.Metadata["classified_intent"])
}

func TestExecute_AmbiguousMessageAsksForClarification(t *testing.T) {
	f := newFixture(t)

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Message: "well hello there friend"})

	require.True(t, result.Success)
	assert.Equal(t, true, result.Data["needs_clarification"])
	assert.Equal(t, []string{"clarify_request"}, result.NextActions)
}

func TestExecute_ClassifyMessageIntent(t *testing.T) {
	f := newFixture(t)

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{
		Intent:  models.IntentClassifyMessage,
		Message: "what's my streak",
	})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, true, result.Data["matched"])
	assert.Equal(t, "get_streak", result.Data["intent"])
	assert.Equal(t, string(models.AgentTypeProgressTracker), result.Data["target_agent"])
}

func TestExecute_ExecuteWorkflowIntentRequiresName(t *testing.T) {
	f := newFixture(t)

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Intent: models.IntentExecuteWorkflow})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeValidation, result.ErrorCode)
}

func TestRunWorkflow_AbortStopsSubsequentSteps(t *testing.T) {
	wf := &Workflow{
		Name: "three_step",
		Steps: []Step{
			{AgentType: models.AgentTypeProfile, Intent: models.IntentGetProfile},
			{AgentType: models.AgentTypeProfile, Intent: models.IntentUpdateGoals},
			{AgentType: models.AgentTypeProfile, Intent: models.IntentSetConstraints},
		},
	}
	f := newFixtureWith(t, []*Workflow{wf}, nil)

	var calls []models.Intent
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			calls = append(calls, p.Intent)
			if p.Intent == models.IntentUpdateGoals {
				return nil, errors.New("profile store down")
			}
			return models.SuccessResult(map[string]any{"ok": true}), nil
		})

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Workflow: "three_step"})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeProcessing, result.ErrorCode)
	assert.Equal(t, 1, result.Metadata["workflow_step"])
	assert.Equal(t, []models.Intent{models.IntentGetProfile, models.IntentUpdateGoals}, calls)

	partial, ok := result.Metadata["partial_outputs"].([]StepOutput)
	require.True(t, ok)
	require.Len(t, partial, 2)
	assert.Equal(t, models.IntentGetProfile, partial[0].Intent)
	assert.Equal(t, models.IntentUpdateGoals, partial[1].Intent)
	assert.Nil(t, partial[1].Data)

	// The failing specialist took the breaker hit, not the orchestrator.
	assert.Equal(t, 1, f.breakerStats(models.AgentTypeProfile).ConsecutiveFailures)
	assert.Equal(t, 0, f.breakerStats(models.AgentTypeOrchestrator).ConsecutiveFailures)
}

func TestRunWorkflow_ContinuePolicyProceeds(t *testing.T) {
	wf := &Workflow{
		Name: "tolerant",
		Steps: []Step{
			{AgentType: models.AgentTypeProfile, Intent: models.IntentGetProfile, OnFailure: FailContinue},
			{AgentType: models.AgentTypeProfile, Intent: models.IntentUpdateGoals},
		},
	}
	f := newFixtureWith(t, []*Workflow{wf}, nil)
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			if p.Intent == models.IntentGetProfile {
				return nil, errors.New("profile not found")
			}
			return models.SuccessResult(map[string]any{"ok": true}), nil
		})

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Workflow: "tolerant"})

	require.True(t, result.Success, result.Error)
	assert.Equal(t, 2, result.Data["steps_completed"])
}

func TestRunWorkflow_FallbackPolicyReplacesOutput(t *testing.T) {
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
	f.register(t, models.AgentTypeExerciseGenerator, routing.IntentsFor(models.AgentTypeExerciseGenerator),
		func(_ context.Context, _ *models.Context, p *models.Payload) (*models.Result, error) {
			if p.Intent == models.IntentGenerateExercise {
				return nil, errors.New("generator offline")
			}
			return models.SuccessResult(map[string]any{"exercise_id": "recap-1"}), nil
		})

	result := f.orch.Execute(context.Background(), testContext(), &models.Payload{Workflow: "rescued"})

	require.True(t, result.Success, result.Error)
	outputs, ok := result.Data["outputs"].([]StepOutput)
	require.True(t, ok)
	require.Len(t, outputs, 1)
	assert.Equal(t, models.IntentCreateRecapExercise, outputs[0].Intent)
	assert.Equal(t, "recap-1", outputs[0].Data["exercise_id"])
}

func TestRunWorkflow_MissingAgentFailsStep(t *testing.T) {
	f := newFixture(t)

	result := f.orch.Execute(context.Background(), testContext(),
		&models.Payload{Workflow: WorkflowResourceDiscovery})

	require.True(t, result.IsError())
	assert.Equal(t, models.ErrCodeAgentUnavailable, result.ErrorCode)
	assert.Equal(t, 0, result.Metadata["workflow_step"])
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	f.register(t, models.AgentTypeProfile, routing.IntentsFor(models.AgentTypeProfile),
		succeedWith(map[string]any{"ok": true}))

	h := f.orch.Health()

	assert.Equal(t, []string{
		WorkflowExerciseSubmission,
		WorkflowNewLearnerOnboarding,
		WorkflowResourceDiscovery,
	}, h.AvailableWorkflows)
	require.Len(t, h.RegisteredAgents, 1)
	assert.Equal(t, models.AgentTypeProfile, h.RegisteredAgents[0].Type)
	assert.Equal(t, "closed", h.Breaker.State)
}
