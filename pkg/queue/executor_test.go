package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnloop/mentor/pkg/agent"
	"github.com/learnloop/mentor/pkg/breaker"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/orchestrator"
	"github.com/learnloop/mentor/pkg/routing"
)

type queueStubAgent struct {
	agentType models.AgentType
	intents   []models.Intent
	process   func(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error)
}

func (a *queueStubAgent) Type() models.AgentType            { return a.agentType }
func (a *queueStubAgent) SupportedIntents() []models.Intent { return a.intents }

func (a *queueStubAgent) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	return a.process(ctx, cctx, payload)
}

func newTestOrchestrator(t *testing.T, agents ...agent.Agent) *orchestrator.Orchestrator {
	t.Helper()
	breakers := breaker.NewManager(breaker.Config{})
	registry := agent.NewRegistry(breakers)
	for _, a := range agents {
		require.NoError(t, registry.Register(a))
	}
	router, err := routing.NewRouter(routing.Config{})
	require.NoError(t, err)
	workflows, err := orchestrator.NewRegistryFrom(orchestrator.Catalog(), nil)
	require.NoError(t, err)
	return orchestrator.New(registry, router, workflows, breakers)
}

func TestRequestFromSession(t *testing.T) {
	session := &models.CoachSession{
		ID:            "sess-1",
		UserID:        "user-1",
		CorrelationID: "corr-1",
		Intent:        models.IntentGenerateExercise,
		Request: map[string]any{
			"message": "harder one please",
			"data":    map[string]any{"topic": "slices"},
			"context": map[string]any{
				"current_objective": "goroutines",
				"skill_level":       "intermediate",
				"learning_goals":    []any{"backend", "cli tools"},
				"time_constraints":  map[string]any{"hours_per_week": 5.0},
				"preferences":       map[string]any{"style": "project"},
				"attempt_count":     2.0,
				"last_feedback":     map[string]any{"passed": false},
			},
		},
	}

	cctx, payload, err := requestFromSession(session)
	require.NoError(t, err)

	assert.Equal(t, "user-1", cctx.UserID)
	assert.Equal(t, "sess-1", cctx.SessionID)
	assert.Equal(t, "corr-1", cctx.CorrelationID)
	assert.Equal(t, "goroutines", cctx.CurrentObjective)
	assert.Equal(t, models.SkillIntermediate, cctx.SkillLevel)
	assert.Equal(t, []string{"backend", "cli tools"}, cctx.LearningGoals)
	assert.Equal(t, map[string]any{"hours_per_week": 5.0}, cctx.TimeConstraints)
	assert.Equal(t, map[string]any{"style": "project"}, cctx.Preferences)
	assert.Equal(t, 2, cctx.AttemptCount)
	assert.Equal(t, map[string]any{"passed": false}, cctx.LastFeedback)

	assert.Equal(t, models.IntentGenerateExercise, payload.Intent)
	assert.Equal(t, "", payload.Workflow)
	assert.Equal(t, "harder one please", payload.Message)
	assert.Equal(t, map[string]any{"topic": "slices"}, payload.Data)
}

func TestRequestFromSessionMinimal(t *testing.T) {
	session := &models.CoachSession{
		ID:      "sess-1",
		UserID:  "user-1",
		Intent:  models.IntentGetProgress,
		Request: map[string]any{},
	}

	cctx, payload, err := requestFromSession(session)
	require.NoError(t, err)
	assert.NotEmpty(t, cctx.CorrelationID, "a missing correlation id is generated")
	assert.Empty(t, cctx.SkillLevel)
	assert.Equal(t, models.IntentGetProgress, payload.Intent)
	assert.Empty(t, payload.Message)
	assert.Nil(t, payload.Data)
}

func TestRequestFromSessionMalformedContextIgnored(t *testing.T) {
	session := &models.CoachSession{
		ID:     "sess-1",
		UserID: "user-1",
		Request: map[string]any{
			"message": 42,
			"context": map[string]any{
				"learning_goals": []any{"go", 7},
				"attempt_count":  "three",
			},
		},
	}

	cctx, payload, err := requestFromSession(session)
	require.NoError(t, err)
	assert.Equal(t, []string{"go"}, cctx.LearningGoals, "non-string goals are dropped")
	assert.Equal(t, 0, cctx.AttemptCount)
	assert.Empty(t, payload.Message)
}

func TestRequestFromSessionMissingUser(t *testing.T) {
	_, _, err := requestFromSession(&models.CoachSession{ID: "sess-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "building request context")
}

func TestResultFromDispatch(t *testing.T) {
	expired, cancelExpired := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancelExpired()
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name       string
		ctx        context.Context
		result     *models.Result
		wantStatus models.SessionStatus
		wantErr    string
	}{
		{
			name:       "success maps to completed",
			ctx:        context.Background(),
			result:     models.SuccessResult(map[string]any{"ok": true}),
			wantStatus: models.SessionStatusCompleted,
		},
		{
			name:       "nil result is a failure",
			ctx:        context.Background(),
			result:     nil,
			wantStatus: models.SessionStatusFailed,
			wantErr:    "no result",
		},
		{
			name:       "timeout error code maps to timed_out",
			ctx:        context.Background(),
			result:     models.ErrorResult(models.ErrCodeTimeout, "agent did not answer"),
			wantStatus: models.SessionStatusTimedOut,
			wantErr:    "timeout: agent did not answer",
		},
		{
			name:       "expired context outranks the error code",
			ctx:        expired,
			result:     models.ErrorResult(models.ErrCodeProcessing, "context deadline exceeded"),
			wantStatus: models.SessionStatusTimedOut,
			wantErr:    "processing_error",
		},
		{
			name:       "cancelled context maps to cancelled",
			ctx:        cancelled,
			result:     models.ErrorResult(models.ErrCodeProcessing, "context canceled"),
			wantStatus: models.SessionStatusCancelled,
		},
		{
			name:       "other errors map to failed",
			ctx:        context.Background(),
			result:     models.ErrorResult(models.ErrCodeAgentUnavailable, "agent reviewer is not registered"),
			wantStatus: models.SessionStatusFailed,
			wantErr:    "agent_unavailable: agent reviewer is not registered",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := resultFromDispatch(tt.ctx, tt.result)
			assert.Equal(t, tt.wantStatus, out.Status)
			if tt.wantErr == "" {
				if out.Status == models.SessionStatusCompleted {
					assert.Nil(t, out.Error)
				}
				return
			}
			require.Error(t, out.Error)
			assert.Contains(t, out.Error.Error(), tt.wantErr)
		})
	}
}

func TestOrchestratorExecutorCompletesSession(t *testing.T) {
	var gotCctx *models.Context
	orch := newTestOrchestrator(t, &queueStubAgent{
		agentType: models.AgentTypeProgressTracker,
		intents:   []models.Intent{models.IntentGetProgress},
		process: func(_ context.Context, cctx *models.Context, _ *models.Payload) (*models.Result, error) {
			gotCctx = cctx
			return models.SuccessResult(map[string]any{"completion_rate": 40.0}), nil
		},
	})
	executor := NewOrchestratorExecutor(orch)

	out := executor.Execute(context.Background(), pendingSession("sess-exec"))

	require.Equal(t, models.SessionStatusCompleted, out.Status)
	require.NotNil(t, out.Result)
	assert.Equal(t, 40.0, out.Result.Data["completion_rate"])
	assert.Nil(t, out.Error)

	require.NotNil(t, gotCctx)
	assert.Equal(t, "sess-exec", gotCctx.SessionID)
	assert.Equal(t, "corr-sess-exec", gotCctx.CorrelationID)
}

func TestOrchestratorExecutorUnregisteredAgent(t *testing.T) {
	orch := newTestOrchestrator(t)
	executor := NewOrchestratorExecutor(orch)

	out := executor.Execute(context.Background(), pendingSession("sess-missing"))

	assert.Equal(t, models.SessionStatusFailed, out.Status)
	require.Error(t, out.Error)
	assert.Contains(t, out.Error.Error(), string(models.ErrCodeAgentUnavailable))
	require.NotNil(t, out.Result, "the error result is kept on the session")
}

func TestOrchestratorExecutorTimeout(t *testing.T) {
	orch := newTestOrchestrator(t, &queueStubAgent{
		agentType: models.AgentTypeProgressTracker,
		intents:   []models.Intent{models.IntentGetProgress},
		process: func(ctx context.Context, _ *models.Context, _ *models.Payload) (*models.Result, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	})
	executor := NewOrchestratorExecutor(orch)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	out := executor.Execute(ctx, pendingSession("sess-slow"))

	assert.Equal(t, models.SessionStatusTimedOut, out.Status)
	require.Error(t, out.Error)
}

func TestOrchestratorExecutorInvalidSession(t *testing.T) {
	orch := newTestOrchestrator(t)
	executor := NewOrchestratorExecutor(orch)

	out := executor.Execute(context.Background(), &models.CoachSession{ID: "sess-broken"})

	assert.Equal(t, models.SessionStatusFailed, out.Status)
	require.Error(t, out.Error)
	assert.False(t, errors.Is(out.Error, context.Canceled))
}
