package specialist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/progress"
	"github.com/learnloop/mentor/pkg/services"
)

// Tracker persists attempt outcomes and derives progress metrics and
// adaptation triggers from the accumulated history.
type Tracker struct {
	subs   SubmissionStore
	plans  PlanStore
	engine *progress.Engine
	logger *slog.Logger
	now    func() time.Time
}

// NewTracker creates the progress tracker agent. A nil engine gets the
// default thresholds.
func NewTracker(subs SubmissionStore, plans PlanStore, engine *progress.Engine) *Tracker {
	if engine == nil {
		engine = progress.NewEngine(progress.DefaultConfig())
	}
	return &Tracker{
		subs:   subs,
		plans:  plans,
		engine: engine,
		logger: slog.With("component", "tracker_agent"),
		now:    time.Now,
	}
}

// Type implements agent.Agent.
func (t *Tracker) Type() models.AgentType { return models.AgentTypeProgressTracker }

// SupportedIntents implements agent.Agent.
func (t *Tracker) SupportedIntents() []models.Intent {
	return []models.Intent{
		models.IntentRecordAttempt,
		models.IntentUpdateProgress,
		models.IntentDetectAdaptationTriggers,
		models.IntentGetProgress,
		models.IntentGetStreak,
		models.IntentGetMetrics,
	}
}

// Process implements agent.Agent. Every tracker operation reads or writes
// submission history, so a missing store fails all of them.
func (t *Tracker) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	if t.subs == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "submission store not configured"), nil
	}

	switch payload.Intent {
	case models.IntentRecordAttempt:
		return t.recordAttempt(ctx, cctx, payload, true)
	case models.IntentUpdateProgress:
		return t.recordAttempt(ctx, cctx, payload, false)
	case models.IntentDetectAdaptationTriggers:
		return t.detectTriggers(ctx, cctx)
	case models.IntentGetProgress:
		return t.getProgress(ctx, cctx)
	case models.IntentGetStreak:
		return t.getStreak(ctx, cctx)
	case models.IntentGetMetrics:
		return t.getMetrics(ctx, cctx)
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("tracker agent does not handle intent %s", payload.Intent)), nil
	}
}

// recordAttempt persists one submission plus its evaluation, marks the task
// completed on a pass, and returns fresh metrics. record_attempt also runs
// trigger detection inline; update_progress leaves that to the dedicated
// detection step.
func (t *Tracker) recordAttempt(ctx context.Context, cctx *models.Context, payload *models.Payload, detect bool) (*models.Result, error) {
	taskID := payload.String("task_id")
	if taskID == "" {
		return models.ErrorResult(models.ErrCodeValidation, "task_id is required"), nil
	}

	attempt, ok := payload.Int("attempt_number")
	if !ok || attempt <= 0 {
		existing, err := t.subs.GetTaskOutcomes(ctx, cctx.UserID, taskID)
		if err != nil {
			return nil, fmt.Errorf("get task outcomes: %w", err)
		}
		attempt = len(existing) + 1
	}

	now := t.now()
	passed := payload.Bool("passed")
	score, _ := payload.Float("score")
	testsPassed, _ := payload.Int("tests_passed")
	testsTotal, _ := payload.Int("tests_total")

	sub := &models.Submission{
		ID:            uuid.NewString(),
		UserID:        cctx.UserID,
		TaskID:        taskID,
		PlanID:        payload.String("plan_id"),
		Language:      payload.String("language"),
		Code:          payload.String("code"),
		AttemptNumber: attempt,
		SubmittedAt:   now,
	}
	eval := &models.Evaluation{
		ID:           uuid.NewString(),
		SubmissionID: sub.ID,
		UserID:       cctx.UserID,
		TaskID:       taskID,
		Passed:       passed,
		Score:        score,
		TestsPassed:  testsPassed,
		TestsTotal:   testsTotal,
		Feedback:     payload.String("feedback"),
		EvaluatedAt:  now,
	}

	if err := t.subs.SaveSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("save submission: %w", err)
	}
	if err := t.subs.SaveEvaluation(ctx, eval); err != nil {
		return nil, fmt.Errorf("save evaluation: %w", err)
	}

	plan := t.markCompleted(ctx, cctx.UserID, taskID, passed)

	outcomes, err := t.subs.GetUserOutcomes(ctx, cctx.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user outcomes: %w", err)
	}
	metrics := t.engine.Metrics(plan, outcomes, now)

	t.logger.Info("Attempt recorded",
		"user_id", cctx.UserID,
		"task_id", taskID,
		"attempt_number", attempt,
		"passed", passed)

	data := map[string]any{
		"recorded":       true,
		"task_id":        taskID,
		"attempt_number": attempt,
		"passed":         passed,
		"metrics":        metrics,
	}
	if !detect {
		return models.SuccessResult(data).WithNextActions("detect_adaptation_triggers"), nil
	}

	triggers := progress.Prioritize(t.engine.DetectTriggers(metrics, outcomes))
	data["needs_adaptation"] = len(triggers) > 0
	data["triggers"] = triggers
	result := models.SuccessResult(data)
	if len(triggers) > 0 {
		result = result.WithNextActions("adapt_difficulty")
	}
	return result, nil
}

func (t *Tracker) detectTriggers(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	metrics, outcomes, _, err := t.snapshot(ctx, cctx)
	if err != nil {
		return nil, err
	}

	triggers := progress.Prioritize(t.engine.DetectTriggers(metrics, outcomes))
	if len(triggers) > 0 {
		top := triggers[0]
		t.logger.Info("Adaptation trigger detected",
			"user_id", cctx.UserID,
			"trigger_type", top.Type,
			"severity", top.Severity,
			"recommended_action", top.RecommendedAction)
	}

	result := models.SuccessResult(map[string]any{
		"needs_adaptation": len(triggers) > 0,
		"triggers":         triggers,
		"metrics":          metrics,
	})
	if len(triggers) > 0 {
		result = result.WithNextActions("adapt_difficulty")
	}
	return result, nil
}

func (t *Tracker) getProgress(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	metrics, _, plan, err := t.snapshot(ctx, cctx)
	if err != nil {
		return nil, err
	}

	data := map[string]any{
		"completion_rate": metrics.CompletionRate,
		"success_rate":    metrics.SuccessRate,
		"streak_days":     metrics.StreakDays,
		"total_tasks":     metrics.TotalTasks,
		"completed_tasks": metrics.CompletedTasks,
		"metrics":         metrics,
	}
	if plan != nil {
		data["plan_id"] = plan.ID
		data["plan_title"] = plan.Title
	}
	return models.SuccessResult(data), nil
}

func (t *Tracker) getStreak(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	metrics, _, _, err := t.snapshot(ctx, cctx)
	if err != nil {
		return nil, err
	}

	return models.SuccessResult(map[string]any{
		"streak_days":         metrics.StreakDays,
		"longest_streak_days": metrics.LongestStreakDays,
		"last_activity_date":  metrics.LastActivityDate,
	}), nil
}

func (t *Tracker) getMetrics(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	metrics, _, _, err := t.snapshot(ctx, cctx)
	if err != nil {
		return nil, err
	}
	return models.SuccessResult(map[string]any{"metrics": metrics}), nil
}

// snapshot loads the full outcome history and active plan and computes
// metrics over them.
func (t *Tracker) snapshot(ctx context.Context, cctx *models.Context) (models.ProgressMetrics, []models.SubmissionOutcome, *models.LearningPlan, error) {
	outcomes, err := t.subs.GetUserOutcomes(ctx, cctx.UserID)
	if err != nil {
		return models.ProgressMetrics{}, nil, nil, fmt.Errorf("get user outcomes: %w", err)
	}
	plan := t.activePlan(ctx, cctx.UserID)
	return t.engine.Metrics(plan, outcomes, t.now()), outcomes, plan, nil
}

// markCompleted marks the task done on the active plan after a pass and
// returns whatever plan was loaded so callers skip a second read. Marking
// is best-effort; completion can be rederived from submission history.
func (t *Tracker) markCompleted(ctx context.Context, userID, taskID string, passed bool) *models.LearningPlan {
	plan := t.activePlan(ctx, userID)
	if plan == nil || !passed {
		return plan
	}
	if plan.MarkTaskCompleted(taskID) {
		if err := t.plans.SavePlan(ctx, plan); err != nil {
			t.logger.Warn("Could not persist task completion",
				"user_id", userID, "task_id", taskID, "error", err)
		}
	}
	return plan
}

func (t *Tracker) activePlan(ctx context.Context, userID string) *models.LearningPlan {
	if t.plans == nil {
		return nil
	}
	plan, err := t.plans.GetActivePlan(ctx, userID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			t.logger.Warn("Could not load active plan", "user_id", userID, "error", err)
		}
		return nil
	}
	return plan
}
