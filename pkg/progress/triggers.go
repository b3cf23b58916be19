package progress

import (
	"sort"
	"time"

	"github.com/learnloop/mentor/pkg/models"
)

// Recommended actions carried on triggers; the orchestrator's
// exercise_submission workflow consumes the top trigger's action.
const (
	ActionReduceDifficultyAndRecap = "reduce_difficulty_and_recap"
	ActionIncreaseDifficulty       = "increase_difficulty"
	ActionReduceDifficulty         = "reduce_difficulty"
	ActionAdjustPacing             = "adjust_pacing"
)

// Detection thresholds and confidences. Fixed by design except where Config
// overrides; see the package comment.
const (
	minConsecutiveFailures = 2
	quickSuccessMinScore   = 90.0
	lowSuccessRateBelow    = 50.0
	highSuccessRateAbove   = 90.0
	minHighSuccessTotal    = 5
	slowProgressGap        = 20.0

	confConsecutiveFailures = 0.95
	confQuickSuccess        = 0.8
	confLowSuccessRate      = 0.9
	confHighSuccessRate     = 0.85
	confSlowProgress        = 0.75
)

// DetectTriggers evaluates every trigger rule against the metrics and raw
// outcomes and returns the detections in stable rule order (unprioritized).
// An empty submission set never fires anything: with no evidence of how the
// learner is doing, no adaptation is defensible.
func (e *Engine) DetectTriggers(m models.ProgressMetrics, outcomes []models.SubmissionOutcome) []models.AdaptationTrigger {
	if len(outcomes) == 0 {
		return nil
	}

	var triggers []models.AdaptationTrigger

	if taskID, count := longestFailureRun(outcomes); count >= minConsecutiveFailures {
		triggers = append(triggers, models.AdaptationTrigger{
			Type:     models.TriggerConsecutiveFailures,
			Severity: models.SeverityHigh,
			Details: map[string]any{
				"task_id":              taskID,
				"consecutive_failures": count,
			},
			RecommendedAction: ActionReduceDifficultyAndRecap,
			Confidence:        confConsecutiveFailures,
		})
	}

	if latest := latestOutcome(outcomes); latest.Passed && latest.AttemptNumber == 1 && latest.Score >= quickSuccessMinScore {
		triggers = append(triggers, models.AdaptationTrigger{
			Type:     models.TriggerQuickSuccess,
			Severity: models.SeverityLow,
			Details: map[string]any{
				"task_id": latest.TaskID,
				"score":   latest.Score,
			},
			RecommendedAction: ActionIncreaseDifficulty,
			Confidence:        confQuickSuccess,
		})
	}

	total := len(outcomes)
	if m.SuccessRate < lowSuccessRateBelow && total >= e.cfg.MinSubmissionsLowSuccess {
		triggers = append(triggers, models.AdaptationTrigger{
			Type:     models.TriggerLowSuccessRate,
			Severity: models.SeverityHigh,
			Details: map[string]any{
				"success_rate":      m.SuccessRate,
				"total_submissions": total,
			},
			RecommendedAction: ActionReduceDifficulty,
			Confidence:        confLowSuccessRate,
		})
	}

	if m.SuccessRate > highSuccessRateAbove && total >= minHighSuccessTotal {
		triggers = append(triggers, models.AdaptationTrigger{
			Type:     models.TriggerHighSuccessRate,
			Severity: models.SeverityLow,
			Details: map[string]any{
				"success_rate":      m.SuccessRate,
				"total_submissions": total,
			},
			RecommendedAction: ActionIncreaseDifficulty,
			Confidence:        confHighSuccessRate,
		})
	}

	if m.CompletionRate < m.ExpectedCompletion-slowProgressGap {
		triggers = append(triggers, models.AdaptationTrigger{
			Type:     models.TriggerSlowProgress,
			Severity: models.SeverityMedium,
			Details: map[string]any{
				"completion_rate":     m.CompletionRate,
				"expected_completion": m.ExpectedCompletion,
			},
			RecommendedAction: ActionAdjustPacing,
			Confidence:        confSlowProgress,
		})
	}

	return triggers
}

// Prioritize orders triggers by severity rank (high before medium before
// low), then by descending confidence. The input is not modified.
func Prioritize(triggers []models.AdaptationTrigger) []models.AdaptationTrigger {
	out := make([]models.AdaptationTrigger, len(triggers))
	copy(out, triggers)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() < out[j].Severity.Rank()
		}
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// longestFailureRun finds the task with the longest run of consecutive
// failed submissions. Runs are counted per task in submission order; a pass
// resets the run. Ties go to the run that ended most recently.
func longestFailureRun(outcomes []models.SubmissionOutcome) (string, int) {
	byTask := make(map[string][]models.SubmissionOutcome)
	for _, o := range outcomes {
		byTask[o.TaskID] = append(byTask[o.TaskID], o)
	}

	bestTask := ""
	bestCount := 0
	var bestEnd time.Time
	for taskID, taskOutcomes := range byTask {
		sort.SliceStable(taskOutcomes, func(i, j int) bool {
			if !taskOutcomes[i].SubmittedAt.Equal(taskOutcomes[j].SubmittedAt) {
				return taskOutcomes[i].SubmittedAt.Before(taskOutcomes[j].SubmittedAt)
			}
			return taskOutcomes[i].AttemptNumber < taskOutcomes[j].AttemptNumber
		})
		run := 0
		for _, o := range taskOutcomes {
			if o.Passed {
				run = 0
				continue
			}
			run++
			if run > bestCount || (run == bestCount && o.SubmittedAt.After(bestEnd)) {
				bestTask = taskID
				bestCount = run
				bestEnd = o.SubmittedAt
			}
		}
	}
	return bestTask, bestCount
}

// latestOutcome returns the most recently submitted outcome, breaking
// timestamp ties by attempt number.
func latestOutcome(outcomes []models.SubmissionOutcome) models.SubmissionOutcome {
	latest := outcomes[0]
	for _, o := range outcomes[1:] {
		if o.SubmittedAt.After(latest.SubmittedAt) ||
			(o.SubmittedAt.Equal(latest.SubmittedAt) && o.AttemptNumber > latest.AttemptNumber) {
			latest = o
		}
	}
	return latest
}
