// Package progress derives learning metrics from a user's plan and
// submission history and detects the adaptation triggers that drive
// curriculum changes. Thresholds are explicit constants and simple config,
// never learned: a teaching product must adapt predictably.
package progress

import (
	"sort"
	"time"

	"github.com/learnloop/mentor/pkg/models"
)

// Config holds the tunable detection thresholds.
type Config struct {
	// MinSubmissionsLowSuccess is the minimum submission count before a low
	// success rate is trusted enough to fire. 0 means the default.
	MinSubmissionsLowSuccess int `yaml:"min_submissions_low_success"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{MinSubmissionsLowSuccess: 4}
}

// Engine computes metrics and detects adaptation triggers. Stateless aside
// from config; safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine, filling zero config fields with defaults.
func NewEngine(cfg Config) *Engine {
	if cfg.MinSubmissionsLowSuccess <= 0 {
		cfg.MinSubmissionsLowSuccess = DefaultConfig().MinSubmissionsLowSuccess
	}
	return &Engine{cfg: cfg}
}

// Metrics derives the aggregate metrics for one user's active plan and
// submission outcomes. plan may be nil (no active plan); outcomes may be
// empty. now anchors expected completion and streak recency, and its
// location defines the local calendar day.
func (e *Engine) Metrics(plan *models.LearningPlan, outcomes []models.SubmissionOutcome, now time.Time) models.ProgressMetrics {
	var m models.ProgressMetrics

	if plan != nil {
		m.TotalTasks, m.CompletedTasks = plan.TaskCount()
		if m.TotalTasks > 0 {
			m.CompletionRate = float64(m.CompletedTasks) / float64(m.TotalTasks) * 100
		}
		if plan.TotalDays > 0 {
			elapsedDays := now.Sub(plan.CreatedAt).Hours() / 24
			m.ExpectedCompletion = clamp(elapsedDays/float64(plan.TotalDays)*100, 0, 100)
		}
		m.TimeSpentMinutes = completedMinutes(plan)
	}

	if len(outcomes) > 0 {
		var scoreSum float64
		for _, o := range outcomes {
			if o.Passed {
				m.PassedSubmissions++
			} else {
				m.FailedSubmissions++
			}
			scoreSum += o.Score
		}
		total := len(outcomes)
		m.SuccessRate = float64(m.PassedSubmissions) / float64(total) * 100
		m.AverageScore = scoreSum / float64(total)
		if m.CompletedTasks > 0 {
			m.AverageAttemptsPerTask = float64(total) / float64(m.CompletedTasks)
		}

		current, longest, last := streaks(outcomes, now)
		m.StreakDays = current
		m.LongestStreakDays = longest
		m.LastActivityDate = last
	}

	return m
}

// streaks projects submission timestamps onto local calendar days and
// returns the current streak (anchored at today or yesterday), the longest
// streak, and the most recent activity timestamp. The result depends only on
// the set of days, not on input order.
func streaks(outcomes []models.SubmissionOutcome, now time.Time) (current, longest int, last *time.Time) {
	if len(outcomes) == 0 {
		return 0, 0, nil
	}

	loc := now.Location()
	daySet := make(map[time.Time]struct{}, len(outcomes))
	var latest time.Time
	for _, o := range outcomes {
		daySet[localDay(o.SubmittedAt, loc)] = struct{}{}
		if o.SubmittedAt.After(latest) {
			latest = o.SubmittedAt
		}
	}

	days := make([]time.Time, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	// Longest run anywhere in the descending day set.
	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}

	// Current streak: longest prefix whose head is today or yesterday.
	today := localDay(now, loc)
	yesterday := today.AddDate(0, 0, -1)
	if days[0].Equal(today) || days[0].Equal(yesterday) {
		current = 1
		for i := 1; i < len(days); i++ {
			if !days[i-1].AddDate(0, 0, -1).Equal(days[i]) {
				break
			}
			current++
		}
	}

	return current, longest, &latest
}

// localDay truncates t to midnight of its calendar day in loc.
func localDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// completedMinutes sums the estimated minutes of completed tasks.
func completedMinutes(plan *models.LearningPlan) int {
	total := 0
	for _, module := range plan.Modules {
		for _, task := range module.Tasks {
			if task.Completed {
				total += task.EstimatedMinutes
			}
		}
	}
	return total
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
