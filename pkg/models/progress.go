package models

import "time"

// ProgressMetrics is the derived aggregate over a user's active plan and
// submission history. Rates are percentages in [0,100].
type ProgressMetrics struct {
	CompletionRate         float64    `json:"completion_rate"`
	SuccessRate            float64    `json:"success_rate"`
	AverageScore           float64    `json:"average_score"`
	TotalTasks             int        `json:"total_tasks"`
	CompletedTasks         int        `json:"completed_tasks"`
	PassedSubmissions      int        `json:"passed_submissions"`
	FailedSubmissions      int        `json:"failed_submissions"`
	AverageAttemptsPerTask float64    `json:"average_attempts_per_task"`
	ExpectedCompletion     float64    `json:"expected_completion"`
	TimeSpentMinutes       int        `json:"time_spent_minutes"`
	StreakDays             int        `json:"streak_days"`
	LongestStreakDays      int        `json:"longest_streak_days"`
	LastActivityDate       *time.Time `json:"last_activity_date,omitempty"`
}

// AdaptationTrigger is a detected pattern in progress data recommending a
// curriculum adaptation. Confidence is in [0,1].
type AdaptationTrigger struct {
	Type              TriggerType    `json:"type"`
	Severity          Severity       `json:"severity"`
	Details           map[string]any `json:"details,omitempty"`
	RecommendedAction string         `json:"recommended_action"`
	Confidence        float64        `json:"confidence"`
}
