package models

import "time"

// Submission is one attempt at a task.
type Submission struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	TaskID        string    `json:"task_id"`
	PlanID        string    `json:"plan_id,omitempty"`
	Language      string    `json:"language,omitempty"`
	Code          string    `json:"code,omitempty"`
	AttemptNumber int       `json:"attempt_number"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// Evaluation is the reviewer's verdict on a submission.
type Evaluation struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submission_id"`
	UserID       string    `json:"user_id"`
	TaskID       string    `json:"task_id"`
	Passed       bool      `json:"passed"`
	Score        float64   `json:"score"`
	TestsPassed  int       `json:"tests_passed"`
	TestsTotal   int       `json:"tests_total"`
	Feedback     string    `json:"feedback,omitempty"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// SubmissionOutcome is the flattened submission+evaluation view the
// adaptation engine consumes.
type SubmissionOutcome struct {
	TaskID        string    `json:"task_id"`
	Passed        bool      `json:"passed"`
	Score         float64   `json:"score"`
	AttemptNumber int       `json:"attempt_number"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// ProgressSummary is the repository's per-user rollup of submission history.
type ProgressSummary struct {
	UserID           string              `json:"user_id"`
	TotalSubmissions int                 `json:"total_submissions"`
	PassedCount      int                 `json:"passed_count"`
	FailedCount      int                 `json:"failed_count"`
	AverageScore     float64             `json:"average_score"`
	Outcomes         []SubmissionOutcome `json:"outcomes,omitempty"`
}
