package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/learnloop/mentor/pkg/models"
)

// SubmissionService manages code submissions and their evaluations. The
// flattened outcome queries feed the adaptation engine, which only cares
// about pass/fail, score, and attempt ordering.
type SubmissionService struct {
	db *sql.DB
}

// NewSubmissionService creates a new submission service backed by db.
func NewSubmissionService(db *sql.DB) *SubmissionService {
	return &SubmissionService{db: db}
}

const submissionColumns = `submission_id, user_id, task_id, plan_id, language, code, attempt_number, submitted_at`

const evaluationColumns = `evaluation_id, submission_id, user_id, task_id, passed, score, tests_passed, tests_total, feedback, evaluated_at`

// SaveSubmission persists a learner's code submission.
// Returns ErrAlreadyExists if the submission id is already taken.
func (s *SubmissionService) SaveSubmission(httpCtx context.Context, sub *models.Submission) error {
	if sub == nil {
		return NewValidationError("submission", "submission is required")
	}
	if sub.ID == "" {
		return NewValidationError("submission_id", "submission_id is required")
	}
	if sub.UserID == "" {
		return NewValidationError("user_id", "user_id is required")
	}
	if sub.TaskID == "" {
		return NewValidationError("task_id", "task_id is required")
	}
	if sub.AttemptNumber < 1 {
		sub.AttemptNumber = 1
	}
	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}

	// Use background context with timeout: submission history is the input
	// to every later adaptation decision and must not be lost to a
	// cancelled request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (submission_id, user_id, task_id, plan_id, language, code, attempt_number, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sub.ID, sub.UserID, sub.TaskID, sub.PlanID, sub.Language, sub.Code, sub.AttemptNumber, sub.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to save submission: %w", err)
	}
	return nil
}

// SaveEvaluation persists the evaluation of a submission. Each submission
// has at most one evaluation; Returns ErrAlreadyExists on a second write.
func (s *SubmissionService) SaveEvaluation(httpCtx context.Context, eval *models.Evaluation) error {
	if eval == nil {
		return NewValidationError("evaluation", "evaluation is required")
	}
	if eval.ID == "" {
		return NewValidationError("evaluation_id", "evaluation_id is required")
	}
	if eval.SubmissionID == "" {
		return NewValidationError("submission_id", "submission_id is required")
	}
	if eval.EvaluatedAt.IsZero() {
		eval.EvaluatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (evaluation_id, submission_id, user_id, task_id, passed, score, tests_passed, tests_total, feedback, evaluated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		eval.ID, eval.SubmissionID, eval.UserID, eval.TaskID, eval.Passed, eval.Score,
		eval.TestsPassed, eval.TestsTotal, eval.Feedback, eval.EvaluatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// GetSubmission retrieves a submission by id.
// Returns ErrNotFound if no such submission exists.
func (s *SubmissionService) GetSubmission(ctx context.Context, submissionID string) (*models.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE submission_id = $1`, submissionID)

	var sub models.Submission
	err := row.Scan(&sub.ID, &sub.UserID, &sub.TaskID, &sub.PlanID,
		&sub.Language, &sub.Code, &sub.AttemptNumber, &sub.SubmittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &sub, nil
}

// GetTaskSubmissions lists a learner's submissions for one task, oldest
// first so attempt order is preserved.
func (s *SubmissionService) GetTaskSubmissions(ctx context.Context, userID, taskID string) ([]*models.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE user_id = $1 AND task_id = $2
		 ORDER BY submitted_at ASC, attempt_number ASC`,
		userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// GetUserSubmissions lists all of a learner's submissions, newest first.
func (s *SubmissionService) GetUserSubmissions(ctx context.Context, userID string) ([]*models.Submission, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE user_id = $1
		 ORDER BY submitted_at DESC, attempt_number DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user submissions: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// GetSubmissionsByDateRange lists a learner's submissions inside [from, to],
// oldest first. Both bounds are inclusive.
func (s *SubmissionService) GetSubmissionsByDateRange(ctx context.Context, userID string, from, to time.Time) ([]*models.Submission, error) {
	if to.Before(from) {
		return nil, NewValidationError("date_range", "to must not precede from")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+submissionColumns+` FROM submissions
		 WHERE user_id = $1 AND submitted_at >= $2 AND submitted_at <= $3
		 ORDER BY submitted_at ASC, attempt_number ASC`,
		userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions by date range: %w", err)
	}
	defer rows.Close()

	return collectSubmissions(rows)
}

// GetLatestEvaluation returns the most recent evaluation of a learner's
// attempts at one task. Returns ErrNotFound when the task has never been
// evaluated.
func (s *SubmissionService) GetLatestEvaluation(ctx context.Context, userID, taskID string) (*models.Evaluation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+evaluationColumns+` FROM evaluations
		 WHERE user_id = $1 AND task_id = $2
		 ORDER BY evaluated_at DESC LIMIT 1`,
		userID, taskID)

	var eval models.Evaluation
	err := row.Scan(&eval.ID, &eval.SubmissionID, &eval.UserID, &eval.TaskID, &eval.Passed,
		&eval.Score, &eval.TestsPassed, &eval.TestsTotal, &eval.Feedback, &eval.EvaluatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest evaluation: %w", err)
	}
	return &eval, nil
}

// GetUserEvaluations lists a learner's evaluations, newest first. A non-nil
// passed filters to passing or failing evaluations only.
func (s *SubmissionService) GetUserEvaluations(ctx context.Context, userID string, passed *bool) ([]*models.Evaluation, error) {
	query := `SELECT ` + evaluationColumns + ` FROM evaluations WHERE user_id = $1`
	args := []any{userID}
	if passed != nil {
		query += ` AND passed = $2`
		args = append(args, *passed)
	}
	query += ` ORDER BY evaluated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list user evaluations: %w", err)
	}
	defer rows.Close()

	var evals []*models.Evaluation
	for rows.Next() {
		var eval models.Evaluation
		err := rows.Scan(&eval.ID, &eval.SubmissionID, &eval.UserID, &eval.TaskID, &eval.Passed,
			&eval.Score, &eval.TestsPassed, &eval.TestsTotal, &eval.Feedback, &eval.EvaluatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		evals = append(evals, &eval)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read evaluations: %w", err)
	}
	return evals, nil
}

// GetTaskOutcomes returns the flattened submission+evaluation rows for one
// task, ordered by submission time ascending. Submissions not yet evaluated
// appear with passed=false and score=0.
func (s *SubmissionService) GetTaskOutcomes(ctx context.Context, userID, taskID string) ([]models.SubmissionOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		outcomeQuery+` WHERE s.user_id = $1 AND s.task_id = $2
		 ORDER BY s.submitted_at ASC, s.attempt_number ASC`,
		userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

// GetUserOutcomes returns the flattened submission+evaluation rows across
// all of a learner's tasks, ordered by submission time ascending.
func (s *SubmissionService) GetUserOutcomes(ctx context.Context, userID string) ([]models.SubmissionOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		outcomeQuery+` WHERE s.user_id = $1
		 ORDER BY s.submitted_at ASC, s.attempt_number ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user outcomes: %w", err)
	}
	defer rows.Close()

	return collectOutcomes(rows)
}

// GetUserProgressSummary aggregates a learner's outcome history into the
// totals the progress endpoints report.
func (s *SubmissionService) GetUserProgressSummary(ctx context.Context, userID string) (*models.ProgressSummary, error) {
	outcomes, err := s.GetUserOutcomes(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &models.ProgressSummary{
		UserID:   userID,
		Outcomes: outcomes,
	}
	var scoreSum float64
	for _, o := range outcomes {
		summary.TotalSubmissions++
		if o.Passed {
			summary.PassedCount++
		} else {
			summary.FailedCount++
		}
		scoreSum += o.Score
	}
	if summary.TotalSubmissions > 0 {
		summary.AverageScore = scoreSum / float64(summary.TotalSubmissions)
	}
	return summary, nil
}

// outcomeQuery flattens a submission and its (optional) evaluation into one
// row. LEFT JOIN keeps unevaluated submissions visible to the adaptation
// engine as failures-so-far.
const outcomeQuery = `
	SELECT s.task_id, COALESCE(e.passed, false), COALESCE(e.score, 0),
	       s.attempt_number, s.submitted_at
	FROM submissions s
	LEFT JOIN evaluations e ON e.submission_id = s.submission_id`

func collectOutcomes(rows *sql.Rows) ([]models.SubmissionOutcome, error) {
	var outcomes []models.SubmissionOutcome
	for rows.Next() {
		var o models.SubmissionOutcome
		if err := rows.Scan(&o.TaskID, &o.Passed, &o.Score, &o.AttemptNumber, &o.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outcomes: %w", err)
	}
	return outcomes, nil
}

func collectSubmissions(rows *sql.Rows) ([]*models.Submission, error) {
	var subs []*models.Submission
	for rows.Next() {
		var sub models.Submission
		err := rows.Scan(&sub.ID, &sub.UserID, &sub.TaskID, &sub.PlanID,
			&sub.Language, &sub.Code, &sub.AttemptNumber, &sub.SubmittedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, &sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read submissions: %w", err)
	}
	return subs, nil
}
