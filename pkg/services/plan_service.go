package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/learnloop/mentor/pkg/models"
)

// PlanService manages curriculum plans. A learner has at most one active
// plan; the database enforces this with a partial unique index and SavePlan
// archives the previous active plan in the same transaction that activates a
// new one.
type PlanService struct {
	db *sql.DB
}

// NewPlanService creates a new plan service backed by db.
func NewPlanService(db *sql.DB) *PlanService {
	return &PlanService{db: db}
}

const planColumns = `plan_id, user_id, title, topic, skill_level, status, total_days, modules, created_at, updated_at`

// SavePlan upserts a learning plan. Saving a plan as active archives any
// other active plan the learner has.
func (s *PlanService) SavePlan(httpCtx context.Context, plan *models.LearningPlan) error {
	if plan == nil {
		return NewValidationError("plan", "plan is required")
	}
	if plan.ID == "" {
		return NewValidationError("plan_id", "plan_id is required")
	}
	if plan.UserID == "" {
		return NewValidationError("user_id", "user_id is required")
	}
	if plan.Status == "" {
		plan.Status = models.PlanStatusActive
	}

	modules, err := marshalJSONColumn(plan.Modules, "[]")
	if err != nil {
		return fmt.Errorf("failed to marshal modules: %w", err)
	}

	// Use background context with timeout: plan writes are the planner's
	// only durable output and must survive request cancellation.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if plan.Status == models.PlanStatusActive {
		_, err = tx.ExecContext(ctx,
			`UPDATE learning_plans SET status = $1, updated_at = now()
			 WHERE user_id = $2 AND status = $3 AND plan_id <> $4`,
			string(models.PlanStatusArchived), plan.UserID, string(models.PlanStatusActive), plan.ID)
		if err != nil {
			return fmt.Errorf("failed to archive previous active plan: %w", err)
		}
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO learning_plans (plan_id, user_id, title, topic, skill_level, status, total_days, modules, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		 ON CONFLICT (plan_id) DO UPDATE SET
		   title       = EXCLUDED.title,
		   topic       = EXCLUDED.topic,
		   skill_level = EXCLUDED.skill_level,
		   status      = EXCLUDED.status,
		   total_days  = EXCLUDED.total_days,
		   modules     = EXCLUDED.modules,
		   updated_at  = now()
		 RETURNING created_at, updated_at`,
		plan.ID, plan.UserID, plan.Title, plan.Topic, string(plan.SkillLevel),
		string(plan.Status), plan.TotalDays, modules).
		Scan(&plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save plan: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetPlan retrieves a plan by id. Returns ErrNotFound if no such plan exists.
func (s *PlanService) GetPlan(ctx context.Context, planID string) (*models.LearningPlan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM learning_plans WHERE plan_id = $1`, planID)

	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return plan, nil
}

// GetActivePlan retrieves the learner's single active plan.
// Returns ErrNotFound when the learner has none.
func (s *PlanService) GetActivePlan(ctx context.Context, userID string) (*models.LearningPlan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+planColumns+` FROM learning_plans WHERE user_id = $1 AND status = $2`,
		userID, string(models.PlanStatusActive))

	plan, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get active plan: %w", err)
	}
	return plan, nil
}

// GetUserPlans lists all of a learner's plans, newest first.
func (s *PlanService) GetUserPlans(ctx context.Context, userID string) ([]*models.LearningPlan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+planColumns+` FROM learning_plans WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.LearningPlan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		plans = append(plans, plan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// UpdatePlanStatus transitions a plan to the given status. Activating a plan
// archives the learner's other active plan first.
func (s *PlanService) UpdatePlanStatus(httpCtx context.Context, planID string, status models.PlanStatus) error {
	if planID == "" {
		return NewValidationError("plan_id", "plan_id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if status == models.PlanStatusActive {
		_, err = tx.ExecContext(ctx,
			`UPDATE learning_plans SET status = $1, updated_at = now()
			 WHERE status = $2 AND plan_id <> $3
			   AND user_id = (SELECT user_id FROM learning_plans WHERE plan_id = $3)`,
			string(models.PlanStatusArchived), string(models.PlanStatusActive), planID)
		if err != nil {
			return fmt.Errorf("failed to archive previous active plan: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE learning_plans SET status = $1, updated_at = now() WHERE plan_id = $2`,
		string(status), planID)
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update plan status: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeletePlan removes a plan outright. Archiving via UpdatePlanStatus is the
// normal retirement path; deletion is for plans created in error. Submission
// history referencing the plan id is kept.
// Returns ErrNotFound if no such plan exists.
func (s *PlanService) DeletePlan(httpCtx context.Context, planID string) error {
	if planID == "" {
		return NewValidationError("plan_id", "plan_id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM learning_plans WHERE plan_id = $1`, planID)
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetTasksForDay returns the active plan's tasks scheduled for the given day
// offset. Returns ErrNotFound when the learner has no active plan.
func (s *PlanService) GetTasksForDay(ctx context.Context, userID string, dayOffset int) ([]models.PlanTask, error) {
	plan, err := s.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return plan.TasksForDay(dayOffset), nil
}

func scanPlan(row rowScanner) (*models.LearningPlan, error) {
	var p models.LearningPlan
	var modules []byte

	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Topic, &p.SkillLevel,
		&p.Status, &p.TotalDays, &modules, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(modules, &p.Modules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal modules: %w", err)
	}
	return &p, nil
}
