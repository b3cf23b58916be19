// Package specialist implements the six domain agents behind the
// orchestrator: profile, curriculum planner, exercise generator, reviewer,
// resources, and progress tracker. Each satisfies agent.Agent and is
// registered at startup; all external needs are expressed as the narrow
// ports below so the agents can run against Postgres-backed services in
// production and in-memory fakes in tests.
package specialist

import (
	"context"
	"errors"

	"github.com/learnloop/mentor/pkg/models"
)

// ErrUnknownResource is returned (possibly wrapped) by DocLibrary
// implementations when a resource id is not in the catalog. Agents use it to
// separate a bad id from a broken library.
var ErrUnknownResource = errors.New("unknown resource")

// UserStore is the profile agent's view of learner persistence.
// UpdateUserProfile has upsert semantics: onboarding writes goals and
// constraints before the learner row necessarily exists.
type UserStore interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	CreateUser(ctx context.Context, req models.CreateUserRequest) (*models.UserProfile, error)
	UpdateUserProfile(ctx context.Context, profile *models.UserProfile) (*models.UserProfile, error)
}

// PlanStore is the planner's and tracker's view of learning-plan
// persistence. SavePlan upserts; activating a plan deactivates the user's
// previous active plan.
type PlanStore interface {
	SavePlan(ctx context.Context, plan *models.LearningPlan) error
	GetPlan(ctx context.Context, planID string) (*models.LearningPlan, error)
	GetActivePlan(ctx context.Context, userID string) (*models.LearningPlan, error)
	UpdatePlanStatus(ctx context.Context, planID string, status models.PlanStatus) error
	GetTasksForDay(ctx context.Context, userID string, dayOffset int) ([]models.PlanTask, error)
}

// SubmissionStore is the reviewer's and tracker's view of submission
// history. Outcome queries return the flattened submission+evaluation rows
// the adaptation engine consumes, ordered by submission time ascending.
type SubmissionStore interface {
	SaveSubmission(ctx context.Context, sub *models.Submission) error
	SaveEvaluation(ctx context.Context, eval *models.Evaluation) error
	GetTaskOutcomes(ctx context.Context, userID, taskID string) ([]models.SubmissionOutcome, error)
	GetUserOutcomes(ctx context.Context, userID string) ([]models.SubmissionOutcome, error)
}

// CodeRunner executes untrusted learner code in the sandbox.
type CodeRunner interface {
	ExecuteCode(ctx context.Context, req models.ExecutionRequest) (*models.ExecutionResult, error)
}

// DocLibrary is the resources agent's view of the documentation service.
type DocLibrary interface {
	SearchDocumentation(ctx context.Context, query string, limit int) ([]models.Resource, error)
	GetResourceContent(ctx context.Context, resourceID string) (string, error)
	VerifyResourceQuality(ctx context.Context, resourceID string) (*models.QualityReport, error)
	GetRelatedResources(ctx context.Context, resourceID string, limit int) ([]models.Resource, error)
}

// ExerciseLLM generates exercises and hints from a language model. Every
// method is fallible by contract; the exercise generator must degrade to its
// template catalog on any error.
type ExerciseLLM interface {
	GenerateExercise(ctx context.Context, topic, language, difficulty string, level models.SkillLevel) (*models.Exercise, error)
	GenerateHints(ctx context.Context, topic, description string, count int) ([]string, error)
}
