package orchestrator

import (
	"maps"

	"github.com/learnloop/mentor/pkg/models"
)

// Workflow names in the fixed catalog.
const (
	WorkflowNewLearnerOnboarding = "new_learner_onboarding"
	WorkflowExerciseSubmission   = "exercise_submission"
	WorkflowResourceDiscovery    = "resource_discovery"
)

// Catalog returns the built-in workflow definitions. The catalog is fixed at
// compile time; configuration can disable entries but never add them.
func Catalog() []*Workflow {
	return []*Workflow{
		newLearnerOnboarding(),
		exerciseSubmission(),
		resourceDiscovery(),
	}
}

func newLearnerOnboarding() *Workflow {
	return &Workflow{
		Name:        WorkflowNewLearnerOnboarding,
		Description: "Assess a new learner and produce their first learning plan.",
		Steps: []Step{
			{AgentType: models.AgentTypeProfile, Intent: models.IntentAssessSkillLevel},
			{AgentType: models.AgentTypeProfile, Intent: models.IntentUpdateGoals},
			{AgentType: models.AgentTypeProfile, Intent: models.IntentSetConstraints},
			{
				AgentType: models.AgentTypeCurriculumPlanner,
				Intent:    models.IntentCreateLearningPath,
				Transform: onboardingPlanPayload,
			},
		},
	}
}

func exerciseSubmission() *Workflow {
	return &Workflow{
		Name:        WorkflowExerciseSubmission,
		Description: "Evaluate a submission, record progress, and adapt difficulty when warranted.",
		Steps: []Step{
			{AgentType: models.AgentTypeReviewer, Intent: models.IntentEvaluateSubmission},
			{
				AgentType: models.AgentTypeProgressTracker,
				Intent:    models.IntentUpdateProgress,
				Transform: progressUpdatePayload,
			},
			{
				AgentType: models.AgentTypeProgressTracker,
				Intent:    models.IntentDetectAdaptationTriggers,
				Transform: triggerDetectionPayload,
			},
			{
				AgentType: models.AgentTypeCurriculumPlanner,
				Intent:    models.IntentAdaptDifficulty,
				Condition: adaptationNeeded,
				Transform: adaptDifficultyPayload,
				OnFailure: FailContinue,
			},
		},
	}
}

func resourceDiscovery() *Workflow {
	return &Workflow{
		Name:        WorkflowResourceDiscovery,
		Description: "Find, vet, and recommend learning resources for a topic.",
		Steps: []Step{
			{AgentType: models.AgentTypeResources, Intent: models.IntentSearchResources},
			{
				AgentType: models.AgentTypeResources,
				Intent:    models.IntentVerifyResourceQuality,
				Transform: verifyResourcesPayload,
			},
			{
				AgentType: models.AgentTypeResources,
				Intent:    models.IntentRecommendResources,
				Transform: recommendResourcesPayload,
			},
		},
	}
}

// onboardingPlanPayload feeds the planner from the three profile steps:
// assessed level, goals, and constraints, with the session objective as the
// plan topic.
func onboardingPlanPayload(cctx *models.Context, prior []StepOutput) *models.Payload {
	data := carry(prior, models.IntentAssessSkillLevel, "skill_level")
	maps.Copy(data, carry(prior, models.IntentUpdateGoals, "goals"))
	maps.Copy(data, carry(prior, models.IntentSetConstraints, "constraints"))
	if cctx.CurrentObjective != "" {
		data["topic"] = cctx.CurrentObjective
	}
	return &models.Payload{Data: data}
}

// progressUpdatePayload records the reviewer's verdict against the task.
func progressUpdatePayload(cctx *models.Context, prior []StepOutput) *models.Payload {
	return &models.Payload{
		Data: carry(prior, models.IntentEvaluateSubmission,
			"task_id", "passed", "score", "attempt_number", "feedback"),
	}
}

func triggerDetectionPayload(cctx *models.Context, prior []StepOutput) *models.Payload {
	return &models.Payload{Data: carry(prior, models.IntentEvaluateSubmission, "task_id")}
}

// adaptationNeeded gates the adapt step on the detector's verdict.
func adaptationNeeded(cctx *models.Context, prior []StepOutput) bool {
	needed, _ := stepValue(prior, models.IntentDetectAdaptationTriggers, "needs_adaptation").(bool)
	return needed
}

// adaptDifficultyPayload hands the planner the top detected trigger.
func adaptDifficultyPayload(cctx *models.Context, prior []StepOutput) *models.Payload {
	data := carry(prior, models.IntentEvaluateSubmission, "task_id")
	triggers, _ := stepValue(prior, models.IntentDetectAdaptationTriggers, "triggers").([]models.AdaptationTrigger)
	if len(triggers) > 0 {
		top := triggers[0]
		data["recommended_action"] = top.RecommendedAction
		data["trigger_type"] = string(top.Type)
		data["severity"] = string(top.Severity)
		data["confidence"] = top.Confidence
		if top.Details != nil {
			data["trigger_details"] = top.Details
		}
	}
	return &models.Payload{Data: data}
}

func verifyResourcesPayload(cctx *models.Context, prior []StepOutput) *models.Payload {
	return &models.Payload{Data: carry(prior, models.IntentSearchResources, "resources", "query")}
}

func recommendResourcesPayload(cctx *models.Context, prior []StepOutput) *models.Payload {
	return &models.Payload{Data: carry(prior, models.IntentVerifyResourceQuality, "resources", "query")}
}
