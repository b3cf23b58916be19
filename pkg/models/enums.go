package models

// AgentType identifies a specialist agent. Closed enum; the routing table
// and registry key on these values.
type AgentType string

const (
	AgentTypeProfile           AgentType = "profile"
	AgentTypeCurriculumPlanner AgentType = "curriculum_planner"
	AgentTypeExerciseGenerator AgentType = "exercise_generator"
	AgentTypeReviewer          AgentType = "reviewer"
	AgentTypeResources         AgentType = "resources"
	AgentTypeProgressTracker   AgentType = "progress_tracker"
	AgentTypeOrchestrator      AgentType = "orchestrator"
)

// AgentTypes returns all specialist agent types (orchestrator excluded).
func AgentTypes() []AgentType {
	return []AgentType{
		AgentTypeProfile,
		AgentTypeCurriculumPlanner,
		AgentTypeExerciseGenerator,
		AgentTypeReviewer,
		AgentTypeResources,
		AgentTypeProgressTracker,
	}
}

// Intent is a short symbolic tag naming a request kind. Closed enum.
type Intent string

// Profile intents.
const (
	IntentAssessSkillLevel Intent = "assess_skill_level"
	IntentUpdateGoals      Intent = "update_goals"
	IntentSetConstraints   Intent = "set_constraints"
	IntentCreateProfile    Intent = "create_profile"
	IntentUpdateProfile    Intent = "update_profile"
	IntentGetProfile       Intent = "get_profile"
	IntentParseTimeframe   Intent = "parse_timeframe"
)

// Curriculum planner intents.
const (
	IntentCreateLearningPath       Intent = "create_learning_path"
	IntentGenerateCurriculum       Intent = "generate_curriculum"
	IntentUpdateCurriculum         Intent = "update_curriculum"
	IntentAdaptDifficulty          Intent = "adapt_difficulty"
	IntentRequestNextTopic         Intent = "request_next_topic"
	IntentGetCurriculumStatus      Intent = "get_curriculum_status"
	IntentScheduleSpacedRepetition Intent = "schedule_spaced_repetition"
	IntentAddMiniProject           Intent = "add_mini_project"
	IntentAdjustPacing             Intent = "adjust_pacing"
)

// Exercise generator intents. IntentAdaptDifficulty is also accepted by the
// generator when a workflow step addresses it by agent type; the static
// routing table maps it to the curriculum planner.
const (
	IntentGenerateExercise        Intent = "generate_exercise"
	IntentCreateTestCases         Intent = "create_test_cases"
	IntentGenerateHints           Intent = "generate_hints"
	IntentCreateStretchExercise   Intent = "create_stretch_exercise"
	IntentCreateRecapExercise     Intent = "create_recap_exercise"
	IntentGenerateProjectExercise Intent = "generate_project_exercise"
)

// Reviewer intents.
const (
	IntentEvaluateSubmission Intent = "evaluate_submission"
	IntentRunTests           Intent = "run_tests"
	IntentGenerateFeedback   Intent = "generate_feedback"
	IntentCheckCodeQuality   Intent = "check_code_quality"
	IntentCompareSubmissions Intent = "compare_submissions"
	IntentValidateSolution   Intent = "validate_solution"
)

// Resources intents.
const (
	IntentSearchResources             Intent = "search_resources"
	IntentGetResourceContent          Intent = "get_resource_content"
	IntentRecommendResources          Intent = "recommend_resources"
	IntentVerifyResourceQuality       Intent = "verify_resource_quality"
	IntentFindRelatedResources        Intent = "find_related_resources"
	IntentCurateLearningPathResources Intent = "curate_learning_path_resources"
)

// Progress tracker intents.
const (
	IntentRecordAttempt            Intent = "record_attempt"
	IntentUpdateProgress           Intent = "update_progress"
	IntentGetProgress              Intent = "get_progress"
	IntentDetectAdaptationTriggers Intent = "detect_adaptation_triggers"
	IntentGetStreak                Intent = "get_streak"
	IntentGetMetrics               Intent = "get_metrics"
)

// Workflow-control intents, accepted only by the orchestrator. They keep
// envelope validation uniform: a request that names only a workflow or only a
// free-text message still carries an intent the orchestrator supports.
const (
	IntentExecuteWorkflow Intent = "execute_workflow"
	IntentClassifyMessage Intent = "classify_message"
)

// AllIntents returns every specialist intent (control intents excluded).
func AllIntents() []Intent {
	return []Intent{
		IntentAssessSkillLevel, IntentUpdateGoals, IntentSetConstraints,
		IntentCreateProfile, IntentUpdateProfile, IntentGetProfile, IntentParseTimeframe,

		IntentCreateLearningPath, IntentGenerateCurriculum, IntentUpdateCurriculum,
		IntentAdaptDifficulty, IntentRequestNextTopic, IntentGetCurriculumStatus,
		IntentScheduleSpacedRepetition, IntentAddMiniProject, IntentAdjustPacing,

		IntentGenerateExercise, IntentCreateTestCases, IntentGenerateHints,
		IntentCreateStretchExercise, IntentCreateRecapExercise, IntentGenerateProjectExercise,

		IntentEvaluateSubmission, IntentRunTests, IntentGenerateFeedback,
		IntentCheckCodeQuality, IntentCompareSubmissions, IntentValidateSolution,

		IntentSearchResources, IntentGetResourceContent, IntentRecommendResources,
		IntentVerifyResourceQuality, IntentFindRelatedResources, IntentCurateLearningPathResources,

		IntentRecordAttempt, IntentUpdateProgress, IntentGetProgress,
		IntentDetectAdaptationTriggers, IntentGetStreak, IntentGetMetrics,
	}
}

// SkillLevel is the assessed proficiency of a learner.
type SkillLevel string

const (
	SkillBeginner     SkillLevel = "beginner"
	SkillIntermediate SkillLevel = "intermediate"
	SkillAdvanced     SkillLevel = "advanced"
	SkillExpert       SkillLevel = "expert"
)

// ValidSkillLevel reports whether s is a recognized skill level.
func ValidSkillLevel(s SkillLevel) bool {
	switch s {
	case SkillBeginner, SkillIntermediate, SkillAdvanced, SkillExpert:
		return true
	}
	return false
}

// ErrorCode is the machine-stable error kind carried on failed Results.
type ErrorCode string

const (
	ErrCodeValidation       ErrorCode = "validation_error"
	ErrCodeTimeout          ErrorCode = "timeout"
	ErrCodeCircuitOpen      ErrorCode = "circuit_open"
	ErrCodeAgentUnavailable ErrorCode = "agent_unavailable"
	ErrCodeNoAgentForIntent ErrorCode = "no_agent_for_intent"
	ErrCodeUnknownWorkflow  ErrorCode = "unknown_workflow"
	ErrCodeProcessing       ErrorCode = "processing_error"
)

// Severity grades an adaptation trigger.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the prioritization rank: high sorts before medium before low.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}

// TriggerType names a detected adaptation pattern.
type TriggerType string

const (
	TriggerConsecutiveFailures TriggerType = "consecutive_failures"
	TriggerQuickSuccess        TriggerType = "quick_success"
	TriggerLowSuccessRate      TriggerType = "low_success_rate"
	TriggerHighSuccessRate     TriggerType = "high_success_rate"
	TriggerSlowProgress        TriggerType = "slow_progress"
)

// SessionStatus is the lifecycle state of a queued coaching session.
type SessionStatus string

const (
	SessionStatusPending    SessionStatus = "pending"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusFailed     SessionStatus = "failed"
	SessionStatusTimedOut   SessionStatus = "timed_out"
	SessionStatusCancelled  SessionStatus = "cancelled"
)

// Terminal reports whether the status is a terminal state.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusFailed, SessionStatusTimedOut, SessionStatusCancelled:
		return true
	}
	return false
}

// ValidSessionStatus reports whether s is a recognized session status.
func ValidSessionStatus(s SessionStatus) bool {
	switch s {
	case SessionStatusPending, SessionStatusInProgress, SessionStatusCompleted,
		SessionStatusFailed, SessionStatusTimedOut, SessionStatusCancelled:
		return true
	}
	return false
}

// PlanStatus is the lifecycle state of a learning plan.
type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusPaused    PlanStatus = "paused"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusArchived  PlanStatus = "archived"
)
