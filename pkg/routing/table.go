// Package routing maps intents to agents: a static total Intent → AgentType
// table for deterministic lookup, and a keyword-scored classifier that infers
// an intent from free text. No LLM is involved; classification is small,
// auditable, offline, and deterministic.
package routing

import "github.com/learnloop/mentor/pkg/models"

// tableEntry binds one intent to the agent responsible for it.
type tableEntry struct {
	intent models.Intent
	agent  models.AgentType
}

// intentTable is the static routing table. Every routed intent appears
// exactly once; declaration order is the tie-break order for classification.
// adapt_difficulty routes to the curriculum planner. The exercise generator
// accepts that intent too, but only a workflow step addressing it by agent
// type reaches it there.
var intentTable = []tableEntry{
	// Profile
	{models.IntentAssessSkillLevel, models.AgentTypeProfile},
	{models.IntentUpdateGoals, models.AgentTypeProfile},
	{models.IntentSetConstraints, models.AgentTypeProfile},
	{models.IntentCreateProfile, models.AgentTypeProfile},
	{models.IntentUpdateProfile, models.AgentTypeProfile},
	{models.IntentGetProfile, models.AgentTypeProfile},
	{models.IntentParseTimeframe, models.AgentTypeProfile},

	// Curriculum planner
	{models.IntentCreateLearningPath, models.AgentTypeCurriculumPlanner},
	{models.IntentGenerateCurriculum, models.AgentTypeCurriculumPlanner},
	{models.IntentUpdateCurriculum, models.AgentTypeCurriculumPlanner},
	{models.IntentAdaptDifficulty, models.AgentTypeCurriculumPlanner},
	{models.IntentRequestNextTopic, models.AgentTypeCurriculumPlanner},
	{models.IntentGetCurriculumStatus, models.AgentTypeCurriculumPlanner},
	{models.IntentScheduleSpacedRepetition, models.AgentTypeCurriculumPlanner},
	{models.IntentAddMiniProject, models.AgentTypeCurriculumPlanner},
	{models.IntentAdjustPacing, models.AgentTypeCurriculumPlanner},

	// Exercise generator
	{models.IntentGenerateExercise, models.AgentTypeExerciseGenerator},
	{models.IntentCreateTestCases, models.AgentTypeExerciseGenerator},
	{models.IntentGenerateHints, models.AgentTypeExerciseGenerator},
	{models.IntentCreateStretchExercise, models.AgentTypeExerciseGenerator},
	{models.IntentCreateRecapExercise, models.AgentTypeExerciseGenerator},
	{models.IntentGenerateProjectExercise, models.AgentTypeExerciseGenerator},

	// Reviewer
	{models.IntentEvaluateSubmission, models.AgentTypeReviewer},
	{models.IntentRunTests, models.AgentTypeReviewer},
	{models.IntentGenerateFeedback, models.AgentTypeReviewer},
	{models.IntentCheckCodeQuality, models.AgentTypeReviewer},
	{models.IntentCompareSubmissions, models.AgentTypeReviewer},
	{models.IntentValidateSolution, models.AgentTypeReviewer},

	// Resources
	{models.IntentSearchResources, models.AgentTypeResources},
	{models.IntentGetResourceContent, models.AgentTypeResources},
	{models.IntentRecommendResources, models.AgentTypeResources},
	{models.IntentVerifyResourceQuality, models.AgentTypeResources},
	{models.IntentFindRelatedResources, models.AgentTypeResources},
	{models.IntentCurateLearningPathResources, models.AgentTypeResources},

	// Progress tracker
	{models.IntentRecordAttempt, models.AgentTypeProgressTracker},
	{models.IntentUpdateProgress, models.AgentTypeProgressTracker},
	{models.IntentGetProgress, models.AgentTypeProgressTracker},
	{models.IntentDetectAdaptationTriggers, models.AgentTypeProgressTracker},
	{models.IntentGetStreak, models.AgentTypeProgressTracker},
	{models.IntentGetMetrics, models.AgentTypeProgressTracker},
}

// intentIndex is the lookup view of intentTable, built once at init.
var intentIndex = func() map[models.Intent]models.AgentType {
	idx := make(map[models.Intent]models.AgentType, len(intentTable))
	for _, e := range intentTable {
		if _, dup := idx[e.intent]; dup {
			panic("routing: intent " + string(e.intent) + " mapped twice")
		}
		idx[e.intent] = e.agent
	}
	return idx
}()

// RouteIntent resolves a routed intent to its agent type.
func RouteIntent(intent models.Intent) (models.AgentType, bool) {
	agent, ok := intentIndex[intent]
	return agent, ok
}

// RouteIntentString resolves a raw string. The second return is the parsed
// intent; ok is false when the string is not a recognized intent tag.
func RouteIntentString(s string) (models.AgentType, models.Intent, bool) {
	intent := models.Intent(s)
	agent, ok := intentIndex[intent]
	return agent, intent, ok
}

// RoutedIntents returns every routed intent in declaration order.
func RoutedIntents() []models.Intent {
	out := make([]models.Intent, len(intentTable))
	for i, e := range intentTable {
		out[i] = e.intent
	}
	return out
}

// IntentsFor returns the intents routed to the given agent type, in
// declaration order.
func IntentsFor(agent models.AgentType) []models.Intent {
	var out []models.Intent
	for _, e := range intentTable {
		if e.agent == agent {
			out = append(out, e.intent)
		}
	}
	return out
}
