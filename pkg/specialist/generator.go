package specialist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/progress"
)

// Generator produces practice exercises, test cases, and hints. An external
// LLM is used when configured; the built-in template catalog backs every
// operation, both as the in-process degrade path when the LLM errors and as
// the envelope fallback when a call times out or the circuit is open.
type Generator struct {
	llm    ExerciseLLM
	logger *slog.Logger
}

// NewGenerator creates the exercise generator agent. llm may be nil, in
// which case everything is served from the template catalog.
func NewGenerator(llm ExerciseLLM) *Generator {
	return &Generator{
		llm:    llm,
		logger: slog.With("component", "generator_agent"),
	}
}

// Type implements agent.Agent.
func (g *Generator) Type() models.AgentType { return models.AgentTypeExerciseGenerator }

// SupportedIntents implements agent.Agent. adapt_difficulty is shared with
// the planner; the static routing table sends unaddressed requests there,
// so the generator only sees it from direct or workflow-addressed calls.
func (g *Generator) SupportedIntents() []models.Intent {
	return []models.Intent{
		models.IntentGenerateExercise,
		models.IntentCreateTestCases,
		models.IntentGenerateHints,
		models.IntentAdaptDifficulty,
		models.IntentCreateStretchExercise,
		models.IntentCreateRecapExercise,
		models.IntentGenerateProjectExercise,
	}
}

// Process implements agent.Agent.
func (g *Generator) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	if result := validateGenerationParams(payload); result != nil {
		return result, nil
	}

	switch payload.Intent {
	case models.IntentGenerateExercise:
		return g.produce(ctx, cctx, payload, "", "", "")
	case models.IntentCreateStretchExercise:
		return g.createStretchExercise(ctx, cctx, payload)
	case models.IntentCreateRecapExercise:
		return g.produce(ctx, cctx, payload, "easy", "Recap: ",
			" This revisits earlier ground; focus on consolidating the pattern.")
	case models.IntentGenerateProjectExercise:
		return g.generateProjectExercise(cctx, payload)
	case models.IntentAdaptDifficulty:
		return g.adaptDifficulty(ctx, cctx, payload)
	case models.IntentCreateTestCases:
		return g.createTestCases(cctx, payload)
	case models.IntentGenerateHints:
		return g.generateHints(ctx, cctx, payload)
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("generator agent does not handle intent %s", payload.Intent)), nil
	}
}

// validateGenerationParams rejects explicitly malformed inputs. Absent
// fields are fine; generationParams fills them from context and defaults.
func validateGenerationParams(payload *models.Payload) *models.Result {
	if lvl := payload.String("skill_level"); lvl != "" && !models.ValidSkillLevel(models.SkillLevel(lvl)) {
		return models.ErrorResult(models.ErrCodeValidation, fmt.Sprintf("unknown skill_level %q", lvl))
	}
	switch d := payload.String("difficulty"); d {
	case "", "easy", "medium", "hard":
	default:
		return models.ErrorResult(models.ErrCodeValidation, fmt.Sprintf("unknown difficulty %q", d))
	}
	return nil
}

// generationParams resolves topic, language, difficulty, and level from the
// payload with the request context as fallback. It never fails: the
// generator doubles as the degraded path, so it must always produce
// something sensible.
func generationParams(cctx *models.Context, payload *models.Payload) (topic, language, difficulty string, level models.SkillLevel) {
	topic = payload.String("topic")
	if topic == "" {
		topic = cctx.CurrentObjective
	}
	if topic == "" && len(cctx.LearningGoals) > 0 {
		topic = cctx.LearningGoals[0]
	}

	language = payload.String("language")
	if language == "" {
		if s, ok := cctx.Preferences["language"].(string); ok {
			language = s
		}
	}
	if language == "" {
		language = "python"
	}

	level = models.SkillLevel(payload.String("skill_level"))
	if level == "" {
		level = cctx.SkillLevel
	}
	if !models.ValidSkillLevel(level) {
		level = models.SkillBeginner
	}

	difficulty = payload.String("difficulty")
	if difficulty == "" {
		difficulty = difficultyForLevel(level)
	}
	return topic, language, difficulty, level
}

// produce is the shared generation path: try the LLM when configured, fall
// back to the template catalog on any error.
func (g *Generator) produce(ctx context.Context, cctx *models.Context, payload *models.Payload, overrideDifficulty, titlePrefix, addendum string) (*models.Result, error) {
	topic, language, difficulty, level := generationParams(cctx, payload)
	if overrideDifficulty != "" {
		difficulty = overrideDifficulty
	}

	var ex *models.Exercise
	degraded := false
	if g.llm != nil {
		llmEx, err := g.llm.GenerateExercise(ctx, topic, language, difficulty, level)
		if err == nil && llmEx != nil {
			ex = llmEx
			ex.Source = "llm"
			if ex.ID == "" {
				ex.ID = uuid.NewString()
			}
		} else {
			degraded = true
			g.logger.Warn("Exercise LLM unavailable, serving template",
				"correlation_id", cctx.CorrelationID, "topic", topic, "error", err)
		}
	}
	if ex == nil {
		ex = buildExercise(topic, language, difficulty, level)
	}
	if titlePrefix != "" {
		ex.Title = titlePrefix + ex.Title
	}
	if addendum != "" {
		ex.Description += addendum
	}

	result := models.SuccessResult(map[string]any{
		"exercise": ex,
		"source":   ex.Source,
	}).WithNextActions("evaluate_submission")
	if degraded {
		result.WithMetadata("llm_fallback", true)
	}
	return result, nil
}

func (g *Generator) createStretchExercise(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	_, _, difficulty, _ := generationParams(cctx, payload)
	return g.produce(ctx, cctx, payload, harder(difficulty), "Stretch: ",
		" Push past the standard requirements; aim for the tightest solution you can.")
}

func (g *Generator) generateProjectExercise(cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	topic, language, _, level := generationParams(cctx, payload)
	ex := buildProjectExercise(topic, language, level)
	return models.SuccessResult(map[string]any{
		"exercise": ex,
		"source":   ex.Source,
	}).WithNextActions("evaluate_submission"), nil
}

// adaptDifficulty regenerates an exercise one difficulty notch away, driven
// either by an explicit difficulty or by the adaptation engine's
// recommended action.
func (g *Generator) adaptDifficulty(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	_, _, current, _ := generationParams(cctx, payload)

	next := current
	action := payload.String("recommended_action")
	switch action {
	case progress.ActionReduceDifficulty, progress.ActionReduceDifficultyAndRecap:
		next = easier(current)
	case progress.ActionIncreaseDifficulty:
		next = harder(current)
	case "":
		if payload.String("difficulty") == "" {
			return models.ErrorResult(models.ErrCodeValidation,
				"difficulty or recommended_action is required"), nil
		}
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("recommended_action %q does not map to a difficulty change", action)), nil
	}

	result, err := g.produce(ctx, cctx, payload, next, "", "")
	if err == nil && result.Success {
		result.Data["difficulty"] = next
		result.Data["previous_difficulty"] = current
		if action != "" {
			result.Data["action"] = action
		}
	}
	return result, err
}

func (g *Generator) createTestCases(cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	topic, _, _, _ := generationParams(cctx, payload)
	tpl := templateFor(topic)
	return models.SuccessResult(map[string]any{
		"topic":      tpl.topic,
		"test_cases": tpl.tests,
		"count":      len(tpl.tests),
	}), nil
}

func (g *Generator) generateHints(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	topic, _, _, _ := generationParams(cctx, payload)
	count, _ := payload.Int("count")
	if count <= 0 {
		count = 3
	}

	if g.llm != nil {
		hints, err := g.llm.GenerateHints(ctx, topic, payload.String("description"), count)
		if err == nil && len(hints) > 0 {
			return models.SuccessResult(map[string]any{
				"hints":  hints,
				"source": "llm",
			}), nil
		}
		g.logger.Warn("Hint LLM unavailable, serving template hints",
			"correlation_id", cctx.CorrelationID, "topic", topic, "error", err)
	}

	hints := templateFor(topic).hints
	if count < len(hints) {
		hints = hints[:count]
	}
	return models.SuccessResult(map[string]any{
		"hints":  hints,
		"source": "template",
	}), nil
}

// FallbackOnTimeout serves the template catalog when generation times out.
// Template construction is pure and cannot block.
func (g *Generator) FallbackOnTimeout(cctx *models.Context, payload *models.Payload) *models.Result {
	return g.templateFallback(cctx, payload)
}

// FallbackOnError serves the template catalog when generation fails or the
// circuit is open.
func (g *Generator) FallbackOnError(cctx *models.Context, payload *models.Payload, _ error) *models.Result {
	return g.templateFallback(cctx, payload)
}

func (g *Generator) templateFallback(cctx *models.Context, payload *models.Payload) *models.Result {
	topic, language, difficulty, level := generationParams(cctx, payload)

	exercise := func(ex *models.Exercise) *models.Result {
		return models.SuccessResult(map[string]any{
			"exercise": ex,
			"source":   "template",
		})
	}

	switch payload.Intent {
	case models.IntentGenerateExercise, models.IntentAdaptDifficulty:
		return exercise(buildExercise(topic, language, difficulty, level))
	case models.IntentCreateStretchExercise:
		ex := buildExercise(topic, language, harder(difficulty), level)
		ex.Title = "Stretch: " + ex.Title
		return exercise(ex)
	case models.IntentCreateRecapExercise:
		ex := buildExercise(topic, language, "easy", level)
		ex.Title = "Recap: " + ex.Title
		return exercise(ex)
	case models.IntentGenerateProjectExercise:
		return exercise(buildProjectExercise(topic, language, level))
	case models.IntentCreateTestCases:
		tpl := templateFor(topic)
		return models.SuccessResult(map[string]any{
			"topic":      tpl.topic,
			"test_cases": tpl.tests,
			"count":      len(tpl.tests),
		})
	case models.IntentGenerateHints:
		return models.SuccessResult(map[string]any{
			"hints":  templateFor(topic).hints,
			"source": "template",
		})
	default:
		return nil
	}
}
