package specialist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"regexp"
	"strconv"
	"strings"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/services"
)

// DiagnosticQuestion is one entry of the skill assessment bank. The correct
// answer never leaves the server.
type DiagnosticQuestion struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Weight  int      `json:"weight"`
	Answer  string   `json:"-"`
}

// questionBank is the fixed diagnostic set. Weights grade question
// difficulty: 1 fundamentals, 2 core concepts, 3 advanced.
var questionBank = []DiagnosticQuestion{
	{ID: "q1", Prompt: "What does a variable store?", Options: []string{"a value", "a file", "a keyboard", "a website"}, Weight: 1, Answer: "a value"},
	{ID: "q2", Prompt: "Which construct repeats a block of code?", Options: []string{"a loop", "a comment", "a constant", "an import"}, Weight: 1, Answer: "a loop"},
	{ID: "q3", Prompt: "What does a return statement do?", Options: []string{"hands a value back to the caller", "prints to the screen", "deletes a variable", "restarts the program"}, Weight: 1, Answer: "hands a value back to the caller"},
	{ID: "q4", Prompt: "What is the time complexity of binary search?", Options: []string{"O(log n)", "O(n)", "O(n^2)", "O(1)"}, Weight: 2, Answer: "O(log n)"},
	{ID: "q5", Prompt: "Which data structure is last-in, first-out?", Options: []string{"a stack", "a queue", "a tree", "a graph"}, Weight: 2, Answer: "a stack"},
	{ID: "q6", Prompt: "What does a hash map give you?", Options: []string{"key-value lookup", "sorted iteration", "compile-time checks", "thread safety"}, Weight: 2, Answer: "key-value lookup"},
	{ID: "q7", Prompt: "Which technique avoids recomputing overlapping subproblems?", Options: []string{"dynamic programming", "bubble sort", "linear scan", "busy waiting"}, Weight: 3, Answer: "dynamic programming"},
	{ID: "q8", Prompt: "What does a database transaction guarantee?", Options: []string{"atomicity", "parallelism", "caching", "compression"}, Weight: 3, Answer: "atomicity"},
}

// Profile manages learner identity: skill assessment, goals, constraints,
// and the persisted profile record. A nil store disables persistence; the
// transform operations (goals, constraints, assessment) still work and
// simply echo their normalized inputs.
type Profile struct {
	users  UserStore
	logger *slog.Logger
}

// NewProfile creates the profile agent. users may be nil.
func NewProfile(users UserStore) *Profile {
	return &Profile{
		users:  users,
		logger: slog.With("component", "profile_agent"),
	}
}

// Type implements agent.Agent.
func (p *Profile) Type() models.AgentType { return models.AgentTypeProfile }

// SupportedIntents implements agent.Agent.
func (p *Profile) SupportedIntents() []models.Intent {
	return []models.Intent{
		models.IntentAssessSkillLevel,
		models.IntentUpdateGoals,
		models.IntentSetConstraints,
		models.IntentCreateProfile,
		models.IntentUpdateProfile,
		models.IntentGetProfile,
		models.IntentParseTimeframe,
	}
}

// Process implements agent.Agent.
func (p *Profile) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	switch payload.Intent {
	case models.IntentAssessSkillLevel:
		return p.assessSkillLevel(ctx, cctx, payload)
	case models.IntentUpdateGoals:
		return p.updateGoals(ctx, cctx, payload)
	case models.IntentSetConstraints:
		return p.setConstraints(ctx, cctx, payload)
	case models.IntentCreateProfile:
		return p.createProfile(ctx, cctx, payload)
	case models.IntentUpdateProfile:
		return p.updateProfile(ctx, cctx, payload)
	case models.IntentGetProfile:
		return p.getProfile(ctx, cctx)
	case models.IntentParseTimeframe:
		return p.parseTimeframe(payload)
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("profile agent does not handle intent %s", payload.Intent)), nil
	}
}

// assessSkillLevel returns the diagnostic question bank when the payload
// carries no responses, and the scored skill level when it does. The scored
// level is written to the stored profile when one exists; a missing row is
// not an error during onboarding, and a failed best-effort write only logs.
func (p *Profile) assessSkillLevel(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	responses := parseResponses(payload.Data["responses"])
	if len(responses) == 0 {
		return models.SuccessResult(map[string]any{
			"questions": questionBank,
			"total":     len(questionBank),
		}).WithNextActions("submit_assessment_responses"), nil
	}

	level, earned, total := scoreResponses(responses)
	p.persistSkillLevel(ctx, cctx.UserID, level)

	return models.SuccessResult(map[string]any{
		"skill_level": string(level),
		"score":       earned,
		"max_score":   total,
		"answered":    len(responses),
	}).WithNextActions("update_goals"), nil
}

// scoreResponses applies the fixed scoring policy: each correct answer earns
// its question's weight; the ratio of earned to total weight maps onto
//
//	< 0.30  beginner
//	< 0.65  intermediate
//	< 0.90  advanced
//	>= 0.90 expert
//
// Unknown question ids and wrong answers earn nothing, so the mapping is a
// pure function of the response set.
func scoreResponses(responses map[string]string) (models.SkillLevel, int, int) {
	var earned, total int
	for _, q := range questionBank {
		total += q.Weight
		if answer, ok := responses[q.ID]; ok && equalAnswer(answer, q.Answer) {
			earned += q.Weight
		}
	}

	ratio := float64(earned) / float64(total)
	switch {
	case ratio < 0.30:
		return models.SkillBeginner, earned, total
	case ratio < 0.65:
		return models.SkillIntermediate, earned, total
	case ratio < 0.90:
		return models.SkillAdvanced, earned, total
	default:
		return models.SkillExpert, earned, total
	}
}

func equalAnswer(got, want string) bool {
	return strings.EqualFold(strings.TrimSpace(got), want)
}

// parseResponses normalizes the two accepted response shapes: a list of
// {question_id, answer} objects (the JSON form) or a direct id-to-answer map.
func parseResponses(raw any) map[string]string {
	out := make(map[string]string)
	switch v := raw.(type) {
	case []any:
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			id, _ := m["question_id"].(string)
			answer, _ := m["answer"].(string)
			if id != "" {
				out[id] = answer
			}
		}
	case map[string]any:
		for id, a := range v {
			if s, ok := a.(string); ok {
				out[id] = s
			}
		}
	case map[string]string:
		maps.Copy(out, v)
	}
	return out
}

func (p *Profile) persistSkillLevel(ctx context.Context, userID string, level models.SkillLevel) {
	if p.users == nil {
		return
	}
	profile, err := p.users.GetUserProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			p.logger.Warn("Skipping skill level persistence", "user_id", userID, "error", err)
		}
		return
	}
	profile.SkillLevel = level
	if _, err := p.users.UpdateUserProfile(ctx, profile); err != nil {
		p.logger.Warn("Failed to persist assessed skill level", "user_id", userID, "error", err)
	}
}

func (p *Profile) updateGoals(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	goals := payload.StringSlice("goals")
	if len(goals) == 0 {
		return models.ErrorResult(models.ErrCodeValidation, "goals are required"), nil
	}

	persisted, err := p.upsert(ctx, cctx.UserID, func(profile *models.UserProfile) {
		profile.LearningGoals = goals
	})
	if err != nil {
		return nil, fmt.Errorf("update goals: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"goals":     goals,
		"persisted": persisted,
	}), nil
}

func (p *Profile) setConstraints(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	constraints := payload.Map("constraints")
	if len(constraints) == 0 {
		return models.ErrorResult(models.ErrCodeValidation, "constraints are required"), nil
	}

	// The nested map is shared with the caller's request; normalize a copy.
	constraints = maps.Clone(constraints)
	if tf, ok := constraints["timeframe"].(string); ok {
		if days, err := timeframeDays(tf); err == nil {
			constraints["target_days"] = days
		}
	}

	persisted, err := p.upsert(ctx, cctx.UserID, func(profile *models.UserProfile) {
		profile.TimeConstraints = constraints
	})
	if err != nil {
		return nil, fmt.Errorf("set constraints: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"constraints": constraints,
		"persisted":   persisted,
	}), nil
}

// upsert applies mutate to the stored profile, creating the row when the
// learner has none yet. Reports whether anything was written; a nil store
// reports false without error.
func (p *Profile) upsert(ctx context.Context, userID string, mutate func(*models.UserProfile)) (bool, error) {
	if p.users == nil {
		return false, nil
	}
	profile, err := p.users.GetUserProfile(ctx, userID)
	if errors.Is(err, services.ErrNotFound) {
		profile = &models.UserProfile{UserID: userID}
	} else if err != nil {
		return false, err
	}
	mutate(profile)
	if _, err := p.users.UpdateUserProfile(ctx, profile); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Profile) createProfile(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	if p.users == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "user store not configured"), nil
	}

	req := models.CreateUserRequest{
		UserID: payload.String("user_id"),
		Email:  payload.String("email"),
		Name:   payload.String("name"),
	}
	if req.UserID == "" {
		req.UserID = cctx.UserID
	}
	if req.Email == "" || req.Name == "" {
		return models.ErrorResult(models.ErrCodeValidation, "email and name are required"), nil
	}

	profile, err := p.users.CreateUser(ctx, req)
	if errors.Is(err, services.ErrAlreadyExists) {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("user %s already exists", req.UserID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	p.logger.Info("Learner profile created", "user_id", profile.UserID)
	return models.SuccessResult(map[string]any{"profile": profile}).
		WithNextActions("assess_skill_level"), nil
}

func (p *Profile) updateProfile(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	if p.users == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "user store not configured"), nil
	}

	profile, err := p.users.GetUserProfile(ctx, cctx.UserID)
	if errors.Is(err, services.ErrNotFound) {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("no profile for user %s", cctx.UserID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	if name := payload.String("name"); name != "" {
		profile.Name = name
	}
	if level := models.SkillLevel(payload.String("skill_level")); level != "" {
		if !models.ValidSkillLevel(level) {
			return models.ErrorResult(models.ErrCodeValidation,
				fmt.Sprintf("unknown skill_level %q", level)), nil
		}
		profile.SkillLevel = level
	}
	if goals := payload.StringSlice("goals"); len(goals) > 0 {
		profile.LearningGoals = goals
	}
	if prefs := payload.Map("preferences"); prefs != nil {
		profile.Preferences = maps.Clone(prefs)
	}

	updated, err := p.users.UpdateUserProfile(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return models.SuccessResult(map[string]any{"profile": updated}), nil
}

func (p *Profile) getProfile(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	if p.users == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "user store not configured"), nil
	}

	profile, err := p.users.GetUserProfile(ctx, cctx.UserID)
	if errors.Is(err, services.ErrNotFound) {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("no profile for user %s", cctx.UserID)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return models.SuccessResult(map[string]any{"profile": profile}), nil
}

func (p *Profile) parseTimeframe(payload *models.Payload) (*models.Result, error) {
	tf := payload.String("timeframe")
	if tf == "" {
		return models.ErrorResult(models.ErrCodeValidation, "timeframe is required"), nil
	}
	days, err := timeframeDays(tf)
	if err != nil {
		return models.ErrorResult(models.ErrCodeValidation, err.Error()), nil
	}
	return models.SuccessResult(map[string]any{
		"timeframe": tf,
		"days":      days,
	}), nil
}

var timeframeRe = regexp.MustCompile(`^\s*(\d+)?\s*(day|week|month|year)s?\s*$`)

// timeframeDays converts a human timeframe ("3 weeks", "month", "45") into
// a day count. Bare units count as one; bare numbers are days.
func timeframeDays(s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("timeframe must be positive, got %d", n)
		}
		return n, nil
	}

	m := timeframeRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("cannot parse timeframe %q", s)
	}
	count := 1
	if m[1] != "" {
		count, _ = strconv.Atoi(m[1])
		if count <= 0 {
			return 0, fmt.Errorf("timeframe must be positive, got %d", count)
		}
	}
	switch m[2] {
	case "day":
		return count, nil
	case "week":
		return count * 7, nil
	case "month":
		return count * 30, nil
	default:
		return count * 365, nil
	}
}
