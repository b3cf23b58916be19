package specialist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/services"
)

// qualityFloor is the minimum verification score a resource needs to stay
// in a vetted set.
const qualityFloor = 0.5

// Resources finds, vets, and recommends learning material through the
// documentation library.
type Resources struct {
	lib    DocLibrary
	plans  PlanStore
	logger *slog.Logger
}

// NewResources creates the resources agent. plans is only needed for
// curate_learning_path_resources and may be nil.
func NewResources(lib DocLibrary, plans PlanStore) *Resources {
	return &Resources{
		lib:    lib,
		plans:  plans,
		logger: slog.With("component", "resources_agent"),
	}
}

// Type implements agent.Agent.
func (rs *Resources) Type() models.AgentType { return models.AgentTypeResources }

// SupportedIntents implements agent.Agent.
func (rs *Resources) SupportedIntents() []models.Intent {
	return []models.Intent{
		models.IntentSearchResources,
		models.IntentGetResourceContent,
		models.IntentRecommendResources,
		models.IntentVerifyResourceQuality,
		models.IntentFindRelatedResources,
		models.IntentCurateLearningPathResources,
	}
}

// Process implements agent.Agent.
func (rs *Resources) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	if rs.lib == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "documentation service not configured"), nil
	}

	switch payload.Intent {
	case models.IntentSearchResources:
		return rs.searchResources(ctx, cctx, payload)
	case models.IntentGetResourceContent:
		return rs.getResourceContent(ctx, payload)
	case models.IntentRecommendResources:
		return rs.recommendResources(ctx, cctx, payload)
	case models.IntentVerifyResourceQuality:
		return rs.verifyResourceQuality(ctx, payload)
	case models.IntentFindRelatedResources:
		return rs.findRelatedResources(ctx, payload)
	case models.IntentCurateLearningPathResources:
		return rs.curateLearningPathResources(ctx, cctx)
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("resources agent does not handle intent %s", payload.Intent)), nil
	}
}

func (rs *Resources) searchResources(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	query := searchQuery(cctx, payload)
	if query == "" {
		return models.ErrorResult(models.ErrCodeValidation, "query is required"), nil
	}
	limit := resultLimit(payload, 5)

	resources, err := rs.lib.SearchDocumentation(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search documentation: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"resources": resources,
		"query":     query,
		"count":     len(resources),
	}).WithNextActions("verify_resource_quality"), nil
}

func (rs *Resources) getResourceContent(ctx context.Context, payload *models.Payload) (*models.Result, error) {
	id := payload.String("resource_id")
	if id == "" {
		return models.ErrorResult(models.ErrCodeValidation, "resource_id is required"), nil
	}

	content, err := rs.lib.GetResourceContent(ctx, id)
	if errors.Is(err, ErrUnknownResource) {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("unknown resource %s", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get resource content: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"resource_id": id,
		"content":     content,
		"length":      len(content),
	}), nil
}

// verifyResourceQuality has two shapes: a single resource_id returns its
// report, a resources list returns the vetted subset. A verification error
// on one resource keeps it in the set flagged unverified; vetting must not
// lose material because the checker hiccupped.
func (rs *Resources) verifyResourceQuality(ctx context.Context, payload *models.Payload) (*models.Result, error) {
	if id := payload.String("resource_id"); id != "" {
		report, err := rs.lib.VerifyResourceQuality(ctx, id)
		if errors.Is(err, ErrUnknownResource) {
			return models.ErrorResult(models.ErrCodeValidation,
				fmt.Sprintf("unknown resource %s", id)), nil
		}
		if err != nil {
			return nil, fmt.Errorf("verify resource quality: %w", err)
		}
		return models.SuccessResult(map[string]any{
			"resource_id": id,
			"report":      report,
			"acceptable":  report.Score >= qualityFloor && report.Reachable,
		}), nil
	}

	resources := resourcesFromPayload(payload)
	if len(resources) == 0 {
		return models.ErrorResult(models.ErrCodeValidation, "resource_id or resources is required"), nil
	}

	vetted := make([]models.Resource, 0, len(resources))
	reports := make([]models.QualityReport, 0, len(resources))
	rejected, unverified := 0, 0
	for _, res := range resources {
		report, err := rs.lib.VerifyResourceQuality(ctx, res.ID)
		if err != nil {
			rs.logger.Warn("Resource verification failed, keeping unverified",
				"resource_id", res.ID, "error", err)
			unverified++
			vetted = append(vetted, res)
			reports = append(reports, models.QualityReport{
				ResourceID: res.ID,
				Issues:     []string{"verification failed"},
			})
			continue
		}
		reports = append(reports, *report)
		if report.Score >= qualityFloor && report.Reachable {
			vetted = append(vetted, res)
		} else {
			rejected++
		}
	}

	return models.SuccessResult(map[string]any{
		"resources":  vetted,
		"reports":    reports,
		"rejected":   rejected,
		"unverified": unverified,
		"query":      payload.String("query"),
	}).WithNextActions("recommend_resources"), nil
}

func (rs *Resources) recommendResources(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	query := searchQuery(cctx, payload)
	resources := resourcesFromPayload(payload)
	if len(resources) == 0 {
		if query == "" {
			return models.ErrorResult(models.ErrCodeValidation, "resources or query is required"), nil
		}
		var err error
		resources, err = rs.lib.SearchDocumentation(ctx, query, resultLimit(payload, 10))
		if err != nil {
			return nil, fmt.Errorf("search documentation: %w", err)
		}
	}

	recommendations := make([]models.Recommendation, 0, len(resources))
	for _, res := range resources {
		score, reasons := recommendationScore(res, cctx, query)
		recommendations = append(recommendations, models.Recommendation{
			Resource: res,
			Reason:   strings.Join(reasons, "; "),
			Score:    score,
		})
	}
	sort.SliceStable(recommendations, func(i, j int) bool {
		return recommendations[i].Score > recommendations[j].Score
	})

	limit := resultLimit(payload, 3)
	if limit < len(recommendations) {
		recommendations = recommendations[:limit]
	}

	return models.SuccessResult(map[string]any{
		"recommendations": recommendations,
		"count":           len(recommendations),
		"query":           query,
	}), nil
}

func (rs *Resources) findRelatedResources(ctx context.Context, payload *models.Payload) (*models.Result, error) {
	id := payload.String("resource_id")
	if id == "" {
		return models.ErrorResult(models.ErrCodeValidation, "resource_id is required"), nil
	}

	related, err := rs.lib.GetRelatedResources(ctx, id, resultLimit(payload, 5))
	if errors.Is(err, ErrUnknownResource) {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("unknown resource %s", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get related resources: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"resource_id": id,
		"resources":   related,
		"count":       len(related),
	}), nil
}

// curateLearningPathResources attaches material to every module of the
// active plan. Individual search failures skip that module rather than
// aborting the whole curation.
func (rs *Resources) curateLearningPathResources(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	if rs.plans == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "plan store not configured"), nil
	}
	plan, err := rs.plans.GetActivePlan(ctx, cctx.UserID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return models.ErrorResult(models.ErrCodeValidation,
				fmt.Sprintf("no active plan for user %s", cctx.UserID)), nil
		}
		return nil, fmt.Errorf("get active plan: %w", err)
	}

	byModule := make(map[string][]models.Resource, len(plan.Modules))
	seen := make(map[string]struct{})
	total := 0
	var lastErr error
	for _, module := range plan.Modules {
		found, err := rs.lib.SearchDocumentation(ctx, module.Topic, 2)
		if err != nil {
			rs.logger.Warn("Module resource search failed",
				"module", module.Name, "topic", module.Topic, "error", err)
			lastErr = err
			continue
		}
		for _, res := range found {
			if _, dup := seen[res.ID]; dup {
				continue
			}
			seen[res.ID] = struct{}{}
			byModule[module.Name] = append(byModule[module.Name], res)
			total++
		}
	}
	if total == 0 && lastErr != nil {
		return nil, fmt.Errorf("curate resources: %w", lastErr)
	}

	return models.SuccessResult(map[string]any{
		"plan_id":             plan.ID,
		"resources_by_module": byModule,
		"total":               total,
	}), nil
}

func searchQuery(cctx *models.Context, payload *models.Payload) string {
	if q := payload.String("query"); q != "" {
		return q
	}
	if t := payload.String("topic"); t != "" {
		return t
	}
	return cctx.CurrentObjective
}

func resultLimit(payload *models.Payload, fallback int) int {
	limit, ok := payload.Int("limit")
	if !ok || limit <= 0 {
		return fallback
	}
	if limit > 20 {
		return 20
	}
	return limit
}

// recommendationScore ranks a resource for this learner: skill level match,
// query and goal overlap, and preferred format each add weight.
func recommendationScore(res models.Resource, cctx *models.Context, query string) (float64, []string) {
	score := 1.0
	var reasons []string

	if res.SkillLevel != "" && res.SkillLevel == cctx.SkillLevel {
		score++
		reasons = append(reasons, fmt.Sprintf("matches your %s level", res.SkillLevel))
	}

	q := strings.ToLower(query)
	if q != "" {
		for _, t := range res.Topics {
			tl := strings.ToLower(t)
			if strings.Contains(tl, q) || strings.Contains(q, tl) {
				score++
				reasons = append(reasons, fmt.Sprintf("covers %s", t))
				break
			}
		}
	}

	if goal, ok := goalOverlap(res.Topics, cctx.LearningGoals); ok {
		score += 0.5
		reasons = append(reasons, fmt.Sprintf("relevant to your goal %q", goal))
	}

	if kind, ok := cctx.Preferences["resource_kind"].(string); ok && kind == res.Kind {
		score += 0.5
		reasons = append(reasons, fmt.Sprintf("%s format you prefer", res.Kind))
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "general match for your search")
	}
	return score, reasons
}

func goalOverlap(topics, goals []string) (string, bool) {
	for _, goal := range goals {
		gl := strings.ToLower(goal)
		for _, t := range topics {
			tl := strings.ToLower(t)
			if strings.Contains(tl, gl) || strings.Contains(gl, tl) {
				return goal, true
			}
		}
	}
	return "", false
}

// resourcesFromPayload accepts both the typed in-process form and the
// decoded JSON form.
func resourcesFromPayload(payload *models.Payload) []models.Resource {
	switch v := payload.Data["resources"].(type) {
	case []models.Resource:
		return v
	case []any:
		out := make([]models.Resource, 0, len(v))
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			res := models.Resource{}
			res.ID, _ = m["id"].(string)
			res.Title, _ = m["title"].(string)
			res.URL, _ = m["url"].(string)
			res.Kind, _ = m["kind"].(string)
			res.Summary, _ = m["summary"].(string)
			if lvl, ok := m["skill_level"].(string); ok {
				res.SkillLevel = models.SkillLevel(lvl)
			}
			if topics, ok := m["topics"].([]any); ok {
				for _, t := range topics {
					if s, ok := t.(string); ok {
						res.Topics = append(res.Topics, s)
					}
				}
			}
			out = append(out, res)
		}
		return out
	}
	return nil
}
