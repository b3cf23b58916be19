package specialist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/services"
)

// In-memory fakes for the agent ports. They store pointers as handed in;
// tests that mutate returned values do so knowingly.

func learnerContext() *models.Context {
	return &models.Context{
		UserID:        "user-1",
		SessionID:     "sess-1",
		CorrelationID: "corr-1",
	}
}

func intentPayload(intent models.Intent, data map[string]any) *models.Payload {
	if data == nil {
		data = map[string]any{}
	}
	return &models.Payload{Intent: intent, Data: data}
}

type fakeUserStore struct {
	profiles map[string]*models.UserProfile
	err      error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{profiles: make(map[string]*models.UserProfile)}
}

func (f *fakeUserStore) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.profiles[userID]
	if !ok {
		return nil, services.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeUserStore) CreateUser(_ context.Context, req models.CreateUserRequest) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.profiles[req.UserID]; ok {
		return nil, services.ErrAlreadyExists
	}
	now := time.Now()
	p := &models.UserProfile{
		UserID:    req.UserID,
		Email:     req.Email,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.profiles[req.UserID] = p
	cp := *p
	return &cp, nil
}

func (f *fakeUserStore) UpdateUserProfile(_ context.Context, profile *models.UserProfile) (*models.UserProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *profile
	cp.UpdatedAt = time.Now()
	f.profiles[profile.UserID] = &cp
	out := cp
	return &out, nil
}

type fakePlanStore struct {
	plans   map[string]*models.LearningPlan
	saves   int
	err     error
	saveErr error
}

func newFakePlanStore(plans ...*models.LearningPlan) *fakePlanStore {
	f := &fakePlanStore{plans: make(map[string]*models.LearningPlan)}
	for _, p := range plans {
		f.plans[p.ID] = p
	}
	return f
}

func (f *fakePlanStore) SavePlan(_ context.Context, plan *models.LearningPlan) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.err != nil {
		return f.err
	}
	f.saves++
	f.plans[plan.ID] = plan
	return nil
}

func (f *fakePlanStore) GetPlan(_ context.Context, planID string) (*models.LearningPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.plans[planID]
	if !ok {
		return nil, services.ErrNotFound
	}
	return p, nil
}

func (f *fakePlanStore) GetActivePlan(_ context.Context, userID string) (*models.LearningPlan, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, id := range f.sortedIDs() {
		p := f.plans[id]
		if p.UserID == userID && p.Status == models.PlanStatusActive {
			return p, nil
		}
	}
	return nil, services.ErrNotFound
}

func (f *fakePlanStore) UpdatePlanStatus(_ context.Context, planID string, status models.PlanStatus) error {
	if f.err != nil {
		return f.err
	}
	p, ok := f.plans[planID]
	if !ok {
		return services.ErrNotFound
	}
	p.Status = status
	return nil
}

func (f *fakePlanStore) GetTasksForDay(ctx context.Context, userID string, dayOffset int) ([]models.PlanTask, error) {
	p, err := f.GetActivePlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.TasksForDay(dayOffset), nil
}

func (f *fakePlanStore) sortedIDs() []string {
	ids := make([]string, 0, len(f.plans))
	for id := range f.plans {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeSubmissionStore struct {
	subs    []*models.Submission
	evals   []*models.Evaluation
	readErr error
	saveErr error
}

func newFakeSubmissionStore() *fakeSubmissionStore { return &fakeSubmissionStore{} }

func (f *fakeSubmissionStore) SaveSubmission(_ context.Context, sub *models.Submission) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.subs = append(f.subs, sub)
	return nil
}

func (f *fakeSubmissionStore) SaveEvaluation(_ context.Context, eval *models.Evaluation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.evals = append(f.evals, eval)
	return nil
}

func (f *fakeSubmissionStore) GetTaskOutcomes(_ context.Context, userID, taskID string) ([]models.SubmissionOutcome, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.outcomes(userID, taskID), nil
}

func (f *fakeSubmissionStore) GetUserOutcomes(_ context.Context, userID string) ([]models.SubmissionOutcome, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.outcomes(userID, ""), nil
}

// outcomes joins submissions with their evaluations in insertion order,
// which the tests keep chronological.
func (f *fakeSubmissionStore) outcomes(userID, taskID string) []models.SubmissionOutcome {
	var out []models.SubmissionOutcome
	for _, sub := range f.subs {
		if sub.UserID != userID {
			continue
		}
		if taskID != "" && sub.TaskID != taskID {
			continue
		}
		o := models.SubmissionOutcome{
			TaskID:        sub.TaskID,
			AttemptNumber: sub.AttemptNumber,
			SubmittedAt:   sub.SubmittedAt,
		}
		for _, ev := range f.evals {
			if ev.SubmissionID == sub.ID {
				o.Passed = ev.Passed
				o.Score = ev.Score
				break
			}
		}
		out = append(out, o)
	}
	return out
}

func (f *fakeSubmissionStore) seed(userID, taskID string, passed bool, score float64, at time.Time) {
	id := fmt.Sprintf("sub-%d", len(f.subs)+1)
	attempt := len(f.outcomes(userID, taskID)) + 1
	f.subs = append(f.subs, &models.Submission{
		ID:            id,
		UserID:        userID,
		TaskID:        taskID,
		AttemptNumber: attempt,
		SubmittedAt:   at,
	})
	f.evals = append(f.evals, &models.Evaluation{
		ID:           id + "-eval",
		SubmissionID: id,
		UserID:       userID,
		TaskID:       taskID,
		Passed:       passed,
		Score:        score,
		EvaluatedAt:  at,
	})
}

type fakeRunner struct {
	result  *models.ExecutionResult
	err     error
	lastReq *models.ExecutionRequest
}

func (f *fakeRunner) ExecuteCode(_ context.Context, req models.ExecutionRequest) (*models.ExecutionResult, error) {
	f.lastReq = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeLib struct {
	resources map[string]models.Resource
	contents  map[string]string
	reports   map[string]*models.QualityReport
	related   map[string][]models.Resource
	searches  []string
	searchErr error
	verifyErr error
}

func newFakeLib(resources ...models.Resource) *fakeLib {
	f := &fakeLib{
		resources: make(map[string]models.Resource),
		contents:  make(map[string]string),
		reports:   make(map[string]*models.QualityReport),
		related:   make(map[string][]models.Resource),
	}
	for _, r := range resources {
		f.resources[r.ID] = r
	}
	return f
}

func (f *fakeLib) SearchDocumentation(_ context.Context, query string, limit int) ([]models.Resource, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.searches = append(f.searches, query)
	q := strings.ToLower(query)
	var out []models.Resource
	for _, id := range f.sortedIDs() {
		r := f.resources[id]
		if !matchesQuery(r, q) {
			continue
		}
		out = append(out, r)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matchesQuery(r models.Resource, q string) bool {
	if strings.Contains(strings.ToLower(r.Title), q) {
		return true
	}
	for _, t := range r.Topics {
		tl := strings.ToLower(t)
		if strings.Contains(tl, q) || strings.Contains(q, tl) {
			return true
		}
	}
	return false
}

func (f *fakeLib) GetResourceContent(_ context.Context, resourceID string) (string, error) {
	c, ok := f.contents[resourceID]
	if !ok {
		return "", ErrUnknownResource
	}
	return c, nil
}

func (f *fakeLib) VerifyResourceQuality(_ context.Context, resourceID string) (*models.QualityReport, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if r, ok := f.reports[resourceID]; ok {
		cp := *r
		return &cp, nil
	}
	if _, ok := f.resources[resourceID]; !ok {
		return nil, ErrUnknownResource
	}
	return &models.QualityReport{ResourceID: resourceID, Score: 0.9, Reachable: true}, nil
}

func (f *fakeLib) GetRelatedResources(_ context.Context, resourceID string, limit int) ([]models.Resource, error) {
	if _, ok := f.resources[resourceID]; !ok {
		return nil, ErrUnknownResource
	}
	rel := f.related[resourceID]
	if len(rel) > limit {
		rel = rel[:limit]
	}
	return rel, nil
}

func (f *fakeLib) sortedIDs() []string {
	ids := make([]string, 0, len(f.resources))
	for id := range f.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type fakeLLM struct {
	exercise *models.Exercise
	hints    []string
	err      error
	calls    int
}

func (f *fakeLLM) GenerateExercise(_ context.Context, topic, language, difficulty string, level models.SkillLevel) (*models.Exercise, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.exercise != nil {
		ex := *f.exercise
		return &ex, nil
	}
	return &models.Exercise{
		Title:       "Generated: " + topic,
		Topic:       topic,
		Difficulty:  difficulty,
		SkillLevel:  level,
		Description: "generated exercise",
		Language:    language,
	}, nil
}

func (f *fakeLLM) GenerateHints(_ context.Context, topic, _ string, count int) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.hints != nil {
		return f.hints, nil
	}
	hints := make([]string, count)
	for i := range hints {
		hints[i] = fmt.Sprintf("hint %d for %s", i+1, topic)
	}
	return hints, nil
}

// blockingLLM ignores context cancellation entirely; calls return only
// after release is closed. Used to exercise the envelope's timeout path
// without racing the in-process degrade.
type blockingLLM struct {
	release chan struct{}
}

func (b *blockingLLM) GenerateExercise(context.Context, string, string, string, models.SkillLevel) (*models.Exercise, error) {
	<-b.release
	return nil, context.Canceled
}

func (b *blockingLLM) GenerateHints(context.Context, string, string, int) ([]string, error) {
	<-b.release
	return nil, context.Canceled
}
