package specialist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/progress"
	"github.com/learnloop/mentor/pkg/services"
)

const defaultHoursPerWeek = 5

// Planner builds and maintains learning plans: curriculum generation,
// difficulty adaptation, pacing, and spaced repetition. A nil store turns
// plan mutation into advice-only responses so workflows still complete.
type Planner struct {
	plans  PlanStore
	logger *slog.Logger
	now    func() time.Time
}

// NewPlanner creates the curriculum planner agent. plans may be nil.
func NewPlanner(plans PlanStore) *Planner {
	return &Planner{
		plans:  plans,
		logger: slog.With("component", "planner_agent"),
		now:    time.Now,
	}
}

// Type implements agent.Agent.
func (pl *Planner) Type() models.AgentType { return models.AgentTypeCurriculumPlanner }

// SupportedIntents implements agent.Agent.
func (pl *Planner) SupportedIntents() []models.Intent {
	return []models.Intent{
		models.IntentCreateLearningPath,
		models.IntentGenerateCurriculum,
		models.IntentUpdateCurriculum,
		models.IntentAdaptDifficulty,
		models.IntentRequestNextTopic,
		models.IntentGetCurriculumStatus,
		models.IntentScheduleSpacedRepetition,
		models.IntentAddMiniProject,
		models.IntentAdjustPacing,
	}
}

// Process implements agent.Agent.
func (pl *Planner) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	switch payload.Intent {
	case models.IntentCreateLearningPath:
		return pl.createLearningPath(ctx, cctx, payload)
	case models.IntentGenerateCurriculum:
		return pl.generateCurriculum(cctx, payload)
	case models.IntentUpdateCurriculum:
		return pl.updateCurriculum(ctx, cctx, payload)
	case models.IntentAdaptDifficulty:
		return pl.adaptDifficulty(ctx, cctx, payload)
	case models.IntentRequestNextTopic:
		return pl.requestNextTopic(ctx, cctx)
	case models.IntentGetCurriculumStatus:
		return pl.getCurriculumStatus(ctx, cctx)
	case models.IntentScheduleSpacedRepetition:
		return pl.scheduleSpacedRepetition(ctx, cctx, payload)
	case models.IntentAddMiniProject:
		return pl.addMiniProject(ctx, cctx, payload)
	case models.IntentAdjustPacing:
		return pl.adjustPacing(ctx, cctx)
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("planner agent does not handle intent %s", payload.Intent)), nil
	}
}

// createLearningPath generates a curriculum and activates it as the user's
// plan. Without a store the generated plan is returned unpersisted so the
// onboarding workflow completes in degraded deployments.
func (pl *Planner) createLearningPath(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	plan, errResult := pl.buildFromRequest(cctx, payload)
	if errResult != nil {
		return errResult, nil
	}

	persisted := false
	if pl.plans != nil {
		plan.Status = models.PlanStatusActive
		if err := pl.plans.SavePlan(ctx, plan); err != nil {
			return nil, fmt.Errorf("save plan: %w", err)
		}
		persisted = true
	}

	total, _ := plan.TaskCount()
	pl.logger.Info("Learning path created",
		"user_id", cctx.UserID, "plan_id", plan.ID, "topic", plan.Topic,
		"tasks", total, "total_days", plan.TotalDays, "persisted", persisted)

	return models.SuccessResult(map[string]any{
		"plan_id":      plan.ID,
		"plan":         plan,
		"title":        plan.Title,
		"topic":        plan.Topic,
		"skill_level":  string(plan.SkillLevel),
		"total_days":   plan.TotalDays,
		"module_count": len(plan.Modules),
		"task_count":   total,
		"persisted":    persisted,
	}).WithNextActions("generate_exercise"), nil
}

func (pl *Planner) generateCurriculum(cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	plan, errResult := pl.buildFromRequest(cctx, payload)
	if errResult != nil {
		return errResult, nil
	}
	total, _ := plan.TaskCount()
	return models.SuccessResult(map[string]any{
		"plan":         plan,
		"total_days":   plan.TotalDays,
		"module_count": len(plan.Modules),
		"task_count":   total,
	}), nil
}

// buildFromRequest resolves topic, level, and constraints from the payload
// with the request context as fallback, then generates the plan.
func (pl *Planner) buildFromRequest(cctx *models.Context, payload *models.Payload) (*models.LearningPlan, *models.Result) {
	level := models.SkillLevel(payload.String("skill_level"))
	if level == "" {
		level = cctx.SkillLevel
	}
	if level == "" {
		level = models.SkillBeginner
	}
	if !models.ValidSkillLevel(level) {
		return nil, models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("unknown skill_level %q", level))
	}

	topic := payload.String("topic")
	if topic == "" {
		topic = cctx.CurrentObjective
	}
	if topic == "" {
		if goals := payload.StringSlice("goals"); len(goals) > 0 {
			topic = goals[0]
		} else if len(cctx.LearningGoals) > 0 {
			topic = cctx.LearningGoals[0]
		} else {
			topic = "programming fundamentals"
		}
	}

	constraints := payload.Map("constraints")
	if constraints == nil {
		constraints = cctx.TimeConstraints
	}

	return pl.buildPlan(cctx.UserID, topic, level, constraints), nil
}

func (pl *Planner) buildPlan(userID, topic string, level models.SkillLevel, constraints map[string]any) *models.LearningPlan {
	hoursPerWeek, ok := constraintInt(constraints, "hours_per_week")
	if !ok || hoursPerWeek <= 0 {
		hoursPerWeek = defaultHoursPerWeek
	}
	targetDays, _ := constraintInt(constraints, "target_days")

	now := pl.now().UTC()
	modules := moduleBlueprints(topic, level)
	totalDays := schedule(modules, hoursPerWeek*60/7, targetDays)

	return &models.LearningPlan{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      fmt.Sprintf("%s learning path", topic),
		Topic:      topic,
		SkillLevel: level,
		Status:     models.PlanStatusActive,
		TotalDays:  totalDays,
		Modules:    modules,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func (pl *Planner) updateCurriculum(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	if pl.plans == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "plan store not configured"), nil
	}

	var plan *models.LearningPlan
	var err error
	if planID := payload.String("plan_id"); planID != "" {
		plan, err = pl.plans.GetPlan(ctx, planID)
		if errors.Is(err, services.ErrNotFound) {
			return models.ErrorResult(models.ErrCodeValidation,
				fmt.Sprintf("no plan %s", planID)), nil
		}
		if err != nil {
			return nil, fmt.Errorf("get plan: %w", err)
		}
	} else {
		var errResult *models.Result
		plan, errResult, err = pl.activePlan(ctx, cctx.UserID)
		if errResult != nil || err != nil {
			return errResult, err
		}
	}

	if title := payload.String("title"); title != "" {
		plan.Title = title
	}
	if status := models.PlanStatus(payload.String("status")); status != "" {
		switch status {
		case models.PlanStatusActive, models.PlanStatusPaused, models.PlanStatusCompleted, models.PlanStatusArchived:
			plan.Status = status
		default:
			return models.ErrorResult(models.ErrCodeValidation,
				fmt.Sprintf("unknown plan status %q", status)), nil
		}
	}

	marked := 0
	for _, id := range payload.StringSlice("completed_task_ids") {
		if plan.MarkTaskCompleted(id) {
			marked++
		}
	}

	plan.UpdatedAt = pl.now().UTC()
	if err := pl.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	total, completed := plan.TaskCount()
	return models.SuccessResult(map[string]any{
		"plan_id":         plan.ID,
		"status":          string(plan.Status),
		"completed_tasks": completed,
		"total_tasks":     total,
		"tasks_marked":    marked,
	}), nil
}

// adaptDifficulty applies a recommended adaptation to the active plan. The
// recommendation itself is the product; when no plan can be mutated the
// action is acknowledged with plan_updated=false rather than failed, so the
// exercise_submission workflow completes in storeless deployments.
func (pl *Planner) adaptDifficulty(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	action := payload.String("recommended_action")
	if action == "" {
		return models.ErrorResult(models.ErrCodeValidation, "recommended_action is required"), nil
	}
	switch action {
	case progress.ActionReduceDifficultyAndRecap, progress.ActionReduceDifficulty,
		progress.ActionIncreaseDifficulty, progress.ActionAdjustPacing:
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("unknown recommended_action %q", action)), nil
	}

	ack := func(reason string) *models.Result {
		return models.SuccessResult(map[string]any{
			"action":       action,
			"plan_updated": false,
			"reason":       reason,
		})
	}
	if pl.plans == nil {
		return ack("plan store not configured"), nil
	}
	plan, err := pl.plans.GetActivePlan(ctx, cctx.UserID)
	if errors.Is(err, services.ErrNotFound) {
		return ack("no active plan"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active plan: %w", err)
	}

	data := map[string]any{
		"action":       action,
		"plan_id":      plan.ID,
		"plan_updated": true,
	}
	switch action {
	case progress.ActionReduceDifficultyAndRecap:
		data["adjusted_tasks"] = easeRemaining(plan)
		recap := insertRecap(plan, payload.String("task_id"))
		if recap != nil {
			data["recap_task_id"] = recap.ID
		}
	case progress.ActionReduceDifficulty:
		data["adjusted_tasks"] = easeRemaining(plan)
	case progress.ActionIncreaseDifficulty:
		data["adjusted_tasks"] = hardenRemaining(plan)
	case progress.ActionAdjustPacing:
		data["shifted_tasks"] = stretchPacing(plan)
		data["total_days"] = plan.TotalDays
	}

	plan.UpdatedAt = pl.now().UTC()
	if err := pl.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	pl.logger.Info("Difficulty adapted",
		"user_id", cctx.UserID, "plan_id", plan.ID, "action", action,
		"trigger_type", payload.String("trigger_type"))
	return models.SuccessResult(data), nil
}

func (pl *Planner) requestNextTopic(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	plan, errResult, err := pl.activePlan(ctx, cctx.UserID)
	if errResult != nil || err != nil {
		return errResult, err
	}

	task := plan.FirstIncompleteTask()
	if task == nil {
		return models.SuccessResult(map[string]any{
			"plan_id":       plan.ID,
			"plan_complete": true,
		}).WithNextActions("add_mini_project"), nil
	}
	_, module := plan.FindTask(task.ID)

	return models.SuccessResult(map[string]any{
		"plan_id":    plan.ID,
		"task":       *task,
		"module":     module.Name,
		"topic":      module.Topic,
		"day_offset": task.DayOffset,
	}).WithNextActions("generate_exercise"), nil
}

func (pl *Planner) getCurriculumStatus(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	plan, errResult, err := pl.activePlan(ctx, cctx.UserID)
	if errResult != nil || err != nil {
		return errResult, err
	}

	total, completed := plan.TaskCount()
	completionRate := 0.0
	if total > 0 {
		completionRate = float64(completed) / float64(total) * 100
	}
	currentDay := int(pl.now().UTC().Sub(plan.CreatedAt).Hours() / 24)
	expected := 0.0
	if plan.TotalDays > 0 {
		expected = min(max(float64(currentDay)/float64(plan.TotalDays)*100, 0), 100)
	}

	return models.SuccessResult(map[string]any{
		"plan_id":         plan.ID,
		"title":           plan.Title,
		"status":          string(plan.Status),
		"total_tasks":     total,
		"completed_tasks": completed,
		"completion_rate": completionRate,
		"current_day":     currentDay,
		"total_days":      plan.TotalDays,
		// Same 20-point margin the slow_progress trigger uses.
		"on_track": completionRate >= expected-20,
	}), nil
}

var repetitionIntervals = []int{2, 7, 16}

func (pl *Planner) scheduleSpacedRepetition(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	taskID := payload.String("task_id")
	if taskID == "" {
		return models.ErrorResult(models.ErrCodeValidation, "task_id is required"), nil
	}
	plan, errResult, err := pl.activePlan(ctx, cctx.UserID)
	if errResult != nil || err != nil {
		return errResult, err
	}
	task, module := plan.FindTask(taskID)
	if task == nil {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("no task %s in active plan", taskID)), nil
	}
	if !task.Completed {
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("task %s is not completed yet", taskID)), nil
	}

	scheduled := make([]string, 0, len(repetitionIntervals))
	for _, interval := range repetitionIntervals {
		review := models.PlanTask{
			ID:               uuid.NewString(),
			Title:            fmt.Sprintf("Review: %s", task.Title),
			Kind:             "review",
			DayOffset:        task.DayOffset + interval,
			EstimatedMinutes: 20,
			Difficulty:       "easy",
		}
		module.Tasks = append(module.Tasks, review)
		scheduled = append(scheduled, review.ID)
	}
	if last := task.DayOffset + repetitionIntervals[len(repetitionIntervals)-1]; last >= plan.TotalDays {
		plan.TotalDays = last + 1
	}

	plan.UpdatedAt = pl.now().UTC()
	if err := pl.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"plan_id":    plan.ID,
		"task_id":    taskID,
		"scheduled":  scheduled,
		"intervals":  repetitionIntervals,
		"total_days": plan.TotalDays,
	}), nil
}

func (pl *Planner) addMiniProject(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	plan, errResult, err := pl.activePlan(ctx, cctx.UserID)
	if errResult != nil || err != nil {
		return errResult, err
	}
	if len(plan.Modules) == 0 {
		return models.ErrorResult(models.ErrCodeValidation, "active plan has no modules"), nil
	}

	topic := payload.String("topic")
	if topic == "" {
		topic = plan.Topic
	}
	difficulty := "hard"
	if plan.SkillLevel == models.SkillBeginner {
		difficulty = "medium"
	}

	project := models.PlanTask{
		ID:               uuid.NewString(),
		Title:            fmt.Sprintf("Mini project: %s", topic),
		Kind:             "project",
		DayOffset:        maxDayOffset(plan) + 1,
		EstimatedMinutes: 120,
		Difficulty:       difficulty,
	}
	last := &plan.Modules[len(plan.Modules)-1]
	last.Tasks = append(last.Tasks, project)
	if project.DayOffset >= plan.TotalDays {
		plan.TotalDays = project.DayOffset + 1
	}

	plan.UpdatedAt = pl.now().UTC()
	if err := pl.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"plan_id":    plan.ID,
		"task_id":    project.ID,
		"title":      project.Title,
		"day_offset": project.DayOffset,
		"total_days": plan.TotalDays,
	}), nil
}

func (pl *Planner) adjustPacing(ctx context.Context, cctx *models.Context) (*models.Result, error) {
	plan, errResult, err := pl.activePlan(ctx, cctx.UserID)
	if errResult != nil || err != nil {
		return errResult, err
	}

	shifted := stretchPacing(plan)
	plan.UpdatedAt = pl.now().UTC()
	if err := pl.plans.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	return models.SuccessResult(map[string]any{
		"plan_id":       plan.ID,
		"shifted_tasks": shifted,
		"total_days":    plan.TotalDays,
	}), nil
}

// activePlan loads the user's active plan. The extra *Result return carries
// the domain refusal (store missing, no plan) so callers distinguish it from
// infrastructure failure.
func (pl *Planner) activePlan(ctx context.Context, userID string) (*models.LearningPlan, *models.Result, error) {
	if pl.plans == nil {
		return nil, models.ErrorResult(models.ErrCodeProcessing, "plan store not configured"), nil
	}
	plan, err := pl.plans.GetActivePlan(ctx, userID)
	if errors.Is(err, services.ErrNotFound) {
		return nil, models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("no active plan for user %s", userID)), nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get active plan: %w", err)
	}
	return plan, nil, nil
}

func constraintInt(m map[string]any, key string) (int, bool) {
	switch v := m[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

// schedule assigns task ids and day offsets. With a target day count the
// tasks are spread evenly; otherwise days are filled up to the learner's
// daily minute budget, never splitting a task. Returns the plan length.
func schedule(modules []models.PlanModule, minutesPerDay, targetDays int) int {
	var tasks []*models.PlanTask
	for i := range modules {
		for j := range modules[i].Tasks {
			tasks = append(tasks, &modules[i].Tasks[j])
		}
	}
	for _, t := range tasks {
		t.ID = uuid.NewString()
	}
	if len(tasks) == 0 {
		return 0
	}

	if targetDays > 0 {
		for i, t := range tasks {
			t.DayOffset = i * targetDays / len(tasks)
		}
		return targetDays
	}

	if minutesPerDay <= 0 {
		minutesPerDay = defaultHoursPerWeek * 60 / 7
	}
	day, spent := 0, 0
	for _, t := range tasks {
		if spent > 0 && spent+t.EstimatedMinutes > minutesPerDay {
			day++
			spent = 0
		}
		t.DayOffset = day
		spent += t.EstimatedMinutes
	}
	return day + 1
}

var difficultyLadder = []string{"easy", "medium", "hard"}

func easier(d string) string {
	for i, v := range difficultyLadder {
		if v == d && i > 0 {
			return difficultyLadder[i-1]
		}
	}
	return difficultyLadder[0]
}

func harder(d string) string {
	for i, v := range difficultyLadder {
		if v == d && i < len(difficultyLadder)-1 {
			return difficultyLadder[i+1]
		}
	}
	return difficultyLadder[len(difficultyLadder)-1]
}

func easeRemaining(plan *models.LearningPlan) int {
	return adjustRemaining(plan, easier)
}

func hardenRemaining(plan *models.LearningPlan) int {
	return adjustRemaining(plan, harder)
}

func adjustRemaining(plan *models.LearningPlan, adjust func(string) string) int {
	changed := 0
	for i := range plan.Modules {
		for j := range plan.Modules[i].Tasks {
			t := &plan.Modules[i].Tasks[j]
			if t.Completed {
				continue
			}
			if next := adjust(t.Difficulty); next != t.Difficulty {
				t.Difficulty = next
				changed++
			}
		}
	}
	return changed
}

// stretchPacing pushes remaining work out by roughly a quarter: each
// incomplete task slips one day per four days it sits past the first
// incomplete one. Completed tasks never move.
func stretchPacing(plan *models.LearningPlan) int {
	first := -1
	for i := range plan.Modules {
		for j := range plan.Modules[i].Tasks {
			t := &plan.Modules[i].Tasks[j]
			if !t.Completed && (first < 0 || t.DayOffset < first) {
				first = t.DayOffset
			}
		}
	}
	if first < 0 {
		return 0
	}

	shifted := 0
	for i := range plan.Modules {
		for j := range plan.Modules[i].Tasks {
			t := &plan.Modules[i].Tasks[j]
			if t.Completed {
				continue
			}
			if shift := (t.DayOffset - first) / 4; shift > 0 {
				t.DayOffset += shift
				shifted++
			}
		}
	}
	if maxOff := maxDayOffset(plan); maxOff >= plan.TotalDays {
		plan.TotalDays = maxOff + 1
	}
	return shifted
}

func maxDayOffset(plan *models.LearningPlan) int {
	maxOff := 0
	for _, m := range plan.Modules {
		for _, t := range m.Tasks {
			if t.DayOffset > maxOff {
				maxOff = t.DayOffset
			}
		}
	}
	return maxOff
}

// insertRecap adds a short review task at the front of the remaining work.
// It lands in the module containing taskID when known, otherwise the first
// module with incomplete tasks.
func insertRecap(plan *models.LearningPlan, taskID string) *models.PlanTask {
	var module *models.PlanModule
	offset := 0
	if taskID != "" {
		if _, m := plan.FindTask(taskID); m != nil {
			module = m
		}
	}
	if next := plan.FirstIncompleteTask(); next != nil {
		offset = next.DayOffset
		if module == nil {
			_, module = plan.FindTask(next.ID)
		}
	}
	if module == nil {
		if len(plan.Modules) == 0 {
			return nil
		}
		module = &plan.Modules[0]
	}

	recap := models.PlanTask{
		ID:               uuid.NewString(),
		Title:            fmt.Sprintf("Recap: %s", module.Name),
		Kind:             "review",
		DayOffset:        offset,
		EstimatedMinutes: 30,
		Difficulty:       "easy",
	}
	module.Tasks = append(module.Tasks, recap)
	return &module.Tasks[len(module.Tasks)-1]
}

// moduleBlueprints is the curriculum content per skill level. Task ids and
// day offsets are filled in by schedule.
func moduleBlueprints(topic string, level models.SkillLevel) []models.PlanModule {
	switch level {
	case models.SkillIntermediate:
		return []models.PlanModule{
			{Name: "Refresher", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Review %s fundamentals", topic), Kind: "reading", EstimatedMinutes: 30, Difficulty: "easy"},
				{Title: fmt.Sprintf("Warm-up drills: %s", topic), Kind: "exercise", EstimatedMinutes: 45, Difficulty: "easy"},
			}},
			{Name: "Deepening", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Core patterns in %s", topic), Kind: "reading", EstimatedMinutes: 40, Difficulty: "medium"},
				{Title: fmt.Sprintf("Exercise: applying %s patterns", topic), Kind: "exercise", EstimatedMinutes: 60, Difficulty: "medium"},
				{Title: fmt.Sprintf("Exercise: edge cases in %s", topic), Kind: "exercise", EstimatedMinutes: 60, Difficulty: "medium"},
				{Title: fmt.Sprintf("Debugging drill: %s", topic), Kind: "exercise", EstimatedMinutes: 45, Difficulty: "medium"},
			}},
			{Name: "Applied practice", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Exercise: %s under constraints", topic), Kind: "exercise", EstimatedMinutes: 60, Difficulty: "hard"},
				{Title: fmt.Sprintf("Mini project: %s", topic), Kind: "project", EstimatedMinutes: 120, Difficulty: "medium"},
			}},
		}
	case models.SkillAdvanced:
		return []models.PlanModule{
			{Name: "Advanced patterns", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Advanced %s techniques", topic), Kind: "reading", EstimatedMinutes: 45, Difficulty: "medium"},
				{Title: fmt.Sprintf("Exercise: advanced %s", topic), Kind: "exercise", EstimatedMinutes: 75, Difficulty: "hard"},
				{Title: fmt.Sprintf("Exercise: refactoring %s code", topic), Kind: "exercise", EstimatedMinutes: 60, Difficulty: "hard"},
			}},
			{Name: "Performance and design", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Profiling and optimizing %s", topic), Kind: "exercise", EstimatedMinutes: 75, Difficulty: "hard"},
				{Title: fmt.Sprintf("Design review: %s systems", topic), Kind: "reading", EstimatedMinutes: 45, Difficulty: "hard"},
			}},
			{Name: "Capstone", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Capstone project: %s", topic), Kind: "project", EstimatedMinutes: 180, Difficulty: "hard"},
			}},
		}
	case models.SkillExpert:
		return []models.PlanModule{
			{Name: "Mastery topics", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Research: state of the art in %s", topic), Kind: "reading", EstimatedMinutes: 60, Difficulty: "hard"},
				{Title: fmt.Sprintf("Exercise: %s at scale", topic), Kind: "exercise", EstimatedMinutes: 90, Difficulty: "hard"},
			}},
			{Name: "Open-ended challenges", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Challenge: novel %s problem", topic), Kind: "exercise", EstimatedMinutes: 90, Difficulty: "hard"},
				{Title: fmt.Sprintf("Capstone project: %s", topic), Kind: "project", EstimatedMinutes: 240, Difficulty: "hard"},
			}},
		}
	default: // beginner
		return []models.PlanModule{
			{Name: "Foundations", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Introduction to %s", topic), Kind: "reading", EstimatedMinutes: 30, Difficulty: "easy"},
				{Title: fmt.Sprintf("First steps with %s", topic), Kind: "exercise", EstimatedMinutes: 30, Difficulty: "easy"},
				{Title: fmt.Sprintf("Syntax drills: %s", topic), Kind: "exercise", EstimatedMinutes: 45, Difficulty: "easy"},
				{Title: fmt.Sprintf("Reading: how %s fits together", topic), Kind: "reading", EstimatedMinutes: 30, Difficulty: "easy"},
			}},
			{Name: "Core concepts", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Exercise: basic %s problems", topic), Kind: "exercise", EstimatedMinutes: 45, Difficulty: "easy"},
				{Title: fmt.Sprintf("Exercise: working with data in %s", topic), Kind: "exercise", EstimatedMinutes: 45, Difficulty: "medium"},
				{Title: fmt.Sprintf("Reading: common %s mistakes", topic), Kind: "reading", EstimatedMinutes: 30, Difficulty: "easy"},
				{Title: fmt.Sprintf("Exercise: putting %s together", topic), Kind: "exercise", EstimatedMinutes: 60, Difficulty: "medium"},
			}},
			{Name: "Practice", Topic: topic, Tasks: []models.PlanTask{
				{Title: fmt.Sprintf("Exercise: solve it with %s", topic), Kind: "exercise", EstimatedMinutes: 60, Difficulty: "medium"},
				{Title: fmt.Sprintf("Mini project: %s", topic), Kind: "project", EstimatedMinutes: 120, Difficulty: "medium"},
			}},
		}
	}
}
