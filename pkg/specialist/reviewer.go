package specialist

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/learnloop/mentor/pkg/models"
)

const (
	// passingScore is the evaluation threshold out of 100.
	passingScore = 60.0
	// staticScoreCeiling caps heuristic reviews so sandbox-verified passes
	// always rank above static approximations.
	staticScoreCeiling = 70.0
)

// Reviewer evaluates learner submissions. With a code runner it executes the
// submission against its test cases in the sandbox; without one (or when the
// sandbox errors) it degrades to static review. Evaluation never persists
// anything: the progress tracker records the verdict.
type Reviewer struct {
	runner CodeRunner
	subs   SubmissionStore
	logger *slog.Logger
}

// NewReviewer creates the reviewer agent. Both dependencies may be nil;
// runner enables sandbox execution, subs enables attempt counting and
// submission comparison.
func NewReviewer(runner CodeRunner, subs SubmissionStore) *Reviewer {
	return &Reviewer{
		runner: runner,
		subs:   subs,
		logger: slog.With("component", "reviewer_agent"),
	}
}

// Type implements agent.Agent.
func (r *Reviewer) Type() models.AgentType { return models.AgentTypeReviewer }

// SupportedIntents implements agent.Agent.
func (r *Reviewer) SupportedIntents() []models.Intent {
	return []models.Intent{
		models.IntentEvaluateSubmission,
		models.IntentRunTests,
		models.IntentGenerateFeedback,
		models.IntentCheckCodeQuality,
		models.IntentCompareSubmissions,
		models.IntentValidateSolution,
	}
}

// Process implements agent.Agent.
func (r *Reviewer) Process(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	switch payload.Intent {
	case models.IntentEvaluateSubmission:
		return r.evaluateSubmission(ctx, cctx, payload)
	case models.IntentRunTests:
		return r.runTests(ctx, payload)
	case models.IntentGenerateFeedback:
		return r.generateFeedback(payload)
	case models.IntentCheckCodeQuality:
		return r.checkCodeQuality(payload)
	case models.IntentCompareSubmissions:
		return r.compareSubmissions(ctx, cctx, payload)
	case models.IntentValidateSolution:
		return r.validateSolution(ctx, payload)
	default:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("reviewer agent does not handle intent %s", payload.Intent)), nil
	}
}

// verdict is the internal evaluation outcome before it is flattened into
// the result data.
type verdict struct {
	passed      bool
	score       float64
	testsPassed int
	testsTotal  int
	failures    []string
	method      string // provided, sandbox, static
}

// evaluateSubmission grades one attempt. A pre-graded payload (passed and
// score both present) is trusted as-is; otherwise the sandbox runs the code,
// and static review covers the rest. The flattened verdict keys feed the
// exercise_submission workflow.
func (r *Reviewer) evaluateSubmission(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	taskID := payload.String("task_id")
	if taskID == "" {
		return models.ErrorResult(models.ErrCodeValidation, "task_id is required"), nil
	}

	v := r.grade(ctx, cctx, payload)
	attempt := r.attemptNumber(ctx, cctx, payload, taskID)

	feedback := payload.String("feedback")
	if feedback == "" {
		feedback = buildFeedback(v)
	}

	r.logger.Info("Submission evaluated",
		"correlation_id", cctx.CorrelationID, "task_id", taskID,
		"passed", v.passed, "score", v.score, "method", v.method, "attempt", attempt)

	return models.SuccessResult(map[string]any{
		"task_id":        taskID,
		"passed":         v.passed,
		"score":          v.score,
		"attempt_number": attempt,
		"feedback":       feedback,
		"tests_passed":   v.testsPassed,
		"tests_total":    v.testsTotal,
		"method":         v.method,
	}).WithNextActions("update_progress"), nil
}

func (r *Reviewer) grade(ctx context.Context, cctx *models.Context, payload *models.Payload) verdict {
	if score, ok := payload.Float("score"); ok {
		if _, hasPassed := payload.Data["passed"].(bool); hasPassed {
			return verdict{
				passed: payload.Bool("passed"),
				score:  score,
				method: "provided",
			}
		}
	}

	code := payload.String("code")
	if r.runner != nil && code != "" {
		req := models.ExecutionRequest{
			Language:  payload.String("language"),
			Code:      code,
			TestCases: testCasesFromPayload(payload),
		}
		if ms, ok := payload.Int("timeout_ms"); ok && ms > 0 {
			req.TimeoutMS = ms
		}
		res, err := r.runner.ExecuteCode(ctx, req)
		if err == nil {
			return verdictFromExecution(res)
		}
		r.logger.Warn("Sandbox unavailable, degrading to static review",
			"correlation_id", cctx.CorrelationID, "error", err)
	}

	score, issues := staticReview(code, payload.String("language"))
	return verdict{
		passed:   score >= passingScore,
		score:    score,
		failures: issues,
		method:   "static",
	}
}

func verdictFromExecution(res *models.ExecutionResult) verdict {
	v := verdict{method: "sandbox", testsTotal: len(res.TestResults)}
	for _, tr := range res.TestResults {
		if tr.Passed {
			v.testsPassed++
		} else {
			v.failures = append(v.failures, tr.Name)
		}
	}

	if len(res.SecurityViolations) > 0 {
		v.passed = false
		v.score = 0
		v.failures = append(v.failures, res.SecurityViolations...)
		return v
	}

	if v.testsTotal > 0 {
		v.score = float64(v.testsPassed) / float64(v.testsTotal) * 100
		v.passed = v.testsPassed == v.testsTotal
		return v
	}

	// No per-test results: the runner's status is all we have.
	if res.Status == "passed" {
		v.passed = true
		v.score = 100
	}
	return v
}

// attemptNumber resolves which attempt this is: explicit payload value,
// stored history, then the context's running count.
func (r *Reviewer) attemptNumber(ctx context.Context, cctx *models.Context, payload *models.Payload, taskID string) int {
	if n, ok := payload.Int("attempt_number"); ok && n > 0 {
		return n
	}
	if r.subs != nil {
		if outcomes, err := r.subs.GetTaskOutcomes(ctx, cctx.UserID, taskID); err == nil {
			return len(outcomes) + 1
		}
	}
	if cctx.AttemptCount > 0 {
		return cctx.AttemptCount + 1
	}
	return 1
}

// runTests executes code in the sandbox without grading it. Unlike
// evaluate_submission there is no static degrade: run_tests is explicitly
// the sandbox operation, so a broken runner is a real failure.
func (r *Reviewer) runTests(ctx context.Context, payload *models.Payload) (*models.Result, error) {
	if r.runner == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "code runner not configured"), nil
	}
	code := payload.String("code")
	if code == "" {
		return models.ErrorResult(models.ErrCodeValidation, "code is required"), nil
	}

	req := models.ExecutionRequest{
		Language:  payload.String("language"),
		Code:      code,
		TestCases: testCasesFromPayload(payload),
	}
	if ms, ok := payload.Int("timeout_ms"); ok && ms > 0 {
		req.TimeoutMS = ms
	}

	res, err := r.runner.ExecuteCode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute code: %w", err)
	}

	passed := 0
	for _, tr := range res.TestResults {
		if tr.Passed {
			passed++
		}
	}
	return models.SuccessResult(map[string]any{
		"status":            res.Status,
		"tests_passed":      passed,
		"tests_total":       len(res.TestResults),
		"test_results":      res.TestResults,
		"output":            res.Output,
		"execution_time_ms": res.ExecutionTimeMS,
	}), nil
}

func (r *Reviewer) generateFeedback(payload *models.Payload) (*models.Result, error) {
	score, ok := payload.Float("score")
	if !ok {
		return models.ErrorResult(models.ErrCodeValidation, "score is required"), nil
	}

	v := verdict{
		passed:   payload.Bool("passed") || score >= passingScore,
		score:    score,
		failures: payload.StringSlice("failed_tests"),
	}

	var suggestions []string
	switch {
	case score < passingScore:
		suggestions = []string{
			"Re-read the task description and restate it in your own words.",
			"Run the provided test cases locally and work through the first failure.",
			"Ask for a hint if you are stuck on the same failure twice.",
		}
	case score < 90:
		suggestions = []string{
			"Look for edge cases your solution handles by accident rather than on purpose.",
			"Simplify: shorter often means clearer.",
		}
	default:
		suggestions = []string{"Try a stretch exercise on the same topic."}
	}

	return models.SuccessResult(map[string]any{
		"feedback":    buildFeedback(v),
		"suggestions": suggestions,
	}), nil
}

func (r *Reviewer) checkCodeQuality(payload *models.Payload) (*models.Result, error) {
	code := payload.String("code")
	if code == "" {
		return models.ErrorResult(models.ErrCodeValidation, "code is required"), nil
	}

	score, issues := staticReview(code, payload.String("language"))
	return models.SuccessResult(map[string]any{
		"score":  score,
		"issues": issues,
		"passed": score >= passingScore,
	}), nil
}

func (r *Reviewer) compareSubmissions(ctx context.Context, cctx *models.Context, payload *models.Payload) (*models.Result, error) {
	taskID := payload.String("task_id")
	if taskID == "" {
		return models.ErrorResult(models.ErrCodeValidation, "task_id is required"), nil
	}
	if r.subs == nil {
		return models.ErrorResult(models.ErrCodeProcessing, "submission store not configured"), nil
	}

	outcomes, err := r.subs.GetTaskOutcomes(ctx, cctx.UserID, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task outcomes: %w", err)
	}
	switch len(outcomes) {
	case 0:
		return models.ErrorResult(models.ErrCodeValidation,
			fmt.Sprintf("no submissions for task %s", taskID)), nil
	case 1:
		return models.SuccessResult(map[string]any{
			"task_id":    taskID,
			"attempts":   1,
			"comparable": false,
		}), nil
	}

	latest := outcomes[len(outcomes)-1]
	previous := outcomes[len(outcomes)-2]
	delta := latest.Score - previous.Score

	return models.SuccessResult(map[string]any{
		"task_id":        taskID,
		"attempts":       len(outcomes),
		"comparable":     true,
		"latest_score":   latest.Score,
		"previous_score": previous.Score,
		"score_delta":    delta,
		"improved":       delta > 0 || (!previous.Passed && latest.Passed),
	}), nil
}

// validateSolution is the strict gate: every test must pass and no security
// violation may be present. Static review substitutes when no runner is
// configured.
func (r *Reviewer) validateSolution(ctx context.Context, payload *models.Payload) (*models.Result, error) {
	code := payload.String("code")
	if code == "" {
		return models.ErrorResult(models.ErrCodeValidation, "code is required"), nil
	}

	if r.runner == nil {
		score, issues := staticReview(code, payload.String("language"))
		return models.SuccessResult(map[string]any{
			"valid":   score >= passingScore,
			"reasons": issues,
			"method":  "static",
		}), nil
	}

	req := models.ExecutionRequest{
		Language:  payload.String("language"),
		Code:      code,
		TestCases: testCasesFromPayload(payload),
	}
	res, err := r.runner.ExecuteCode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute code: %w", err)
	}

	v := verdictFromExecution(res)
	reasons := v.failures
	valid := v.passed && len(res.SecurityViolations) == 0
	return models.SuccessResult(map[string]any{
		"valid":   valid,
		"reasons": reasons,
		"method":  "sandbox",
	}), nil
}

// buildFeedback renders the verdict as learner-facing prose.
func buildFeedback(v verdict) string {
	var b strings.Builder
	switch {
	case v.score >= 90:
		b.WriteString("Excellent work: a clean pass.")
	case v.score >= 75:
		b.WriteString("Solid solution.")
	case v.passed:
		b.WriteString("You passed, with room to tighten things up.")
	default:
		b.WriteString("Not passing yet. Keep at it.")
	}
	if v.testsTotal > 0 {
		fmt.Fprintf(&b, " %d of %d tests passed.", v.testsPassed, v.testsTotal)
	}
	if len(v.failures) > 0 {
		fmt.Fprintf(&b, " Look at: %s.", strings.Join(v.failures, ", "))
	}
	return b.String()
}

// staticReview is the heuristic evaluation used when no sandbox verdict is
// available. Scores are capped at staticScoreCeiling.
func staticReview(code, language string) (float64, []string) {
	var issues []string
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return 0, []string{"no code submitted"}
	}

	score := 40.0
	if hasFunctionDef(trimmed, language) {
		score += 15
	} else {
		issues = append(issues, "no function definition found")
	}
	if strings.Contains(trimmed, "if ") || strings.Contains(trimmed, "for ") || strings.Contains(trimmed, "while ") {
		score += 10
	}
	if strings.Contains(trimmed, "#") || strings.Contains(trimmed, "//") {
		score += 5
	}
	if strings.Count(trimmed, "\n") >= 2 {
		score += 10
	} else {
		issues = append(issues, "solution looks too short to be complete")
	}
	if strings.Contains(code, "TODO") || strings.Contains(code, "FIXME") {
		score -= 10
		issues = append(issues, "unresolved TODO or FIXME markers")
	}
	if !balancedBrackets(code) {
		score -= 20
		issues = append(issues, "unbalanced brackets")
	}

	if score < 0 {
		score = 0
	}
	if score > staticScoreCeiling {
		score = staticScoreCeiling
	}
	return score, issues
}

func hasFunctionDef(code, language string) bool {
	switch language {
	case "python":
		return strings.Contains(code, "def ")
	case "go":
		return strings.Contains(code, "func ")
	case "javascript", "typescript":
		return strings.Contains(code, "function ") || strings.Contains(code, "=>")
	default:
		return strings.Contains(code, "def ") || strings.Contains(code, "func ") ||
			strings.Contains(code, "function ") || strings.Contains(code, "=>")
	}
}

func balancedBrackets(code string) bool {
	pairs := [3][2]rune{{'(', ')'}, {'{', '}'}, {'[', ']'}}
	for _, p := range pairs {
		depth := 0
		for _, r := range code {
			switch r {
			case p[0]:
				depth++
			case p[1]:
				depth--
			}
			if depth < 0 {
				return false
			}
		}
		if depth != 0 {
			return false
		}
	}
	return true
}

// testCasesFromPayload accepts both the typed in-process form and the
// decoded JSON form.
func testCasesFromPayload(payload *models.Payload) []models.TestCase {
	switch v := payload.Data["test_cases"].(type) {
	case []models.TestCase:
		return v
	case []any:
		out := make([]models.TestCase, 0, len(v))
		for _, e := range v {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			tc := models.TestCase{}
			tc.Name, _ = m["name"].(string)
			tc.Input, _ = m["input"].(string)
			tc.Expected, _ = m["expected"].(string)
			tc.Hidden, _ = m["hidden"].(bool)
			out = append(out, tc)
		}
		return out
	}
	return nil
}
