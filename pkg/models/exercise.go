package models

// Exercise is a generated practice task handed to a learner.
type Exercise struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Topic       string     `json:"topic"`
	Difficulty  string     `json:"difficulty"`
	SkillLevel  SkillLevel `json:"skill_level"`
	Description string     `json:"description"`
	StarterCode string     `json:"starter_code,omitempty"`
	Language    string     `json:"language,omitempty"`
	TestCases   []TestCase `json:"test_cases,omitempty"`
	Hints       []string   `json:"hints,omitempty"`
	Source      string     `json:"source"` // template or llm
}

// TestCase is one input/expected pair used to evaluate a submission.
type TestCase struct {
	Name     string `json:"name"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Hidden   bool   `json:"hidden,omitempty"`
}

// ExecutionRequest is sent to the sandboxed code runner.
type ExecutionRequest struct {
	Language  string     `json:"language"`
	Code      string     `json:"code"`
	TestCases []TestCase `json:"test_cases,omitempty"`
	TimeoutMS int        `json:"timeout_ms,omitempty"`
}

// ExecutionResult is the sandbox verdict.
type ExecutionResult struct {
	Status             string       `json:"status"` // passed, failed, error, timeout
	Output             string       `json:"output,omitempty"`
	Errors             string       `json:"errors,omitempty"`
	TestResults        []TestResult `json:"test_results,omitempty"`
	ExecutionTimeMS    int          `json:"execution_time_ms"`
	SecurityViolations []string     `json:"security_violations,omitempty"`
}

// TestResult is the outcome of one test case.
type TestResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Got    string `json:"got,omitempty"`
	Want   string `json:"want,omitempty"`
}
