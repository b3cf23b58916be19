package routing

// WeightedPhrase is one scoring phrase. Multi-word phrases match as a
// contiguous token sequence; weight scales each occurrence.
type WeightedPhrase struct {
	Phrase string  `yaml:"phrase"`
	Weight float64 `yaml:"weight"`
}

// IntentKeywords holds the curated phrase list for one intent. Used both for
// the built-in defaults below and as the YAML override file schema.
type IntentKeywords struct {
	Intent  string           `yaml:"intent"`
	Phrases []WeightedPhrase `yaml:"phrases"`
}

// defaultKeywords is the built-in phrase table. Order follows the routing
// table so classification ties resolve the same way as intent lookup.
// Weights: 3 = unambiguous ask, 2 = strong signal, 1 = supporting vocabulary.
var defaultKeywords = []IntentKeywords{
	{Intent: "assess_skill_level", Phrases: []WeightedPhrase{
		{Phrase: "assess my skill", Weight: 3},
		{Phrase: "skill assessment", Weight: 3},
		{Phrase: "how good am i", Weight: 2},
		{Phrase: "what level am i", Weight: 2},
		{Phrase: "diagnostic", Weight: 1},
	}},
	{Intent: "update_goals", Phrases: []WeightedPhrase{
		{Phrase: "update my goals", Weight: 3},
		{Phrase: "change my goals", Weight: 3},
		{Phrase: "new learning goal", Weight: 2},
		{Phrase: "goal", Weight: 1},
	}},
	{Intent: "set_constraints", Phrases: []WeightedPhrase{
		{Phrase: "hours per week", Weight: 3},
		{Phrase: "time constraint", Weight: 3},
		{Phrase: "available time", Weight: 2},
		{Phrase: "busy schedule", Weight: 2},
	}},
	{Intent: "create_profile", Phrases: []WeightedPhrase{
		{Phrase: "create my profile", Weight: 3},
		{Phrase: "sign me up", Weight: 2},
		{Phrase: "get started", Weight: 1},
	}},
	{Intent: "update_profile", Phrases: []WeightedPhrase{
		{Phrase: "update my profile", Weight: 3},
		{Phrase: "edit my profile", Weight: 3},
	}},
	{Intent: "get_profile", Phrases: []WeightedPhrase{
		{Phrase: "show my profile", Weight: 3},
		{Phrase: "my profile", Weight: 2},
	}},
	{Intent: "parse_timeframe", Phrases: []WeightedPhrase{
		{Phrase: "by the end of", Weight: 2},
		{Phrase: "in three months", Weight: 2},
		{Phrase: "deadline", Weight: 2},
	}},

	{Intent: "create_learning_path", Phrases: []WeightedPhrase{
		{Phrase: "learning path", Weight: 3},
		{Phrase: "study plan", Weight: 3},
		{Phrase: "learn from scratch", Weight: 2},
		{Phrase: "roadmap", Weight: 2},
		{Phrase: "i want to learn", Weight: 2},
	}},
	{Intent: "generate_curriculum", Phrases: []WeightedPhrase{
		{Phrase: "generate a curriculum", Weight: 3},
		{Phrase: "curriculum", Weight: 2},
		{Phrase: "syllabus", Weight: 2},
	}},
	{Intent: "update_curriculum", Phrases: []WeightedPhrase{
		{Phrase: "update my curriculum", Weight: 3},
		{Phrase: "revise the plan", Weight: 2},
		{Phrase: "change my plan", Weight: 2},
	}},
	{Intent: "adapt_difficulty", Phrases: []WeightedPhrase{
		{Phrase: "too hard", Weight: 3},
		{Phrase: "too easy", Weight: 3},
		{Phrase: "too difficult", Weight: 3},
		{Phrase: "struggling with", Weight: 2},
		{Phrase: "not challenging", Weight: 2},
	}},
	{Intent: "request_next_topic", Phrases: []WeightedPhrase{
		{Phrase: "next topic", Weight: 3},
		{Phrase: "what should i learn next", Weight: 3},
		{Phrase: "what comes next", Weight: 2},
	}},
	{Intent: "get_curriculum_status", Phrases: []WeightedPhrase{
		{Phrase: "where am i in the plan", Weight: 3},
		{Phrase: "plan status", Weight: 2},
		{Phrase: "how far along", Weight: 2},
	}},
	{Intent: "schedule_spaced_repetition", Phrases: []WeightedPhrase{
		{Phrase: "spaced repetition", Weight: 3},
		{Phrase: "review schedule", Weight: 2},
		{Phrase: "revisit", Weight: 1},
	}},
	{Intent: "add_mini_project", Phrases: []WeightedPhrase{
		{Phrase: "mini project", Weight: 3},
		{Phrase: "add a project", Weight: 2},
		{Phrase: "build something", Weight: 2},
	}},
	{Intent: "adjust_pacing", Phrases: []WeightedPhrase{
		{Phrase: "slow down", Weight: 3},
		{Phrase: "speed up", Weight: 3},
		{Phrase: "going too fast", Weight: 2},
		{Phrase: "pace", Weight: 1},
	}},

	{Intent: "generate_exercise", Phrases: []WeightedPhrase{
		{Phrase: "give me an exercise", Weight: 3},
		{Phrase: "practice problem", Weight: 3},
		{Phrase: "exercise", Weight: 2},
		{Phrase: "practice", Weight: 1},
	}},
	{Intent: "create_test_cases", Phrases: []WeightedPhrase{
		{Phrase: "test cases", Weight: 3},
		{Phrase: "write tests for", Weight: 2},
	}},
	{Intent: "generate_hints", Phrases: []WeightedPhrase{
		{Phrase: "give me a hint", Weight: 3},
		{Phrase: "hint", Weight: 2},
		{Phrase: "stuck", Weight: 2},
		{Phrase: "nudge", Weight: 1},
	}},
	{Intent: "create_stretch_exercise", Phrases: []WeightedPhrase{
		{Phrase: "harder exercise", Weight: 3},
		{Phrase: "challenge me", Weight: 3},
		{Phrase: "stretch goal", Weight: 2},
	}},
	{Intent: "create_recap_exercise", Phrases: []WeightedPhrase{
		{Phrase: "recap exercise", Weight: 3},
		{Phrase: "refresher", Weight: 2},
		{Phrase: "review exercise", Weight: 2},
	}},
	{Intent: "generate_project_exercise", Phrases: []WeightedPhrase{
		{Phrase: "project exercise", Weight: 3},
		{Phrase: "capstone", Weight: 2},
	}},

	{Intent: "evaluate_submission", Phrases: []WeightedPhrase{
		{Phrase: "check my solution", Weight: 3},
		{Phrase: "review my code", Weight: 3},
		{Phrase: "grade my", Weight: 2},
		{Phrase: "is this correct", Weight: 2},
		{Phrase: "submit", Weight: 1},
	}},
	{Intent: "run_tests", Phrases: []WeightedPhrase{
		{Phrase: "run the tests", Weight: 3},
		{Phrase: "do the tests pass", Weight: 2},
	}},
	{Intent: "generate_feedback", Phrases: []WeightedPhrase{
		{Phrase: "feedback on", Weight: 3},
		{Phrase: "what did i do wrong", Weight: 2},
		{Phrase: "feedback", Weight: 1},
	}},
	{Intent: "check_code_quality", Phrases: []WeightedPhrase{
		{Phrase: "code quality", Weight: 3},
		{Phrase: "is my code idiomatic", Weight: 3},
		{Phrase: "code smell", Weight: 2},
		{Phrase: "readability", Weight: 1},
	}},
	{Intent: "compare_submissions", Phrases: []WeightedPhrase{
		{Phrase: "compare my attempts", Weight: 3},
		{Phrase: "better than last time", Weight: 2},
	}},
	{Intent: "validate_solution", Phrases: []WeightedPhrase{
		{Phrase: "validate my solution", Weight: 3},
		{Phrase: "does this compile", Weight: 2},
	}},

	{Intent: "search_resources", Phrases: []WeightedPhrase{
		{Phrase: "find documentation", Weight: 3},
		{Phrase: "search for", Weight: 2},
		{Phrase: "docs on", Weight: 2},
		{Phrase: "documentation", Weight: 1},
	}},
	{Intent: "get_resource_content", Phrases: []WeightedPhrase{
		{Phrase: "show me the article", Weight: 3},
		{Phrase: "open that resource", Weight: 2},
	}},
	{Intent: "recommend_resources", Phrases: []WeightedPhrase{
		{Phrase: "recommend reading", Weight: 3},
		{Phrase: "what should i read", Weight: 3},
		{Phrase: "good tutorial", Weight: 2},
		{Phrase: "recommend", Weight: 1},
	}},
	{Intent: "verify_resource_quality", Phrases: []WeightedPhrase{
		{Phrase: "is this resource good", Weight: 3},
		{Phrase: "up to date", Weight: 2},
		{Phrase: "trustworthy", Weight: 2},
	}},
	{Intent: "find_related_resources", Phrases: []WeightedPhrase{
		{Phrase: "related resources", Weight: 3},
		{Phrase: "more like this", Weight: 2},
	}},
	{Intent: "curate_learning_path_resources", Phrases: []WeightedPhrase{
		{Phrase: "resources for my plan", Weight: 3},
		{Phrase: "reading list", Weight: 2},
	}},

	{Intent: "record_attempt", Phrases: []WeightedPhrase{
		{Phrase: "i finished", Weight: 3},
		{Phrase: "i completed", Weight: 3},
		{Phrase: "mark as done", Weight: 2},
		{Phrase: "done with", Weight: 1},
	}},
	{Intent: "update_progress", Phrases: []WeightedPhrase{
		{Phrase: "update my progress", Weight: 3},
		{Phrase: "sync progress", Weight: 2},
	}},
	{Intent: "get_progress", Phrases: []WeightedPhrase{
		{Phrase: "how am i doing", Weight: 3},
		{Phrase: "my progress", Weight: 3},
		{Phrase: "show progress", Weight: 2},
		{Phrase: "progress", Weight: 1},
	}},
	{Intent: "detect_adaptation_triggers", Phrases: []WeightedPhrase{
		{Phrase: "should the plan change", Weight: 3},
		{Phrase: "adaptation check", Weight: 2},
	}},
	{Intent: "get_streak", Phrases: []WeightedPhrase{
		{Phrase: "streak", Weight: 3},
		{Phrase: "days in a row", Weight: 2},
	}},
	{Intent: "get_metrics", Phrases: []WeightedPhrase{
		{Phrase: "my stats", Weight: 3},
		{Phrase: "metrics", Weight: 2},
		{Phrase: "completion rate", Weight: 2},
	}},
}
