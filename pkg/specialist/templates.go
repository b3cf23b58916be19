package specialist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/learnloop/mentor/pkg/models"
)

// exerciseTemplate is one entry of the built-in catalog. The same base
// exercise serves every difficulty; buildExercise tightens the requirements
// and trims the hints as difficulty rises.
type exerciseTemplate struct {
	topic       string
	title       string
	description string
	starter     map[string]string
	tests       []models.TestCase
	hints       []string
}

var exerciseCatalog = map[string]exerciseTemplate{
	"fundamentals": {
		topic:       "fundamentals",
		title:       "FizzBuzz essentials",
		description: "Write a function that returns \"Fizz\" for multiples of 3, \"Buzz\" for multiples of 5, \"FizzBuzz\" for multiples of both, and the number itself otherwise.",
		starter: map[string]string{
			"python": "def fizzbuzz(n):\n    # return the FizzBuzz word for n\n    pass\n",
			"go":     "func fizzbuzz(n int) string {\n\t// return the FizzBuzz word for n\n\treturn \"\"\n}\n",
		},
		tests: []models.TestCase{
			{Name: "multiple of three", Input: "3", Expected: "Fizz"},
			{Name: "multiple of five", Input: "5", Expected: "Buzz"},
			{Name: "multiple of both", Input: "15", Expected: "FizzBuzz"},
			{Name: "plain number", Input: "7", Expected: "7"},
		},
		hints: []string{
			"The modulo operator tells you whether one number divides another.",
			"Check the multiple-of-both case before the single-multiple cases.",
			"Remember to return the number as a string in the default case.",
		},
	},
	"strings": {
		topic:       "strings",
		title:       "Reverse the words",
		description: "Write a function that reverses the order of words in a sentence while keeping each word intact.",
		starter: map[string]string{
			"python": "def reverse_words(sentence):\n    # \"hello world\" -> \"world hello\"\n    pass\n",
			"go":     "func reverseWords(sentence string) string {\n\t// \"hello world\" -> \"world hello\"\n\treturn \"\"\n}\n",
		},
		tests: []models.TestCase{
			{Name: "two words", Input: "hello world", Expected: "world hello"},
			{Name: "single word", Input: "solo", Expected: "solo"},
			{Name: "empty input", Input: "", Expected: "", Hidden: true},
		},
		hints: []string{
			"Split the sentence on spaces first.",
			"Reversing a list of words is easier than reversing characters.",
			"Join the reversed words back with single spaces.",
		},
	},
	"collections": {
		topic:       "collections",
		title:       "Most frequent element",
		description: "Write a function that returns the most frequent element of a list. When several elements tie, return the one that appeared first.",
		starter: map[string]string{
			"python": "def most_frequent(items):\n    # [1, 2, 2, 3] -> 2\n    pass\n",
			"go":     "func mostFrequent(items []string) string {\n\t// counts ties by first appearance\n\treturn \"\"\n}\n",
		},
		tests: []models.TestCase{
			{Name: "clear winner", Input: "1,2,2,3", Expected: "2"},
			{Name: "strings", Input: "a,b,a", Expected: "a"},
			{Name: "tie keeps first seen", Input: "x,y", Expected: "x", Hidden: true},
		},
		hints: []string{
			"A map from element to count gets you the frequencies in one pass.",
			"Track the best element while counting instead of sorting afterwards.",
			"For ties, only replace the best element on a strictly higher count.",
		},
	},
	"algorithms": {
		topic:       "algorithms",
		title:       "Binary search",
		description: "Write a function that returns the index of a target value in a sorted list, or -1 when the value is absent.",
		starter: map[string]string{
			"python": "def binary_search(values, target):\n    # values is sorted ascending\n    pass\n",
			"go":     "func binarySearch(values []int, target int) int {\n\t// values is sorted ascending\n\treturn -1\n}\n",
		},
		tests: []models.TestCase{
			{Name: "present in middle", Input: "[1,3,5,7] 5", Expected: "2"},
			{Name: "absent", Input: "[1,3,5,7] 2", Expected: "-1"},
			{Name: "empty list", Input: "[] 1", Expected: "-1", Hidden: true},
		},
		hints: []string{
			"Keep a low and a high index and narrow the window each step.",
			"Compute the midpoint without overflowing: low + (high-low)/2.",
			"The loop ends when low passes high; that means not found.",
		},
	},
	"general": {
		topic:       "general",
		title:       "Sum of a list",
		description: "Write a function that returns the sum of a list of numbers. An empty list sums to zero.",
		starter: map[string]string{
			"python": "def total(numbers):\n    pass\n",
			"go":     "func total(numbers []int) int {\n\treturn 0\n}\n",
		},
		tests: []models.TestCase{
			{Name: "small list", Input: "1,2,3", Expected: "6"},
			{Name: "empty list", Input: "", Expected: "0"},
			{Name: "negatives cancel", Input: "-1,1", Expected: "0"},
		},
		hints: []string{
			"Start an accumulator at zero and add every element to it.",
			"The empty list needs no special case if the accumulator starts at zero.",
			"Watch the types: the sum of ints should stay an int.",
		},
	},
}

// catalogTopics returns the catalog keys, sorted for deterministic matching.
func catalogTopics() []string {
	topics := make([]string, 0, len(exerciseCatalog))
	for t := range exerciseCatalog {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// templateFor picks the catalog entry for a topic: exact key first, then the
// first key contained in the topic string, then the general fallback.
func templateFor(topic string) exerciseTemplate {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if tpl, ok := exerciseCatalog[topic]; ok {
		return tpl
	}
	for _, key := range catalogTopics() {
		if key != "general" && strings.Contains(topic, key) {
			return exerciseCatalog[key]
		}
	}
	return exerciseCatalog["general"]
}

func difficultyForLevel(level models.SkillLevel) string {
	switch level {
	case models.SkillAdvanced, models.SkillExpert:
		return "hard"
	case models.SkillIntermediate:
		return "medium"
	default:
		return "easy"
	}
}

// buildExercise instantiates a template at the given difficulty. Higher
// difficulties append stricter requirements and reveal fewer hints.
func buildExercise(topic, language, difficulty string, level models.SkillLevel) *models.Exercise {
	tpl := templateFor(topic)
	if topic == "" {
		topic = tpl.topic
	}
	if language == "" {
		language = "python"
	}
	if difficulty == "" {
		difficulty = difficultyForLevel(level)
	}

	description := tpl.description
	hints := tpl.hints
	switch difficulty {
	case "medium":
		description += " Handle empty and edge-case inputs without special-casing your tests."
		hints = hints[:2]
	case "hard":
		description += " Solve it in a single pass where possible and report invalid input explicitly."
		hints = hints[:1]
	}

	return &models.Exercise{
		ID:          uuid.NewString(),
		Title:       tpl.title,
		Topic:       topic,
		Difficulty:  difficulty,
		SkillLevel:  level,
		Description: description,
		StarterCode: tpl.starter[language],
		Language:    language,
		TestCases:   tpl.tests,
		Hints:       hints,
		Source:      "template",
	}
}

// buildProjectExercise produces an open-ended project brief. Projects carry
// no test cases; they are reviewed against the brief.
func buildProjectExercise(topic, language string, level models.SkillLevel) *models.Exercise {
	if topic == "" {
		topic = "general"
	}
	if language == "" {
		language = "python"
	}
	difficulty := difficultyForLevel(level)

	return &models.Exercise{
		ID:         uuid.NewString(),
		Title:      fmt.Sprintf("Project: a small %s tool", topic),
		Topic:      topic,
		Difficulty: difficulty,
		SkillLevel: level,
		Description: fmt.Sprintf(
			"Build a small command-line tool that exercises %s: read input, process it, and print a result. "+
				"Ship a README explaining how to run it and what trade-offs you made.", topic),
		Language: language,
		Hints: []string{
			"Start with the smallest input-to-output path and grow from there.",
			"Separate parsing, processing, and printing so each part is testable.",
		},
		Source: "template",
	}
}
