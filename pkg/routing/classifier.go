package routing

import (
	"sort"
	"strings"
	"unicode"

	"github.com/learnloop/mentor/pkg/models"
)

// maxAlternatives caps how many runner-up intents a classification reports.
const maxAlternatives = 3

// Alternative is a runner-up intent that also scored non-zero.
type Alternative struct {
	Intent models.Intent `json:"intent"`
	Score  float64       `json:"score"`
}

// Classification is the outcome of classifying one free-text message.
// Matched is false when no phrase scored or confidence fell below the
// router's minimum; Intent and TargetAgent are zero in that case.
type Classification struct {
	Matched      bool             `json:"matched"`
	Intent       models.Intent    `json:"intent,omitempty"`
	TargetAgent  models.AgentType `json:"target_agent,omitempty"`
	Confidence   float64          `json:"confidence"`
	Score        float64          `json:"score"`
	Alternatives []Alternative    `json:"alternatives,omitempty"`
}

// compiledPhrase is a pre-tokenized phrase ready for matching.
type compiledPhrase struct {
	tokens []string
	weight float64
}

// compiledEntry carries all phrases for one intent plus its routed agent.
type compiledEntry struct {
	intent  models.Intent
	agent   models.AgentType
	phrases []compiledPhrase
}

// keywordTable is an immutable compiled phrase table. The router swaps whole
// tables atomically on reload; a table is never mutated after compile.
type keywordTable struct {
	entries []compiledEntry
}

// compileKeywords builds a keywordTable from phrase lists, preserving input
// order. Entries for unrouted intents and phrases that tokenize to nothing
// are dropped and reported in the returned slice so callers can log them.
func compileKeywords(lists []IntentKeywords) (*keywordTable, []string) {
	var skipped []string
	table := &keywordTable{entries: make([]compiledEntry, 0, len(lists))}
	for _, list := range lists {
		agent, intent, ok := RouteIntentString(list.Intent)
		if !ok {
			skipped = append(skipped, list.Intent)
			continue
		}
		entry := compiledEntry{intent: intent, agent: agent}
		for _, p := range list.Phrases {
			tokens := tokenize(p.Phrase)
			if len(tokens) == 0 || p.Weight <= 0 {
				skipped = append(skipped, list.Intent+": "+p.Phrase)
				continue
			}
			entry.phrases = append(entry.phrases, compiledPhrase{tokens: tokens, weight: p.Weight})
		}
		if len(entry.phrases) > 0 {
			table.entries = append(table.entries, entry)
		}
	}
	return table, skipped
}

// mergeKeywords overlays override lists onto the defaults. An override for an
// intent replaces that intent's default phrases wholesale; intents the
// override does not name keep their defaults. Overrides for intents absent
// from the defaults are appended at the end, in override order.
func mergeKeywords(defaults, overrides []IntentKeywords) []IntentKeywords {
	byIntent := make(map[string]IntentKeywords, len(overrides))
	for _, o := range overrides {
		byIntent[o.Intent] = o
	}
	merged := make([]IntentKeywords, 0, len(defaults)+len(overrides))
	for _, d := range defaults {
		if o, ok := byIntent[d.Intent]; ok {
			merged = append(merged, o)
			delete(byIntent, d.Intent)
			continue
		}
		merged = append(merged, d)
	}
	for _, o := range overrides {
		if _, pending := byIntent[o.Intent]; pending {
			merged = append(merged, o)
			delete(byIntent, o.Intent)
		}
	}
	return merged
}

// tokenize lowercases the text and splits it on any non-letter, non-digit
// rune. Punctuation and casing therefore never affect matching.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// countOccurrences counts contiguous occurrences of phrase within tokens.
// Occurrences may overlap; each start position is checked independently.
func countOccurrences(tokens, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return 0
	}
	count := 0
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, p := range phrase {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			count++
		}
	}
	return count
}

// classify scores the message against every entry and derives the winner and
// its confidence. minConfidence gates the match; ties on the top score go to
// the earliest-declared intent.
func (t *keywordTable) classify(message string, minConfidence float64) Classification {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return Classification{}
	}

	type scored struct {
		entry compiledEntry
		score float64
	}
	var (
		nonZero  []scored
		sum      float64
		best     scored
		haveBest bool
	)
	for _, entry := range t.entries {
		score := 0.0
		for _, p := range entry.phrases {
			if n := countOccurrences(tokens, p.tokens); n > 0 {
				score += p.weight * float64(n)
			}
		}
		if score <= 0 {
			continue
		}
		s := scored{entry: entry, score: score}
		nonZero = append(nonZero, s)
		sum += score
		if !haveBest || score > best.score {
			best = s
			haveBest = true
		}
	}
	if !haveBest {
		return Classification{}
	}

	confidence := best.score / sum
	out := Classification{
		Confidence: confidence,
		Score:      best.score,
	}
	if confidence < minConfidence {
		return out
	}
	out.Matched = true
	out.Intent = best.entry.intent
	out.TargetAgent = best.entry.agent

	var rest []scored
	for _, s := range nonZero {
		if s.entry.intent != best.entry.intent {
			rest = append(rest, s)
		}
	}
	sort.SliceStable(rest, func(i, j int) bool { return rest[i].score > rest[j].score })
	for i, s := range rest {
		if i == maxAlternatives {
			break
		}
		out.Alternatives = append(out.Alternatives, Alternative{Intent: s.entry.intent, Score: s.score})
	}
	return out
}
