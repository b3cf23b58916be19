package masking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileBuiltinPatterns(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	// All built-in patterns should compile successfully
	assert.Equal(t, len(builtinPatterns()), len(svc.patterns),
		"All built-in patterns should compile (no custom patterns configured)")

	for name, cp := range svc.patterns {
		assert.NotNil(t, cp.Regex, "Pattern %s should have compiled regex", name)
		assert.NotEmpty(t, cp.Replacement, "Pattern %s should have replacement", name)
	}
}

func TestCompileCustomPatterns(t *testing.T) {
	svc := NewService(Config{
		Enabled: true,
		CustomPatterns: []CustomPattern{
			{
				Name:        "course_code",
				Pattern:     `COURSE_SECRET_[A-Za-z0-9]+`,
				Replacement: "[MASKED_COURSE_SECRET]",
				Description: "Course enrollment secrets",
			},
		},
	})

	assert.Equal(t, len(builtinPatterns())+1, len(svc.patterns))

	cp, exists := svc.patterns["custom:course_code"]
	require.True(t, exists, "Custom pattern should be registered")
	assert.Equal(t, "[MASKED_COURSE_SECRET]", cp.Replacement)
}

func TestCompileCustomPatterns_InvalidRegex(t *testing.T) {
	svc := NewService(Config{
		Enabled: true,
		CustomPatterns: []CustomPattern{
			{Name: "broken", Pattern: `[invalid`, Replacement: "[MASKED]"},
			{Name: "valid", Pattern: `valid_pattern`, Replacement: "[MASKED_VALID]"},
		},
	})

	// Invalid pattern should be skipped, valid one compiled
	_, invalidExists := svc.patterns["custom:broken"]
	assert.False(t, invalidExists, "Invalid regex pattern should be skipped")

	_, validExists := svc.patterns["custom:valid"]
	assert.True(t, validExists, "Valid pattern should be compiled")
}

func TestResolvePatternsFromGroup(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	resolved := svc.resolvePatternsFromGroup("learner_data")
	assert.Contains(t, resolved.codeMaskerNames, "env_credentials")
	assert.NotEmpty(t, resolved.regexPatterns)

	names := make([]string, 0, len(resolved.regexPatterns))
	for _, cp := range resolved.regexPatterns {
		names = append(names, cp.Name)
	}
	assert.Contains(t, names, "email")
	assert.Contains(t, names, "llm_api_key")
}

func TestResolvePatternsFromGroup_Unknown(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	resolved := svc.resolvePatternsFromGroup("no_such_group")
	assert.Empty(t, resolved.codeMaskerNames)
	assert.Empty(t, resolved.regexPatterns)
}

func TestResolvePatternsFromGroup_CustomAlwaysIncluded(t *testing.T) {
	svc := NewService(Config{
		Enabled:      true,
		PatternGroup: "basic",
		CustomPatterns: []CustomPattern{
			{Name: "course_code", Pattern: `COURSE_SECRET_\w+`, Replacement: "[MASKED]"},
		},
	})

	resolved := svc.resolvePatternsFromGroup("basic")
	names := make([]string, 0, len(resolved.regexPatterns))
	for _, cp := range resolved.regexPatterns {
		names = append(names, cp.Name)
	}
	assert.Contains(t, names, "custom:course_code",
		"Custom patterns apply regardless of the configured group")
}

func TestPatternGroups_ReferenceOnlyKnownPatterns(t *testing.T) {
	svc := NewService(Config{Enabled: true})

	for group, members := range builtinPatternGroups() {
		for _, name := range members {
			if name == "env_credentials" {
				assert.Contains(t, svc.codeMaskers, name,
					"group %s references unregistered code masker %s", group, name)
				continue
			}
			assert.Contains(t, svc.patterns, name,
				"group %s references unknown pattern %s", group, name)
		}
	}
}
