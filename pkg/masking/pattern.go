package masking

import (
	"log/slog"
	"regexp"
	"slices"
)

// Pattern is a named regex masking rule.
type Pattern struct {
	Pattern     string
	Replacement string
	Description string
}

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// resolvedPatterns holds the resolved set of maskers and patterns for a masking operation.
type resolvedPatterns struct {
	codeMaskerNames []string           // Names of code-based maskers to apply
	regexPatterns   []*CompiledPattern // Compiled regex patterns to apply
}

// builtinPatterns returns the regex rules for data learners routinely paste
// into messages and submissions: addresses, hardcoded credentials, provider
// keys, and connection strings.
func builtinPatterns() map[string]Pattern {
	return map[string]Pattern{
		"api_key": {
			Pattern:     `(?i)(?:api[_-]?key|apikey)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-]{16,})["\']?`,
			Replacement: `"api_key": "__MASKED_API_KEY__"`,
			Description: "API keys",
		},
		"password": {
			Pattern:     `(?i)(?:password|pwd|passwd)["\']?\s*[:=]\s*["\']?([^"\'\s\n]{6,})["\']?`,
			Replacement: `"password": "__MASKED_PASSWORD__"`,
			Description: "Passwords",
		},
		"token": {
			Pattern:     `(?i)(?:token|bearer|jwt)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{20,})["\']?`,
			Replacement: `"token": "__MASKED_TOKEN__"`,
			Description: "Access tokens",
		},
		"authorization_header": {
			Pattern:     `(?i)authorization["\']?\s*[:=]?\s*["\']?(?:basic|bearer)\s+[A-Za-z0-9+/_\-\.=]{8,}`,
			Replacement: `Authorization: __MASKED_CREDENTIAL__`,
			Description: "Authorization headers",
		},
		"email": {
			Pattern:     `\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`,
			Replacement: `__MASKED_EMAIL__`,
			Description: "Email addresses",
		},
		"ssh_key": {
			Pattern:     `ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`,
			Replacement: `__MASKED_SSH_KEY__`,
			Description: "SSH public keys",
		},
		"private_key": {
			Pattern:     `(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`,
			Replacement: `__MASKED_PRIVATE_KEY__`,
			Description: "PEM private key blocks",
		},
		"secret_key": {
			Pattern:     `(?i)(?:secret[_-]?key)["\']?\s*[:=]\s*["\']?([A-Za-z0-9_\-\.]{16,})["\']?`,
			Replacement: `"secret_key": "__MASKED_SECRET_KEY__"`,
			Description: "Secret keys",
		},
		"github_token": {
			Pattern:     `\bgh[pousr]_[A-Za-z0-9_]{36,255}\b`,
			Replacement: `__MASKED_GITHUB_TOKEN__`,
			Description: "GitHub tokens",
		},
		"llm_api_key": {
			Pattern:     `\bsk-[A-Za-z0-9_\-]{20,}\b`,
			Replacement: `__MASKED_LLM_API_KEY__`,
			Description: "LLM provider keys",
		},
		// Bracketed replacement so the email rule cannot re-match the
		// placeholder and swallow the host.
		"connection_string": {
			Pattern:     `\b([a-z][a-z0-9+]*://[^/\s:@"']+):([^@\s"']+)@`,
			Replacement: `$1:[MASKED_DB_PASSWORD]@`,
			Description: "Credentials embedded in connection URLs",
		},
	}
}

// builtinPatternGroups returns predefined groups of masking patterns.
// Group members may reference regex patterns or code-based maskers;
// env_credentials is the code-based masker for .env-style assignment blocks.
func builtinPatternGroups() map[string][]string {
	return map[string][]string{
		"basic":       {"api_key", "password"},
		"credentials": {"api_key", "password", "token", "authorization_header", "secret_key", "private_key", "ssh_key"},
		// connection_string precedes email: both can match user:pass@host.tld
		// and the URL rule keeps the host readable.
		"learner_data": {
			"env_credentials", "connection_string", "email", "api_key", "password",
			"token", "authorization_header", "github_token", "llm_api_key",
		},
		"all": {
			"env_credentials", "connection_string", "email", "api_key", "password", "token",
			"authorization_header", "secret_key", "private_key", "ssh_key", "github_token", "llm_api_key",
		},
	}
}

// builtinCodeMaskers lists the code-based maskers groups may reference.
var builtinCodeMaskers = []string{"env_credentials"}

// compileBuiltinPatterns compiles all built-in regex patterns.
// Invalid patterns are logged and skipped.
func (s *Service) compileBuiltinPatterns() {
	for name, pattern := range builtinPatterns() {
		compiled, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			slog.Error("Failed to compile built-in masking pattern, skipping",
				"pattern", name, "error", err)
			continue
		}
		s.patterns[name] = &CompiledPattern{
			Name:        name,
			Regex:       compiled,
			Replacement: pattern.Replacement,
			Description: pattern.Description,
		}
	}
}

// compileCustomPatterns compiles operator-supplied patterns from config.
// Custom patterns are keyed as "custom:{name}" to avoid collisions with
// built-ins and are applied to every masking operation.
func (s *Service) compileCustomPatterns() {
	for _, pattern := range s.cfg.CustomPatterns {
		name := "custom:" + pattern.Name
		compiled, err := regexp.Compile(pattern.Pattern)
		if err != nil {
			slog.Error("Failed to compile custom masking pattern, skipping",
				"pattern", name, "error", err)
			continue
		}
		s.patterns[name] = &CompiledPattern{
			Name:        name,
			Regex:       compiled,
			Replacement: pattern.Replacement,
			Description: pattern.Description,
		}
		s.customNames = append(s.customNames, name)
	}
}

// resolvePatternsFromGroup expands a pattern group name plus the compiled
// custom patterns into a deduplicated resolvedPatterns.
func (s *Service) resolvePatternsFromGroup(groupName string) *resolvedPatterns {
	seen := make(map[string]bool)
	resolved := &resolvedPatterns{}

	for _, name := range s.patternGroups[groupName] {
		if seen[name] {
			continue
		}
		seen[name] = true
		s.addToResolved(resolved, name)
	}

	for _, name := range s.customNames {
		if seen[name] {
			continue
		}
		seen[name] = true
		s.addToResolved(resolved, name)
	}

	return resolved
}

// addToResolved adds a pattern name to the resolved set, categorizing it as
// either a code masker or a regex pattern.
func (s *Service) addToResolved(resolved *resolvedPatterns, name string) {
	if slices.Contains(builtinCodeMaskers, name) {
		resolved.codeMaskerNames = append(resolved.codeMaskerNames, name)
		return
	}

	if cp, ok := s.patterns[name]; ok {
		resolved.regexPatterns = append(resolved.regexPatterns, cp)
	}
}
