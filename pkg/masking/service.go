package masking

import "log/slog"

// DefaultPatternGroup is the pattern group applied when config names none.
const DefaultPatternGroup = "learner_data"

// redactionNotice replaces event content wholesale when masking itself fails.
const redactionNotice = "[REDACTED: data masking failure - event payload could not be safely processed]"

// CustomPattern is an operator-supplied regex masking rule layered on top of
// the built-ins.
type CustomPattern struct {
	Name        string `yaml:"name"`
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Description string `yaml:"description,omitempty"`
}

// Config holds masking settings. CustomPatterns apply to every masking
// operation regardless of the configured pattern group.
type Config struct {
	Enabled        bool            `yaml:"enabled"`
	PatternGroup   string          `yaml:"pattern_group"`
	CustomPatterns []CustomPattern `yaml:"custom_patterns,omitempty"`
}

// Service applies data masking to outbound event payloads and logged free
// text. Created once at application startup (singleton). Thread-safe and
// stateless aside from compiled patterns.
type Service struct {
	cfg           Config
	patterns      map[string]*CompiledPattern // Built-in + custom compiled patterns
	patternGroups map[string][]string         // Group name → pattern names
	codeMaskers   map[string]Masker           // Registered code-based maskers
	customNames   []string                    // Compiled custom pattern keys
}

// NewService creates a masking service with compiled patterns and registered
// maskers. All patterns are compiled eagerly at creation time. Invalid
// patterns are logged and skipped.
func NewService(cfg Config) *Service {
	if cfg.PatternGroup == "" {
		cfg.PatternGroup = DefaultPatternGroup
	}
	s := &Service{
		cfg:           cfg,
		patterns:      make(map[string]*CompiledPattern),
		patternGroups: builtinPatternGroups(),
		codeMaskers:   make(map[string]Masker),
	}

	// 1. Compile all built-in regex patterns
	s.compileBuiltinPatterns()

	// 2. Compile custom patterns from config
	s.compileCustomPatterns()

	// 3. Register code-based maskers
	s.registerMasker(&EnvCredentialMasker{})

	slog.Info("Masking service initialized",
		"enabled", cfg.Enabled,
		"pattern_group", cfg.PatternGroup,
		"compiled_patterns", len(s.patterns),
		"code_maskers", len(s.codeMaskers))

	return s
}

// Enabled reports whether masking is configured on.
func (s *Service) Enabled() bool { return s.cfg.Enabled }

// MaskEventPayload applies masking to serialized event content before it
// leaves the process. On masking failure the content is replaced with a
// redaction notice (fail-closed): events fan out to browsers and webhooks,
// so a redaction notice beats a leak.
func (s *Service) MaskEventPayload(content string) string {
	if !s.cfg.Enabled || content == "" {
		return content
	}

	resolved := s.resolvePatternsFromGroup(s.cfg.PatternGroup)
	if len(resolved.codeMaskerNames) == 0 && len(resolved.regexPatterns) == 0 {
		return content
	}

	masked, err := s.applyMasking(content, resolved)
	if err != nil {
		slog.Error("Event masking failed, redacting content (fail-closed)", "error", err)
		return redactionNotice
	}

	return masked
}

// MaskText applies masking to free text bound for logs or stored summaries.
// On masking failure the original text is returned (fail-open): log lines
// stay inside the operator's boundary and losing them hurts debugging more
// than it protects.
func (s *Service) MaskText(data string) string {
	if !s.cfg.Enabled || data == "" {
		return data
	}

	resolved := s.resolvePatternsFromGroup(s.cfg.PatternGroup)
	if len(resolved.codeMaskerNames) == 0 && len(resolved.regexPatterns) == 0 {
		return data
	}

	masked, err := s.applyMasking(data, resolved)
	if err != nil {
		slog.Error("Text masking failed, continuing with unmasked data (fail-open)", "error", err)
		return data
	}

	return masked
}

// applyMasking applies code-based maskers then regex patterns to content.
func (s *Service) applyMasking(content string, resolved *resolvedPatterns) (string, error) {
	masked := content

	// Phase 1: Code-based maskers (more specific, structural awareness)
	for _, maskerName := range resolved.codeMaskerNames {
		masker, ok := s.codeMaskers[maskerName]
		if !ok {
			continue
		}
		if masker.AppliesTo(masked) {
			masked = masker.Mask(masked)
		}
	}

	// Phase 2: Regex patterns (general sweep)
	for _, pattern := range resolved.regexPatterns {
		masked = pattern.Regex.ReplaceAllString(masked, pattern.Replacement)
	}

	return masked, nil
}

// registerMasker registers a code-based masker by its name.
func (s *Service) registerMasker(m Masker) {
	s.codeMaskers[m.Name()] = m
}
