package masking

import (
	"regexp"
	"strings"
)

// MaskedEnvValue is the replacement string for masked env assignment values.
const MaskedEnvValue = "[MASKED_ENV_VALUE]"

var (
	// envAssignPattern matches one KEY=value assignment line, shell export
	// prefix included. The value must not start with '=' so comparison
	// operators in pasted code are left alone.
	envAssignPattern = regexp.MustCompile(`^(\s*(?:export\s+)?)([A-Za-z_][A-Za-z0-9_]*)(\s*=\s*)([^=\s].*?)\s*$`)

	// sensitiveKeyPattern decides whether an assignment key names a credential.
	sensitiveKeyPattern = regexp.MustCompile(`(?i)(?:key|token|secret|password|passwd|pwd|credential|auth)`)
)

// envMarkers gates AppliesTo; checked with a cheap Contains before any
// per-line work happens.
var envMarkers = []string{"key", "token", "secret", "password", "passwd", "pwd", "credential", "auth"}

// EnvCredentialMasker masks the values of credential-looking KEY=value
// assignments while leaving ordinary variables and the rest of the text
// untouched. Learners paste .env files and snippets with hardcoded secrets
// into messages and submissions; this keeps the shape of the snippet intact
// so feedback can still reference it.
type EnvCredentialMasker struct{}

// Name returns the unique identifier for this masker.
func (m *EnvCredentialMasker) Name() string { return "env_credentials" }

// AppliesTo performs a lightweight check on whether this masker should process the data.
func (m *EnvCredentialMasker) AppliesTo(data string) bool {
	if !strings.Contains(data, "=") {
		return false
	}
	lower := strings.ToLower(data)
	for _, marker := range envMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// Mask rewrites credential assignment values line by line.
// Returns original data when no line qualifies (defensive).
func (m *EnvCredentialMasker) Mask(data string) string {
	lines := strings.Split(data, "\n")
	changed := false
	for i, line := range lines {
		masked, ok := maskEnvLine(line)
		if ok {
			lines[i] = masked
			changed = true
		}
	}
	if !changed {
		return data
	}
	return strings.Join(lines, "\n")
}

// maskEnvLine masks a single assignment line when its key looks sensitive.
// The second return reports whether the line was rewritten.
func maskEnvLine(line string) (string, bool) {
	match := envAssignPattern.FindStringSubmatch(line)
	if match == nil {
		return line, false
	}
	prefix, key, sep, value := match[1], match[2], match[3], match[4]
	if !sensitiveKeyPattern.MatchString(key) {
		return line, false
	}
	if value == MaskedEnvValue {
		return line, false
	}
	return prefix + key + sep + MaskedEnvValue, true
}
