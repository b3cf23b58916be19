package masking

// Masker is the interface for code-based maskers that need structural awareness
// beyond regex pattern matching. Code-based maskers can parse line or document
// structure and apply context-sensitive masking (e.g., mask the values of
// credential-looking env assignments but not ordinary variables).
type Masker interface {
	// Name returns the unique identifier for this masker.
	// Must match the entry in builtinCodeMaskers.
	Name() string

	// AppliesTo performs a lightweight check on whether this masker
	// should process the data. Should be fast (string contains, not parsing).
	AppliesTo(data string) bool

	// Mask applies masking logic and returns the masked result.
	// Must be defensive: return original data on parse/processing errors.
	Mask(data string) string
}
