package errors

import (
	"strings"
	"unicode"
)

// ValidateRootName validates a name under which a measurement root is
// registered (for example on the debug HTTP surface).
// It rejects names that could be used for path traversal or injection attacks.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateRootName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidRoot, "root name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidRoot, "root name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidRoot, "root name contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Windows path separator
		"\x00", // Null byte
	}
	for _, p := range dangerousPatterns {
		if strings.Contains(name, p) {
			return New(ErrCodeInvalidRoot, "root name contains invalid sequence %q", p)
		}
	}

	return nil
}
