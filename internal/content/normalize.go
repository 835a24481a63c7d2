package content

import (
	"strings"
	"unicode"
)

// MaxContentLen is the upper bound on normalized clip content.
// Longer input is cut off silently to protect against unbounded payloads.
const MaxContentLen = 20000

// Normalize trims surrounding whitespace and bounds the length of clip text.
// An input that trims to nothing comes back as the empty string; the caller
// must treat that as a validation failure, not as a valid clip.
// The function is pure and idempotent.
func Normalize(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	runes := []rune(trimmed)
	if len(runes) > MaxContentLen {
		// the cut can expose trailing whitespace; trim again so the
		// result is a fixed point of Normalize
		return strings.TrimRightFunc(string(runes[:MaxContentLen]), unicode.IsSpace)
	}
	return trimmed
}
