package todo

import "strings"

// Sanitize strips characters that corrupt terminal output or disguise text:
// control characters, zero-width characters, and bidirectional overrides.
// Printable content is preserved as typed (no compatibility normalization),
// and surrounding whitespace is trimmed.
func Sanitize(s string) string {
	var b strings.Builder

	b.Grow(len(s))

	for _, r := range s {
		if isControl(r) || isZeroWidth(r) || isBidiOverride(r) {
			continue
		}

		b.WriteRune(r)
	}

	return strings.TrimSpace(b.String())
}

func isControl(r rune) bool {
	return (r >= 0x00 && r <= 0x1F) || r == 0x7F
}

func isZeroWidth(r rune) bool {
	return (r >= 0x200B && r <= 0x200D) || r == 0x2060 || r == 0xFEFF
}

func isBidiOverride(r rune) bool {
	return (r >= 0x202A && r <= 0x202E) || (r >= 0x2066 && r <= 0x2069)
}
