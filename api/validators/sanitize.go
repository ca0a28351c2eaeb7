package validators

import (
	"strings"
	"unicode"
)

// SanitizeString strips control characters, collapses whitespace runs to a
// single space and truncates to maxLen runes. maxLen <= 0 disables truncation.
func SanitizeString(input string, maxLen int) string {
	var sb strings.Builder
	sb.Grow(len(input))
	pendingSpace := false
	count := 0
	for _, r := range input {
		if unicode.IsSpace(r) {
			pendingSpace = sb.Len() > 0
			continue
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			continue
		}
		if pendingSpace {
			if maxLen > 0 && count+1 >= maxLen {
				break
			}
			sb.WriteByte(' ')
			count++
			pendingSpace = false
		}
		if maxLen > 0 && count >= maxLen {
			break
		}
		sb.WriteRune(r)
		count++
	}
	return sb.String()
}
