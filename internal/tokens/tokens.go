// Package tokens estimates token counts for prompt budgeting. The
// 4-characters-per-token approximation is coarse but errs small enough
// to keep digests and conversation context inside model limits.
package tokens

// Count estimates how many tokens text consumes. Non-empty text always
// costs at least one token.
func Count(text string) int {
	if len(text) == 0 {
		return 0
	}
	n := len([]rune(text)) / 4
	if n == 0 {
		return 1
	}
	return n
}

// Truncate cuts text down to roughly limit tokens, on a rune boundary.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	charLimit := limit * 4
	if charLimit >= len(runes) {
		return text
	}
	return string(runes[:charLimit])
}
