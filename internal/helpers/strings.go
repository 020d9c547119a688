package helpers

import (
	"strconv"
	"strings"
)

// QuotedList renders a list for an error message, as in ["a", "b"] =>
// "\"a\", \"b\"". An empty list renders as "none".
func QuotedList(a []string) string {
	if len(a) == 0 {
		return "none"
	}
	sb := strings.Builder{}
	for i, str := range a {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(strconv.Quote(str))
	}
	return sb.String()
}

// FirstDuplicate returns the first entry that appears more than once.
func FirstDuplicate(a []string) (string, bool) {
	seen := make(map[string]bool, len(a))
	for _, str := range a {
		if seen[str] {
			return str, true
		}
		seen[str] = true
	}
	return "", false
}
