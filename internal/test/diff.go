package test

import (
	"fmt"
	"strings"

	"github.com/google/go-cmp/cmp"
)

// Diff renders a line-oriented diff of two strings with "-" marking lines
// only in old and "+" marking lines only in new.
func Diff(old string, new string) string {
	return cmp.Diff(strings.Split(old, "\n"), strings.Split(new, "\n"))
}

// ValueDiff renders a structural diff of two values, or "" if they are equal.
func ValueDiff(observed interface{}, expected interface{}, opts ...cmp.Option) string {
	if diff := cmp.Diff(expected, observed, opts...); diff != "" {
		return fmt.Sprintf("(-expected +observed)\n%s", diff)
	}
	return ""
}
