package test

import (
	"strings"
	"testing"
)

func TestValueDiff(t *testing.T) {
	AssertEqual(t, ValueDiff([]string{"a", "b"}, []string{"a", "b"}), "")

	diff := ValueDiff([]string{"a", "c"}, []string{"a", "b"})
	if !strings.Contains(diff, `"b"`) || !strings.Contains(diff, `"c"`) {
		t.Fatalf("Unexpected diff:\n%s", diff)
	}
}

func TestDiff(t *testing.T) {
	AssertEqual(t, Diff("a\nb", "a\nb"), "")
	if Diff("a\nb", "a\nc") == "" {
		t.Fatal("Expected a difference")
	}
}
