package test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func AssertEqual(t *testing.T, observed interface{}, expected interface{}) {
	t.Helper()
	if observed != expected {
		t.Fatalf("%v != %v", observed, expected)
	}
}

func AssertEqualWithDiff(t *testing.T, observed interface{}, expected interface{}, opts ...cmp.Option) {
	t.Helper()
	if diff := ValueDiff(observed, expected, opts...); diff != "" {
		t.Fatal(diff)
	}
}
