package cli_helpers

import (
	"testing"

	"github.com/modresolve/modresolve/internal/test"
	"github.com/modresolve/modresolve/pkg/api"
)

func TestParseLogOverride(t *testing.T) {
	id, level, err := ParseLogOverride("invalid-paths=error")
	test.AssertEqual(t, err == nil, true)
	test.AssertEqual(t, id, "invalid-paths")
	test.AssertEqual(t, level, api.LogLevelError)

	for _, text := range []string{"invalid-paths", "=error", "invalid-paths=loud"} {
		if _, _, err := ParseLogOverride(text); err == nil {
			t.Fatalf("Expected an error for %q", text)
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	isJSON, err := ParseOutputFormat("json")
	test.AssertEqual(t, err == nil, true)
	test.AssertEqual(t, isJSON, true)

	_, err = ParseOutputFormat("yaml")
	test.AssertEqual(t, err.Text, `Invalid format: "yaml"`)
}
