package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/modresolve/modresolve/internal/test"
)

func TestWithDefaults(t *testing.T) {
	options := Options{}.WithDefaults()
	test.AssertEqualWithDiff(t, options.Extensions, []string{".js", ".json", ".node"})
	test.AssertEqualWithDiff(t, options.MainFields, []string{"main"})
	test.AssertEqualWithDiff(t, options.ExportsFields, []string{"exports"})
	test.AssertEqualWithDiff(t, options.ImportsFields, []string{"imports"})
	if options.ConditionNames != nil {
		t.Fatalf("Expected no default conditions, got %v", options.ConditionNames)
	}

	// An explicitly empty list stays empty
	options = Options{Extensions: []string{}, MainFields: []string{}}.WithDefaults()
	test.AssertEqual(t, len(options.Extensions), 0)
	test.AssertEqual(t, len(options.MainFields), 0)
	if options.Extensions == nil || options.MainFields == nil {
		t.Fatal("Expected empty lists to stay non-nil")
	}
}

func TestValidate(t *testing.T) {
	expectErr := func(options Options) {
		t.Helper()
		err := options.Validate()
		if errors.Cause(err) != ErrInvalidOptions {
			t.Fatalf("Expected invalid options, got %v", err)
		}
	}

	require.NoError(t, Options{}.WithDefaults().Validate())
	require.NoError(t, Options{ConditionNames: []string{"import", "node"}, Extensions: []string{".ts", ".js"}}.Validate())

	expectErr(Options{ConditionNames: []string{"import", "import"}})
	expectErr(Options{Extensions: []string{".ts", ".js", ".ts"}})
	expectErr(Options{MainFields: []string{"module", "main", "module"}})
	expectErr(Options{ExportsFields: []string{""}})
	expectErr(Options{Extensions: []string{"js"}})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "modresolve.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
conditionNames: [import, node]
extensions: [.ts, .js]
mainFields: []
tsconfig: ./tsconfig.json
fullySpecified: true
preserveSymlinks: true
`), 0644))

	options, err := LoadFile(path)
	require.NoError(t, err)
	test.AssertEqualWithDiff(t, options, Options{
		ConditionNames:   []string{"import", "node"},
		Extensions:       []string{".ts", ".js"},
		MainFields:       []string{},
		Tsconfig:         "./tsconfig.json",
		FullySpecified:   true,
		PreserveSymlinks: true,
	})
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	require.True(t, os.IsNotExist(errors.Cause(err)))

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("conditions: [import]\n"), 0644))
	_, err = LoadFile(unknown)
	require.Equal(t, ErrInvalidOptions, errors.Cause(err))

	duplicate := filepath.Join(dir, "duplicate.yaml")
	require.NoError(t, os.WriteFile(duplicate, []byte("extensions: [.js, .js]\n"), 0644))
	_, err = LoadFile(duplicate)
	require.Equal(t, ErrInvalidOptions, errors.Cause(err))
}
