package api

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modresolve/modresolve/internal/test"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	// Temporary directories may be behind a symlink (e.g. "/tmp" on macOS)
	dir, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	for path, contents := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0644))
	}
	return dir
}

func TestResolveOnDisk(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/index.ts":                       "",
		"src/util.ts":                        "",
		"node_modules/pkg/package.json":      `{"exports": {".": {"import": "./esm.js", "default": "./cjs.js"}}}`,
		"node_modules/pkg/esm.js":            "",
		"node_modules/pkg/cjs.js":            "",
		"node_modules/@types/pkg/index.d.ts": "",
	})

	resolver, err := NewResolver(ResolveOptions{
		LogLevel:       LogLevelSilent,
		ConditionNames: []string{"import"},
		Extensions:     []string{".ts", ".js"},
		AbsWorkingDir:  dir,
	})
	require.NoError(t, err)

	result := resolver.Resolve(filepath.Join(dir, "src"), "./util.js")
	require.False(t, result.Failed(), result.ErrorText)
	test.AssertEqual(t, result.Path, filepath.Join(dir, "src", "util.ts"))

	result = resolver.Resolve("src", "pkg")
	require.False(t, result.Failed(), result.ErrorText)
	test.AssertEqual(t, result.Path, filepath.Join(dir, "node_modules", "pkg", "esm.js"))

	result = resolver.Resolve("src", "./util.ts?raw")
	require.False(t, result.Failed(), result.ErrorText)
	test.AssertEqualWithDiff(t, result, Resolution{
		Path:                     filepath.Join(dir, "src", "util.ts"),
		Query:                    "?raw",
		ResolvedUsingTSExtension: true,
	})

	result = resolver.ResolveTypeReferenceDirective(filepath.Join(dir, "src", "index.ts"), "pkg")
	require.False(t, result.Failed(), result.ErrorText)
	test.AssertEqual(t, result.Path, filepath.Join(dir, "node_modules", "@types", "pkg", "index.d.ts"))

	result = resolver.Resolve("src", "missing")
	test.AssertEqual(t, result.ErrorCode, ErrorNotFound)
	test.AssertEqual(t, result.Path, "")
}

func TestSymlinkCycleOnDisk(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need extra privileges on Windows")
	}
	dir := writeFiles(t, map[string]string{"index.js": ""})
	require.NoError(t, os.Symlink("loop", filepath.Join(dir, "loop")))

	resolver, err := NewResolver(ResolveOptions{LogLevel: LogLevelSilent})
	require.NoError(t, err)
	test.AssertEqual(t, resolver.Resolve(dir, "./loop").ErrorCode, ErrorSymlinkCycle)
	test.AssertEqual(t, resolver.Resolve(dir, "./index").Path, filepath.Join(dir, "index.js"))
}

func TestMalformedTsconfig(t *testing.T) {
	dir := writeFiles(t, map[string]string{"tsconfig.json": `{"extends": "./tsconfig.json"}`})

	_, err := NewResolver(ResolveOptions{LogLevel: LogLevelSilent, Tsconfig: filepath.Join(dir, "tsconfig.json")})
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	test.AssertEqual(t, configErr.Code, ErrorConfigCycle)
	test.AssertEqual(t, configErr.ExitCode(), 7)
}

func TestInvalidOptions(t *testing.T) {
	_, err := NewResolver(ResolveOptions{Extensions: []string{".js", ".js"}})
	require.Error(t, err)
	var configErr *ConfigError
	require.False(t, errors.As(err, &configErr))
}

func TestMessages(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"node_modules/pkg/package.json": `{"main": 1}`,
		"node_modules/pkg/index.js":     "",
	})

	resolver, err := NewResolver(ResolveOptions{
		LogLevel:    LogLevelSilent,
		LogOverride: map[string]LogLevel{"invalid-main-field": LogLevelError},
	})
	require.NoError(t, err)
	result := resolver.Resolve(dir, "pkg")
	require.False(t, result.Failed(), result.ErrorText)

	msgs := resolver.Messages()
	require.Len(t, msgs, 1)
	test.AssertEqual(t, msgs[0].ID, "invalid-main-field")
	test.AssertEqual(t, msgs[0].Path, filepath.Join(dir, "node_modules", "pkg", "package.json"))
}

func TestRepeatedWarningIsKeptOnce(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"Util.js": "",
	})

	resolver, err := NewResolver(ResolveOptions{LogLevel: LogLevelSilent})
	require.NoError(t, err)
	for i := 0; i < 1000; i++ {
		result := resolver.Resolve(dir, "./util")
		require.True(t, result.Failed())
	}

	msgs := resolver.Messages()
	require.Len(t, msgs, 1)
	test.AssertEqual(t, msgs[0].ID, "different-path-case")
}

func TestClose(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"index.js": "",
	})

	resolver, err := NewResolver(ResolveOptions{LogLevel: LogLevelSilent})
	require.NoError(t, err)
	result := resolver.Resolve(dir, "./index")
	require.False(t, result.Failed(), result.ErrorText)

	resolver.Close()
	result = resolver.Resolve(dir, "./index")
	test.AssertEqual(t, result.ErrorCode, ErrorIO)
	result = resolver.ResolveTypeReferenceDirective(filepath.Join(dir, "index.js"), "node")
	test.AssertEqual(t, result.ErrorCode, ErrorIO)

	// Closing twice is fine
	resolver.Close()
	require.Empty(t, resolver.Messages())
}
