package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modresolve/modresolve/internal/exitcode"
	"github.com/modresolve/modresolve/internal/test"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	for path, contents := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(contents), 0644))
	}
	return dir
}

type runResult struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, stdin string, args ...string) runResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := RunWithStreams(args, Streams{
		Stdin:  strings.NewReader(stdin),
		Stdout: &stdout,
		Stderr: &stderr,
	})
	return runResult{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

var projectFiles = map[string]string{
	"src/index.ts":                        "",
	"src/util.ts":                         "",
	"node_modules/pkg/package.json":       `{"exports": {".": {"import": "./esm.js", "default": "./cjs.js"}}}`,
	"node_modules/pkg/esm.js":             "",
	"node_modules/pkg/cjs.js":             "",
	"node_modules/@types/node/index.d.ts": "",
}

func TestResolveCommand(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	src := filepath.Join(dir, "src")

	r := run(t, "", "resolve", "--log-level=silent", "--extensions=.ts,.js", src, "./util.js", "pkg")
	test.AssertEqual(t, r.code, 0)
	test.AssertEqual(t, r.stdout, filepath.Join(src, "util.ts")+"\n"+
		filepath.Join(dir, "node_modules", "pkg", "cjs.js")+"\n")

	r = run(t, "", "resolve", "--log-level=silent", "--conditions=import", src, "pkg")
	test.AssertEqual(t, r.code, 0)
	test.AssertEqual(t, r.stdout, filepath.Join(dir, "node_modules", "pkg", "esm.js")+"\n")
}

func TestResolveCommandExitCodes(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	src := filepath.Join(dir, "src")

	// The first failure decides the exit code
	r := run(t, "", "resolve", "--log-level=silent", src, "pkg", "missing", "pkg/sub")
	test.AssertEqual(t, r.code, 2)
	require.Contains(t, r.stderr, "error[NotFound]:")
	require.Contains(t, r.stderr, "error[PackagePathNotExported]:")
	test.AssertEqual(t, r.stdout, filepath.Join(dir, "node_modules", "pkg", "cjs.js")+"\n")

	r = run(t, "", "resolve", "--log-level=silent", "--builtin-modules", src, "fs")
	test.AssertEqual(t, r.code, 12)
}

func TestTypesCommand(t *testing.T) {
	dir := writeFiles(t, projectFiles)

	r := run(t, "", "types", "--log-level=silent", filepath.Join(dir, "src", "index.ts"), "node")
	test.AssertEqual(t, r.code, 0)
	test.AssertEqual(t, r.stdout, filepath.Join(dir, "node_modules", "@types", "node", "index.d.ts")+"\n")
}

func TestJSONFormat(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("paths are escaped differently in JSON")
	}
	dir := writeFiles(t, projectFiles)
	src := filepath.Join(dir, "src")

	r := run(t, "", "resolve", "--log-level=silent", "--format=json", src, "pkg", "pkg/sub")
	test.AssertEqual(t, r.code, 3)
	lines := strings.Split(strings.TrimSuffix(r.stdout, "\n"), "\n")
	require.Len(t, lines, 2)
	test.AssertEqual(t, lines[0], `{"kind":"resolve","from":"`+src+`","specifier":"pkg","path":"`+
		filepath.Join(dir, "node_modules", "pkg", "cjs.js")+`"}`)
	require.True(t, strings.HasPrefix(lines[1], `{"kind":"resolve","from":"`+src+`","specifier":"pkg/sub","error":{"code":3,"kind":"PackagePathNotExported","message":`), lines[1])
}

func TestBatchCommand(t *testing.T) {
	dir := writeFiles(t, projectFiles)
	src := filepath.Join(dir, "src")

	var input strings.Builder
	for i := 0; i < 20; i++ {
		input.WriteString(`{"from": "src", "specifier": "./util.ts"}` + "\n")
		input.WriteString("\n")
		input.WriteString(`{"kind": "resolve", "from": "src", "specifier": "pkg", "extra": [1, 2]}` + "\n")
	}
	input.WriteString(`{"kind": "types", "from": "src/index.ts", "specifier": "node"}` + "\n")

	r := run(t, input.String(), "batch", "--log-level=silent", "--cwd", dir, "--jobs=4")
	test.AssertEqual(t, r.code, 0)

	var expected strings.Builder
	for i := 0; i < 20; i++ {
		expected.WriteString(filepath.Join(src, "util.ts") + "\n")
		expected.WriteString(filepath.Join(dir, "node_modules", "pkg", "cjs.js") + "\n")
	}
	expected.WriteString(filepath.Join(dir, "node_modules", "@types", "node", "index.d.ts") + "\n")
	test.AssertEqualWithDiff(t, r.stdout, expected.String())
}

func TestBatchCommandInvalidInput(t *testing.T) {
	r := run(t, `{"from": "src", "specifier": "pkg"}`+"\n"+`{"from": "src"`+"\n", "batch")
	test.AssertEqual(t, r.code, exitcode.Usage)
	require.Contains(t, r.stderr, "<stdin>:2: Invalid request")

	r = run(t, `{"kind": "require", "from": "src", "specifier": "pkg"}`, "batch")
	test.AssertEqual(t, r.code, exitcode.Usage)
	require.Contains(t, r.stderr, `Invalid request kind "require"`)
}

func TestConfigFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"src/util.ts":                   "",
		"node_modules/pkg/package.json": `{"exports": {"import": "./esm.js", "default": "./cjs.js"}}`,
		"node_modules/pkg/esm.js":       "",
		"node_modules/pkg/cjs.js":       "",
		"modresolve.yaml":               "conditionNames: [import]\nextensions: [.ts]\n",
	})
	src := filepath.Join(dir, "src")
	configFile := filepath.Join(dir, "modresolve.yaml")

	r := run(t, "", "resolve", "--log-level=silent", "--config", configFile, src, "./util", "pkg")
	test.AssertEqual(t, r.code, 0)
	test.AssertEqual(t, r.stdout, filepath.Join(src, "util.ts")+"\n"+
		filepath.Join(dir, "node_modules", "pkg", "esm.js")+"\n")

	// Flags override the file, and an empty list means "none"
	r = run(t, "", "resolve", "--log-level=silent", "--config", configFile, "--conditions=", src, "pkg")
	test.AssertEqual(t, r.code, 0)
	test.AssertEqual(t, r.stdout, filepath.Join(dir, "node_modules", "pkg", "cjs.js")+"\n")

	r = run(t, "", "resolve", "--config", filepath.Join(dir, "missing.yaml"), src, "pkg")
	test.AssertEqual(t, r.code, exitcode.Usage)
}

func TestUsageErrors(t *testing.T) {
	expectUsage := func(args ...string) {
		t.Helper()
		r := run(t, "", args...)
		test.AssertEqual(t, r.code, exitcode.Usage)
		require.True(t, strings.HasPrefix(r.stderr, "error: "), r.stderr)
	}

	expectUsage("resolve", ".")
	expectUsage("resolve", "--no-such-flag", ".", "x")
	expectUsage("resolve", "--log-level=loud", ".", "x")
	expectUsage("resolve", "--log-override=invalid-paths", ".", "x")
	expectUsage("resolve", "--format=yaml", ".", "x")
	expectUsage("resolve", "--extensions=js", ".", "x")
	expectUsage("resolve", "--conditions=a,a", ".", "x")
	expectUsage("frobnicate")
}

func TestMalformedTsconfigExitCode(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"tsconfig.json": `{"compilerOptions": {"paths": `,
	})

	r := run(t, "", "resolve", "--log-level=silent", "--tsconfig", filepath.Join(dir, "tsconfig.json"), dir, "x")
	test.AssertEqual(t, r.code, 10)
	require.Contains(t, r.stderr, "error: ")
}
