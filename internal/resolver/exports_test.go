package resolver

import (
	"testing"

	"github.com/modresolve/modresolve/internal/jsonc"
	"github.com/modresolve/modresolve/internal/test"
)

func parseMap(t *testing.T, contents string) *pjMap {
	t.Helper()
	value, err := jsonc.Parse([]byte(contents))
	if err != nil {
		t.Fatal(err)
	}
	return &pjMap{field: "exports", root: value}
}

type exportsCase struct {
	subpath  string
	resolved string
	status   pjStatus
}

func checkExports(t *testing.T, exports *pjMap, conditions []string, cases []exportsCase) {
	t.Helper()
	for _, c := range cases {
		resolved, status, _ := esmPackageExportsResolve(c.subpath, exports, conditions)
		if resolved != c.resolved || status != c.status {
			t.Fatalf("%s: expected (%q, %d), got (%q, %d)", c.subpath, c.resolved, c.status, resolved, status)
		}
	}
}

func TestExportsSugar(t *testing.T) {
	checkExports(t, parseMap(t, `"./index.js"`), []string{"default"}, []exportsCase{
		{".", "/index.js", pjStatusExact},
		{"./other", "", pjStatusPackagePathNotExported},
	})
	checkExports(t, parseMap(t, `{"import": "./esm.js", "default": "./cjs.js"}`), []string{"import", "default"}, []exportsCase{
		{".", "/esm.js", pjStatusExact},
	})
}

func TestExportsPatternOrder(t *testing.T) {
	exports := parseMap(t, `{
		"./*": "./a/*.js",
		"./x/*.js": "./b/*.js",
		"./x/*": "./c/*",
		"./x/": "./d/",
		"./x/y": "./exact.js"
	}`)
	checkExports(t, exports, []string{"default"}, []exportsCase{
		{"./x/y", "/exact.js", pjStatusExact},
		{"./x/z.js", "/b/z.js", pjStatusExact},
		{"./x/z", "/c/z", pjStatusExactEndsWithStar},
		{"./q", "/a/q.js", pjStatusExact},
	})
}

func TestExpansionKeyOrderIsStable(t *testing.T) {
	value, err := jsonc.Parse([]byte(`{"./a/*": 1, "./b/*": 2, "./*": 3, "./a/": 4, "./a/*.js": 5}`))
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, key := range sortedExpansionKeys(value) {
		keys = append(keys, key.key)
	}
	test.AssertEqualWithDiff(t, keys, []string{"./a/*.js", "./a/*", "./b/*", "./a/", "./*"})
}

func TestExportsArrayFallback(t *testing.T) {
	exports := parseMap(t, `{
		".": [{"worker": "./worker.js"}, "./main.js"],
		"./bad": ["https://example.com/x.js", "../x.js"],
		"./empty": [],
		"./null": [null, "./later.js"]
	}`)
	checkExports(t, exports, []string{"default"}, []exportsCase{
		{".", "/main.js", pjStatusExact},
		{"./bad", "../x.js", pjStatusInvalidPackageTarget},
		{"./empty", "", pjStatusPackagePathNotExported},
		{"./null", "/later.js", pjStatusExact},
	})
}

func TestExportsNoConditionsMatch(t *testing.T) {
	exports := parseMap(t, `{".": {"import": "./esm.js", "worker": "./worker.js"}}`)
	_, status, debug := esmPackageExportsResolve(".", exports, []string{"require", "default"})
	test.AssertEqual(t, status, pjStatusUndefinedNoConditionsMatch)
	test.AssertEqualWithDiff(t, debug.unmatchedConditions, []string{"import", "worker"})
}

func TestExportsInvalidSegments(t *testing.T) {
	exports := parseMap(t, `{"./*": "./lib/*.js", "./up": "./lib/../x.js", "./mod": "./node_modules/x.js"}`)
	checkExports(t, exports, []string{"default"}, []exportsCase{
		{"./a/../b", "a/../b", pjStatusInvalidModuleSpecifier},
		{"./a/%2E%2E/b", "a/%2E%2E/b", pjStatusInvalidModuleSpecifier},
		{"./up", "./lib/../x.js", pjStatusInvalidPackageTarget},
		{"./mod", "./node_modules/x.js", pjStatusInvalidPackageTarget},
	})
}

func TestImportsResolve(t *testing.T) {
	imports := parseMap(t, `{
		"#a": "./a.js",
		"#dep/*": "dep/sub/*",
		"#null": null,
		"#cond": {"node": "./node.js"}
	}`)
	imports.field = "imports"
	conditions := []string{"default"}

	check := func(specifier string, resolved string, status pjStatus) {
		t.Helper()
		r, s, _ := esmPackageImportsResolve(specifier, imports, conditions)
		if r != resolved || s != status {
			t.Fatalf("%s: expected (%q, %d), got (%q, %d)", specifier, resolved, status, r, s)
		}
	}
	check("#a", "/a.js", pjStatusExact)
	check("#dep/x", "dep/sub/x", pjStatusPackageResolve)
	check("#null", "#null", pjStatusPackageImportNotDefined)
	check("#missing", "#missing", pjStatusPackageImportNotDefined)
	check("#cond", "", pjStatusUndefinedNoConditionsMatch)
	check("#", "#", pjStatusInvalidModuleSpecifier)
	check("#/x", "#/x", pjStatusInvalidModuleSpecifier)
}
