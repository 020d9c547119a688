package specifier

import (
	"strings"
	"testing"

	"github.com/modresolve/modresolve/internal/test"
)

func isUnixAbs(path string) bool {
	return strings.HasPrefix(path, "/")
}

func isWindowsAbs(path string) bool {
	return len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/')
}

func TestParse(t *testing.T) {
	expect := func(raw string, expected Specifier) {
		t.Helper()
		t.Run(raw, func(t *testing.T) {
			t.Helper()
			spec, err := Parse(raw, isUnixAbs)
			if err != nil {
				t.Fatal(err)
			}
			expected.Raw = raw
			test.AssertEqualWithDiff(t, spec, expected)
		})
	}

	expect("./a", Specifier{Kind: Relative})
	expect("../a/b", Specifier{Kind: Relative})
	expect(".", Specifier{Kind: Relative})
	expect("..", Specifier{Kind: Relative})
	expect("/a/b", Specifier{Kind: Absolute})
	expect("#internal", Specifier{Kind: Internal})
	expect("pkg", Specifier{Kind: Bare, PackageName: "pkg", Subpath: "."})
	expect("pkg/a/b", Specifier{Kind: Bare, PackageName: "pkg", Subpath: "./a/b"})
	expect("pkg/", Specifier{Kind: Bare, PackageName: "pkg", Subpath: "./"})
	expect("@scope/pkg", Specifier{Kind: ScopedBare, PackageName: "@scope/pkg", Subpath: "."})
	expect("@scope/pkg/a", Specifier{Kind: ScopedBare, PackageName: "@scope/pkg", Subpath: "./a"})
	expect("node:fs", Specifier{Kind: Scheme, SchemeName: "node", Rest: "fs"})
	expect("data:text/javascript,x", Specifier{Kind: Scheme, SchemeName: "data", Rest: "text/javascript,x"})
	expect("file:///a/b.js", Specifier{Kind: Scheme, SchemeName: "file", Rest: "///a/b.js"})
	expect("HTTPS://example.com/x.js", Specifier{Kind: Scheme, SchemeName: "https", Rest: "//example.com/x.js"})

	// A colon after the first slash or an unknown scheme is part of a package path
	expect("pkg/a:b", Specifier{Kind: Bare, PackageName: "pkg", Subpath: "./a:b"})
	expect("custom:thing", Specifier{Kind: Bare, PackageName: "custom:thing", Subpath: "."})
}

func TestParseWindowsAbsolute(t *testing.T) {
	spec, err := Parse("C:\\project\\a.js", isWindowsAbs)
	if err != nil {
		t.Fatal(err)
	}
	test.AssertEqual(t, spec.Kind, Absolute)

	// The same text is a bare specifier on Unix since "c" is not a known scheme
	spec, err = Parse("C:\\project\\a.js", isUnixAbs)
	if err == nil {
		t.Fatalf("Expected an invalid package name, got %v", spec.Kind)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{"", "@scope", "@scope/", "@/pkg", ".hidden", "pkg%20"} {
		_, err := Parse(raw, isUnixAbs)
		if _, ok := err.(*InvalidError); !ok {
			t.Fatalf("Expected %q to be invalid, got %v", raw, err)
		}
	}
}

func TestSplitSuffix(t *testing.T) {
	expect := func(path string, base string, query string, fragment string) {
		t.Helper()
		gotBase, gotQuery, gotFragment := SplitSuffix(path)
		test.AssertEqualWithDiff(t, []string{gotBase, gotQuery, gotFragment}, []string{base, query, fragment})
	}

	expect("./a.js", "./a.js", "", "")
	expect("./a.js?raw", "./a.js", "?raw", "")
	expect("./a.js#frag", "./a.js", "", "#frag")
	expect("./a.js?x=1#frag", "./a.js", "?x=1", "#frag")
	expect("./a.js#frag?x", "./a.js", "", "#frag?x")
	expect("#internal", "#internal", "", "")
	expect("#internal?x", "#internal", "?x", "")
}

func TestFileURLToPath(t *testing.T) {
	path, ok := FileURLToPath("file:///a/b%20c.js", '/')
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, path, "/a/b c.js")

	path, ok = FileURLToPath("file:///C:/a/b.js", '\\')
	test.AssertEqual(t, ok, true)
	test.AssertEqual(t, path, "C:\\a\\b.js")

	_, ok = FileURLToPath("file://remote-host/a.js", '/')
	test.AssertEqual(t, ok, false)
}

func TestMangleScopedPackageName(t *testing.T) {
	test.AssertEqual(t, MangleScopedPackageName("@babel/core"), "babel__core")
	test.AssertEqual(t, MangleScopedPackageName("react"), "react")
}

func TestIsBuiltin(t *testing.T) {
	test.AssertEqual(t, IsBuiltin("fs"), true)
	test.AssertEqual(t, IsBuiltin("fs/promises"), true)
	test.AssertEqual(t, IsBuiltin("node:fs"), true)
	test.AssertEqual(t, IsBuiltin("node:test"), true)
	test.AssertEqual(t, IsBuiltin("test"), false)
	test.AssertEqual(t, IsBuiltin("lodash"), false)
}
