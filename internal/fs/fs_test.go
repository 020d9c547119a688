package fs

import (
	"fmt"
	"testing"
)

func TestRel(t *testing.T) {
	fs := MockFS(map[string]string{}, nil, "/")

	expect := func(a string, b string, c string) {
		t.Helper()
		t.Run(fmt.Sprintf("Rel(%q, %q) == %q", a, b, c), func(t *testing.T) {
			t.Helper()
			rel, ok := fs.Rel(a, b)
			if !ok {
				t.Fatalf("!ok")
			}
			if rel != c {
				t.Fatalf("Expected %q, got %q", c, rel)
			}
		})
	}

	expect("/a/b", "/a/b", ".")
	expect("/a/b", "/a/b/c", "c")
	expect("/a/b", "/a/b/c/d", "c/d")
	expect("/a/b/c", "/a/b", "..")
	expect("/a/b/c/d", "/a/b", "../..")
	expect("/a/b/c", "/a/b/x", "../x")
	expect("/a/b/c/d", "/a/b/x", "../../x")
	expect("/a/b/c", "/a/b/x/y", "../x/y")
	expect("/a/b/c/d", "/a/b/x/y", "../../x/y")
}

func TestDirEntriesCase(t *testing.T) {
	fs := MockFS(map[string]string{
		"/src/Index.js": "",
		"/src/util.js":  "",
	}, nil, "/")

	entries, err, _ := fs.ReadDirectory("/src")
	if err != nil {
		t.Fatal(err)
	}

	if entry, diff := entries.Get("util.js"); entry == nil || diff != nil {
		t.Fatalf("Expected an exact match for util.js, got %v %v", entry, diff)
	}
	entry, diff := entries.Get("index.js")
	if entry == nil || diff == nil {
		t.Fatal("Expected a case-insensitive match for index.js")
	}
	if diff.Actual != "Index.js" || diff.Query != "index.js" || diff.Dir != "/src" {
		t.Fatalf("Unexpected case difference: %+v", *diff)
	}
	if entry, _ := entries.Get("missing.js"); entry != nil {
		t.Fatal("Unexpectedly found missing.js")
	}

	keys := entries.SortedKeys()
	if len(keys) != 2 || keys[0] != "Index.js" || keys[1] != "util.js" {
		t.Fatalf("Unexpected keys: %v", keys)
	}
}
