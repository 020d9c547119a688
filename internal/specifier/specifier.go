package specifier

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/modresolve/modresolve/internal/helpers"
)

type Kind uint8

const (
	// "./x", "../x", ".", ".."
	Relative Kind = iota

	// "/x" or a drive-qualified path on Windows
	Absolute

	// "pkg" or "pkg/x"
	Bare

	// "@scope/pkg" or "@scope/pkg/x"
	ScopedBare

	// "node:fs", "file:///x", "data:...", "http://..."
	Scheme

	// "#x", looked up in the nearest package.json "imports" map
	Internal
)

func (kind Kind) String() string {
	switch kind {
	case Relative:
		return "relative"
	case Absolute:
		return "absolute"
	case Bare:
		return "bare"
	case ScopedBare:
		return "scoped"
	case Scheme:
		return "scheme"
	case Internal:
		return "internal"
	}
	return "unknown"
}

// Schemes that are recognized before a specifier is treated as a package
// name. Anything else containing a ":" is a bare specifier.
var knownSchemes = map[string]bool{
	"data":  true,
	"file":  true,
	"http":  true,
	"https": true,
	"node":  true,
}

type Specifier struct {
	Raw  string
	Kind Kind

	// Set for Bare and ScopedBare. PackageName includes the scope, as in
	// "@scope/pkg". Subpath always starts with "." and is "." for the package
	// root.
	PackageName string
	Subpath     string

	// Set for Scheme
	SchemeName string
	Rest       string
}

type InvalidError struct {
	Raw    string
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("Invalid specifier %q: %s", e.Raw, e.Reason)
}

// Parse classifies a specifier. The isAbs callback decides what counts as an
// absolute path on the host file system.
func Parse(raw string, isAbs func(string) bool) (Specifier, error) {
	spec := Specifier{Raw: raw}

	switch {
	case raw == "":
		return spec, &InvalidError{Raw: raw, Reason: "the specifier is empty"}

	case raw == "." || raw == ".." || strings.HasPrefix(raw, "./") || strings.HasPrefix(raw, "../"):
		spec.Kind = Relative
		return spec, nil

	case strings.HasPrefix(raw, "/") || isAbs(raw):
		spec.Kind = Absolute
		return spec, nil

	case raw[0] == '#':
		spec.Kind = Internal
		return spec, nil
	}

	if colon := strings.IndexByte(raw, ':'); colon > 0 {
		if slash := strings.IndexByte(raw, '/'); slash == -1 || colon < slash {
			if name := strings.ToLower(raw[:colon]); knownSchemes[name] {
				spec.Kind = Scheme
				spec.SchemeName = name
				spec.Rest = raw[colon+1:]
				return spec, nil
			}
		}
	}

	name, subpath, ok := ParsePackageName(raw)
	if !ok {
		reason := "the package name is not valid"
		if raw[0] == '@' {
			reason = "a scoped package name needs the form \"@scope/name\""
		}
		return spec, &InvalidError{Raw: raw, Reason: reason}
	}
	spec.PackageName = name
	spec.Subpath = subpath
	if raw[0] == '@' {
		spec.Kind = ScopedBare
	} else {
		spec.Kind = Bare
	}
	return spec, nil
}

// ParsePackageName splits a bare specifier into the package name and the
// subpath within the package, as in "@scope/pkg/x" => ("@scope/pkg", "./x").
func ParsePackageName(raw string) (name string, subpath string, ok bool) {
	if raw == "" {
		return
	}

	slash := strings.IndexByte(raw, '/')
	if raw[0] == '@' {
		if slash < 2 {
			return
		}
		rest := raw[slash+1:]
		if rest == "" || rest[0] == '/' {
			return
		}
		if second := strings.IndexByte(rest, '/'); second != -1 {
			slash += 1 + second
		} else {
			slash = -1
		}
	}

	if slash == -1 {
		name = raw
	} else {
		name = raw[:slash]
	}

	// Package names can't start with a "." and can't contain "\" or "%"
	if strings.HasPrefix(name, ".") || strings.ContainsAny(name, "\\%") {
		return "", "", false
	}

	subpath = "." + raw[len(name):]
	ok = true
	return
}

// SplitSuffix separates a trailing "?query" and "#fragment". A leading "#"
// is part of the path since it starts an "imports" specifier.
func SplitSuffix(path string) (base string, query string, fragment string) {
	if path == "" {
		return path, "", ""
	}
	i := strings.IndexAny(path[1:], "?#")
	if i == -1 {
		return path, "", ""
	}
	base, suffix := path[:i+1], path[i+1:]
	if suffix[0] == '?' {
		if hash := strings.IndexByte(suffix, '#'); hash != -1 {
			return base, suffix[:hash], suffix[hash:]
		}
		return base, suffix, ""
	}
	return base, "", suffix
}

// FileURLToPath converts a "file:" specifier to a file system path for a
// file system that uses the given separator.
func FileURLToPath(raw string, separator byte) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || !helpers.IsFileURL(u) {
		return "", false
	}
	return helpers.FilePathFromFileURL(u, separator), true
}

// MangleScopedPackageName converts a scoped package name to the name of its
// "@types" package, as in "@babel/core" => "babel__core".
func MangleScopedPackageName(name string) string {
	if strings.HasPrefix(name, "@") {
		if slash := strings.IndexByte(name, '/'); slash != -1 {
			return name[1:slash] + "__" + name[slash+1:]
		}
	}
	return name
}
