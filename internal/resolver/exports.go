package resolver

// This implements the "exports" and "imports" algorithms from node's ESM
// resolver, with one difference: a conditional object is matched by walking
// the resolver's condition list in priority order (with "default" last)
// instead of walking the object's keys. Everything operates on URL-style
// paths rooted at "/" and is joined with the package directory afterward.

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/modresolve/modresolve/internal/helpers"
	"github.com/modresolve/modresolve/internal/jsonc"
)

type pjStatus uint8

const (
	pjStatusUndefined                  pjStatus = iota
	pjStatusUndefinedNoConditionsMatch          // A conditional object had no key in the condition list
	pjStatusNull
	pjStatusExact
	pjStatusExactEndsWithStar
	pjStatusInexact        // This means we may need to try CommonJS-style extension suffixes
	pjStatusPackageResolve // Need to re-run package resolution on the result

	// Module specifier is an invalid URL, package name or package subpath specifier.
	pjStatusInvalidModuleSpecifier

	// package.json configuration is invalid or contains an invalid configuration.
	pjStatusInvalidPackageConfiguration

	// Package exports or imports define a target module for the package that is an invalid type or string target.
	pjStatusInvalidPackageTarget

	// Package exports do not define or permit a target subpath in the package for the given module.
	pjStatusPackagePathNotExported

	// Package imports do not define the specifier
	pjStatusPackageImportNotDefined
)

func (status pjStatus) isUndefined() bool {
	return status == pjStatusUndefined || status == pjStatusUndefinedNoConditionsMatch
}

type pjDebug struct {
	// The key of the map entry that produced the result, if any
	token string

	// Extra text appended to "invalid" errors
	invalidBecause string

	// This is true if the final status was "pjStatusNull" because of a literal null
	isBecauseOfNullLiteral bool

	// Keys of the last conditional object that had no match
	unmatchedConditions []string
}

func esmPackageExportsResolve(subpath string, exports *pjMap, conditions []string) (string, pjStatus, pjDebug) {
	if exports.invalidBecause != "" {
		return "", pjStatusInvalidPackageConfiguration, pjDebug{invalidBecause: exports.invalidBecause}
	}

	root := exports.root
	isSubpathMap := exports.rootIsSubpathMap()

	if subpath == "." {
		mainExport := jsonc.Value{}
		found := false
		if !isSubpathMap {
			mainExport, found = root, true
		} else {
			mainExport, found = root.Get(".")
		}
		if found {
			resolved, status, debug := esmPackageTargetResolve("/", mainExport, "", false, false, conditions)
			if debug.token == "" {
				debug.token = "."
			}
			if status != pjStatusNull && !status.isUndefined() {
				return resolved, status, debug
			}
			return notExported(status, debug)
		}
	} else if isSubpathMap {
		resolved, status, debug := esmPackageImportsExportsResolve(subpath, root, "/", false, conditions)
		if status != pjStatusNull && !status.isUndefined() {
			return resolved, status, debug
		}
		return notExported(status, debug)
	}

	return "", pjStatusPackagePathNotExported, pjDebug{}
}

func notExported(status pjStatus, debug pjDebug) (string, pjStatus, pjDebug) {
	if status == pjStatusUndefinedNoConditionsMatch {
		return "", status, debug
	}
	debug.isBecauseOfNullLiteral = debug.isBecauseOfNullLiteral && status == pjStatusNull
	return "", pjStatusPackagePathNotExported, debug
}

func esmPackageImportsResolve(specifier string, imports *pjMap, conditions []string) (string, pjStatus, pjDebug) {
	if specifier == "#" || strings.HasPrefix(specifier, "#/") {
		return specifier, pjStatusInvalidModuleSpecifier, pjDebug{invalidBecause: " (it must not equal \"#\" or start with \"#/\")"}
	}
	if imports.invalidBecause != "" {
		return "", pjStatusInvalidPackageConfiguration, pjDebug{invalidBecause: imports.invalidBecause}
	}

	resolved, status, debug := esmPackageImportsExportsResolve(specifier, imports.root, "/", true, conditions)
	if status != pjStatusNull && !status.isUndefined() {
		return resolved, status, debug
	}
	if status == pjStatusUndefinedNoConditionsMatch {
		return "", status, debug
	}
	debug.isBecauseOfNullLiteral = debug.isBecauseOfNullLiteral && status == pjStatusNull
	return specifier, pjStatusPackageImportNotDefined, debug
}

type expansionKey struct {
	key     string
	value   jsonc.Value
	pattern helpers.WildcardPattern

	// A key ending in "/" without a "*" is a legacy folder mapping
	isFolder bool
}

// This is node's PATTERN_KEY_COMPARE: longer text before the "*" first, a
// pattern before a folder mapping with the same base, then longer keys
// first. Keys that compare equal keep their declaration order.
func (a expansionKey) moreSpecificThan(b expansionKey) bool {
	baseA, baseB := len(a.key), len(b.key)
	if !a.isFolder {
		baseA = len(a.pattern.Prefix) + 1
	}
	if !b.isFolder {
		baseB = len(b.pattern.Prefix) + 1
	}
	if baseA != baseB {
		return baseA > baseB
	}
	if a.isFolder != b.isFolder {
		return b.isFolder
	}
	if a.isFolder {
		return false
	}
	return a.pattern.MoreSpecificThan(b.pattern)
}

func sortedExpansionKeys(matchObj jsonc.Value) []expansionKey {
	var keys []expansionKey
	for _, prop := range matchObj.Props {
		if strings.Count(prop.Key, "*") == 1 {
			pattern, _ := helpers.ParseWildcardPattern(prop.Key)
			keys = append(keys, expansionKey{key: prop.Key, value: prop.Value, pattern: pattern})
		} else if strings.HasSuffix(prop.Key, "/") {
			keys = append(keys, expansionKey{key: prop.Key, value: prop.Value, isFolder: true})
		}
	}

	// Duplicate keys are collapsed to the last one
	seen := make(map[string]int)
	deduped := keys[:0]
	for _, key := range keys {
		if index, ok := seen[key.key]; ok {
			deduped[index].value = key.value
			continue
		}
		seen[key.key] = len(deduped)
		deduped = append(deduped, key)
	}

	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].moreSpecificThan(deduped[j])
	})
	return deduped
}

func esmPackageImportsExportsResolve(
	matchKey string,
	matchObj jsonc.Value,
	packageURL string,
	isImports bool,
	conditions []string,
) (string, pjStatus, pjDebug) {
	if !strings.Contains(matchKey, "*") && !strings.HasSuffix(matchKey, "/") {
		if target, ok := matchObj.Get(matchKey); ok {
			resolved, status, debug := esmPackageTargetResolve(packageURL, target, "", false, isImports, conditions)
			if debug.token == "" {
				debug.token = matchKey
			}
			return resolved, status, debug
		}
	}

	for _, expansion := range sortedExpansionKeys(matchObj) {
		if expansion.isFolder {
			if strings.HasPrefix(matchKey, expansion.key) {
				subpath := matchKey[len(expansion.key):]
				resolved, status, debug := esmPackageTargetResolve(packageURL, expansion.value, subpath, false, isImports, conditions)
				if debug.token == "" {
					debug.token = expansion.key
				}
				return resolved, status, debug
			}
			continue
		}

		prefix, suffix := expansion.pattern.Prefix, expansion.pattern.Suffix
		if strings.HasPrefix(matchKey, prefix) && matchKey != prefix &&
			strings.HasSuffix(matchKey, suffix) && len(matchKey) >= len(expansion.key) {
			patternMatch := matchKey[len(prefix) : len(matchKey)-len(suffix)]
			resolved, status, debug := esmPackageTargetResolve(packageURL, expansion.value, patternMatch, true, isImports, conditions)
			if debug.token == "" {
				debug.token = expansion.key
			}
			return resolved, status, debug
		}
	}

	return "", pjStatusNull, pjDebug{}
}

func esmPackageTargetResolve(
	packageURL string,
	target jsonc.Value,
	patternMatch string,
	isPattern bool,
	internal bool,
	conditions []string,
) (string, pjStatus, pjDebug) {
	switch target.Kind {
	case jsonc.String:
		// If pattern is false, subpath has non-zero length and target
		// does not end with "/", throw an Invalid Module Specifier error.
		if !isPattern && patternMatch != "" && !strings.HasSuffix(target.Str, "/") {
			return target.Str, pjStatusInvalidModuleSpecifier, pjDebug{invalidBecause: " (a folder mapping must end in \"/\")"}
		}

		if !strings.HasPrefix(target.Str, "./") {
			if internal && !strings.HasPrefix(target.Str, "../") && !strings.HasPrefix(target.Str, "/") && !isURL(target.Str) {
				if isPattern {
					return strings.ReplaceAll(target.Str, "*", patternMatch), pjStatusPackageResolve, pjDebug{}
				}
				return target.Str + patternMatch, pjStatusPackageResolve, pjDebug{}
			}
			return target.Str, pjStatusInvalidPackageTarget, pjDebug{invalidBecause: " (it must start with \"./\")"}
		}

		// If target split on "/" or "\" contains any ".", "..", or "node_modules"
		// segments after the first segment, throw an Invalid Package Target error.
		if segment, ok := findInvalidSegment(target.Str[2:]); ok {
			return target.Str, pjStatusInvalidPackageTarget, pjDebug{invalidBecause: fmt.Sprintf(" (it contains the segment %q)", segment)}
		}

		resolvedTarget := packageURL + target.Str[2:]

		// If subpath split on "/" or "\" contains any ".", "..", or "node_modules"
		// segments, throw an Invalid Module Specifier error.
		if segment, ok := findInvalidSegment(patternMatch); ok {
			return patternMatch, pjStatusInvalidModuleSpecifier, pjDebug{invalidBecause: fmt.Sprintf(" (it contains the segment %q)", segment)}
		}

		if patternMatch == "" {
			return resolvedTarget, pjStatusExact, pjDebug{}
		}
		if isPattern {
			status := pjStatusExact
			if strings.HasSuffix(target.Str, "*") {
				status = pjStatusExactEndsWithStar
			}
			return strings.ReplaceAll(resolvedTarget, "*", patternMatch), status, pjDebug{}
		}
		return resolvedTarget + patternMatch, pjStatusInexact, pjDebug{}

	case jsonc.Object:
		for _, condition := range conditions {
			value, ok := target.Get(condition)
			if !ok {
				continue
			}
			resolved, status, debug := esmPackageTargetResolve(packageURL, value, patternMatch, isPattern, internal, conditions)
			if status.isUndefined() {
				continue
			}
			return resolved, status, debug
		}

		keys := make([]string, len(target.Props))
		for i, prop := range target.Props {
			keys[i] = prop.Key
		}
		return "", pjStatusUndefinedNoConditionsMatch, pjDebug{unmatchedConditions: keys}

	case jsonc.Array:
		if len(target.Items) == 0 {
			return "", pjStatusNull, pjDebug{isBecauseOfNullLiteral: true}
		}

		lastStatus := pjStatusUndefined
		lastResolved := ""
		lastDebug := pjDebug{}
		for _, item := range target.Items {
			resolved, status, debug := esmPackageTargetResolve(packageURL, item, patternMatch, isPattern, internal, conditions)
			switch {
			case status == pjStatusInvalidPackageTarget, status == pjStatusNull:
				lastResolved, lastStatus, lastDebug = resolved, status, debug
				continue
			case status.isUndefined():
				if lastStatus == pjStatusUndefined {
					lastStatus, lastDebug = status, debug
				}
				continue
			}
			return resolved, status, debug
		}
		return lastResolved, lastStatus, lastDebug

	case jsonc.Null:
		return "", pjStatusNull, pjDebug{isBecauseOfNullLiteral: true}
	}

	return "", pjStatusInvalidPackageTarget, pjDebug{invalidBecause: fmt.Sprintf(" (a %s is not a valid target)", target.Kind)}
}

func isURL(text string) bool {
	u, err := url.Parse(text)
	return err == nil && u.Scheme != "" && len(u.Scheme) > 1
}

// Segments are compared after percent-decoding so "%2e%2e" can't sneak past
func findInvalidSegment(path string) (string, bool) {
	if path == "" {
		return "", false
	}
	for _, segment := range strings.FieldsFunc(path, func(c rune) bool { return c == '/' || c == '\\' }) {
		decoded, err := url.PathUnescape(segment)
		if err != nil {
			decoded = segment
		}
		if decoded == "." || decoded == ".." || strings.EqualFold(decoded, "node_modules") {
			return segment, true
		}
	}
	return "", false
}

// Used for the "Did you mean" hint when a subpath isn't exported
func exportedSubpaths(exports *pjMap) []string {
	if !exports.rootIsSubpathMap() {
		return []string{"."}
	}
	var keys []string
	for _, prop := range exports.root.Props {
		if !strings.Contains(prop.Key, "*") && !strings.HasSuffix(prop.Key, "/") && prop.Value.Kind != jsonc.Null {
			keys = append(keys, prop.Key)
		}
	}
	return keys
}
