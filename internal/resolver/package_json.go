package resolver

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/modresolve/modresolve/internal/cache"
	"github.com/modresolve/modresolve/internal/jsonc"
	"github.com/modresolve/modresolve/internal/logger"
)

type packageJSON struct {
	absPath string
	absDir  string
	name    string

	// Every string-valued field that might be used as a main field, in either
	// the normal or the declaration-only mode. Non-string values are dropped
	// with a warning when the file is parsed.
	mainFields map[string]string

	// The "tsconfig" field, used when a tsconfig.json file "extends" this
	// package by name
	tsconfig string

	// The first configured exports field that is present. A "null" value
	// counts as absent.
	exportsMap *pjMap

	// The first configured imports field that is present
	importsMap *pjMap
}

type pjMap struct {
	field string
	root  jsonc.Value

	// If non-empty, this map can't be used. Node treats this as an invalid
	// package configuration error whenever the map is consulted.
	invalidBecause string
}

// Only "." and "./"-prefixed keys, or only condition names
func (m *pjMap) rootIsSubpathMap() bool {
	if m.root.Kind != jsonc.Object || len(m.root.Props) == 0 {
		return false
	}
	return strings.HasPrefix(m.root.Props[0].Key, ".")
}

func (r resolverQuery) parsePackageJSON(dir string) (*packageJSON, *Error) {
	packageJSONPath := r.fs.Join(dir, "package.json")
	result, err := r.caches.ReadJSON(r.fs, packageJSONPath, cache.StrictJSON)
	if r.debugLogs != nil && result.OriginalReadError != nil {
		r.debugLogs.addNote(fmt.Sprintf("Failed to read file %q: %s", packageJSONPath, result.OriginalReadError.Error()))
	}
	if err != nil {
		if result.SyntaxError != nil {
			return nil, newError(ErrMalformedPackageJSON, "Cannot parse %q: %s", packageJSONPath, result.SyntaxError.Error()).withCause(result.SyntaxError)
		}
		if err == syscall.ENOENT {
			return nil, nil
		}
		return nil, newError(ErrIO, "Cannot read file %q: %s", packageJSONPath, err.Error()).
			withCause(errors.Wrapf(result.OriginalReadError, "reading %s", packageJSONPath))
	}

	json := result.Value
	if json.Kind != jsonc.Object {
		return nil, newError(ErrMalformedPackageJSON, "The file %q must contain a JSON object", packageJSONPath)
	}
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Parsed package.json file %q", packageJSONPath))
	}

	packageJSON := &packageJSON{
		absPath: packageJSONPath,
		absDir:  dir,
	}

	if name, ok := json.GetString("name"); ok {
		packageJSON.name = name
	}

	// Read every main field that either mode might ask for
	for _, field := range r.allMainFields {
		value, ok := json.Get(field)
		if !ok {
			continue
		}
		if value.Kind == jsonc.String {
			if packageJSON.mainFields == nil {
				packageJSON.mainFields = make(map[string]string)
			}
			packageJSON.mainFields[field] = value.Str
		} else if value.Kind != jsonc.Null {
			r.log.AddID(logger.MsgID_PackageJSON_InvalidMainField, logger.Warning, logger.MsgData{Path: packageJSONPath},
				fmt.Sprintf("The %q field must be a string, not a %s", field, value.Kind))
		}
	}

	if value, ok := json.Get("tsconfig"); ok {
		if value.Kind == jsonc.String {
			packageJSON.tsconfig = value.Str
		} else {
			r.log.AddID(logger.MsgID_PackageJSON_InvalidTsconfig, logger.Warning, logger.MsgData{Path: packageJSONPath},
				fmt.Sprintf("The \"tsconfig\" field must be a string, not a %s", value.Kind))
		}
	}

	for _, field := range r.options.ExportsFields {
		if value, ok := json.Get(field); ok {
			if value.Kind != jsonc.Null {
				packageJSON.exportsMap = r.parseExportsMap(packageJSONPath, field, value)
			}
			break
		}
	}

	for _, field := range r.options.ImportsFields {
		if value, ok := json.Get(field); ok {
			if value.Kind != jsonc.Null {
				packageJSON.importsMap = r.parseImportsMap(packageJSONPath, field, value)
			}
			break
		}
	}

	return packageJSON, nil
}

func (r resolverQuery) parseExportsMap(packageJSONPath string, field string, value jsonc.Value) *pjMap {
	exportsMap := &pjMap{field: field, root: value}

	switch value.Kind {
	case jsonc.String, jsonc.Array:

	case jsonc.Object:
		// Keys must either all be subpaths or all be conditions
		firstKey := ""
		for i, prop := range value.Props {
			isSubpath := strings.HasPrefix(prop.Key, ".")
			if i == 0 {
				firstKey = prop.Key
			} else if isSubpath != strings.HasPrefix(firstKey, ".") {
				exportsMap.invalidBecause = fmt.Sprintf(
					"the key %q is incompatible with the previous key %q (an %q map cannot mix subpaths and conditions)",
					prop.Key, firstKey, field)
				break
			}
		}

	default:
		exportsMap.invalidBecause = fmt.Sprintf("the %q field must be a string, an array, or an object, not a %s", field, value.Kind)
	}

	if exportsMap.invalidBecause != "" {
		r.log.AddID(logger.MsgID_PackageJSON_InvalidImportsOrExports, logger.Warning, logger.MsgData{Path: packageJSONPath},
			fmt.Sprintf("Invalid %q map: %s", field, exportsMap.invalidBecause))
	}
	return exportsMap
}

func (r resolverQuery) parseImportsMap(packageJSONPath string, field string, value jsonc.Value) *pjMap {
	importsMap := &pjMap{field: field, root: value}

	if value.Kind != jsonc.Object {
		importsMap.invalidBecause = fmt.Sprintf("the %q field must be an object, not a %s", field, value.Kind)
		r.log.AddID(logger.MsgID_PackageJSON_InvalidImportsOrExports, logger.Warning, logger.MsgData{Path: packageJSONPath},
			fmt.Sprintf("Invalid %q map: %s", field, importsMap.invalidBecause))
		return importsMap
	}

	// Keys that don't start with "#" can never match, so drop them with a warning
	props := make([]jsonc.Property, 0, len(value.Props))
	for _, prop := range value.Props {
		if !strings.HasPrefix(prop.Key, "#") {
			r.log.AddID(logger.MsgID_PackageJSON_InvalidImportsOrExports, logger.Warning, logger.MsgData{Path: packageJSONPath},
				fmt.Sprintf("The key %q in the %q map is ignored because it doesn't start with \"#\"", prop.Key, field))
			continue
		}
		props = append(props, prop)
	}
	importsMap.root.Props = props
	return importsMap
}
