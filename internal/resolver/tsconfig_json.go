package resolver

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/modresolve/modresolve/internal/cache"
	"github.com/modresolve/modresolve/internal/fs"
	"github.com/modresolve/modresolve/internal/helpers"
	"github.com/modresolve/modresolve/internal/jsonc"
	"github.com/modresolve/modresolve/internal/logger"
	"github.com/modresolve/modresolve/internal/specifier"
)

type TSConfigJSON struct {
	AbsPath string

	// The absolute path of "compilerOptions.baseUrl"
	BaseURL *string

	// The values of "compilerOptions.paths" in declaration order. The keys are
	// patterns to match and the values are arrays of fallback paths to search.
	// Each key and each fallback path can optionally have a single "*"
	// wildcard character. If both the key and the value have a wildcard, the
	// substring matched by the wildcard is substituted into the fallback path.
	Paths *TSConfigPaths

	// The absolute paths of "compilerOptions.typeRoots". This is nil if the
	// option wasn't set, which means every "node_modules/@types" directory
	// above the config file is searched.
	TypeRoots []string
}

type TSConfigPaths struct {
	Entries []TSConfigPath

	// The directory of the file that declared "paths". Relative targets are
	// resolved against this directory when there is no "baseUrl".
	BaseDir string
}

type TSConfigPath struct {
	Key     string
	Pattern helpers.WildcardPattern
	Targets []string
}

const configDirTemplate = "${configDir}"

// ParseTSConfigJSON reads the options this resolver cares about from an
// already-parsed tsconfig.json file. The "extends" callback returns the
// merged base config, or nil and an error. Values from this file override
// values from its bases one option at a time.
func ParseTSConfigJSON(
	log logger.Log,
	fs fs.FS,
	absPath string,
	json jsonc.Value,
	configDir string,
	extends func(string) (*TSConfigJSON, *Error),
) (*TSConfigJSON, *Error) {
	fileDir := fs.Dir(absPath)
	result := TSConfigJSON{AbsPath: absPath}

	// Parse "extends". TypeScript 5.0 allows an array, where later entries
	// override earlier ones.
	if value, ok := json.Get("extends"); ok {
		var bases []string
		switch value.Kind {
		case jsonc.String:
			bases = []string{value.Str}
		case jsonc.Array:
			for _, item := range value.Items {
				if item.Kind != jsonc.String {
					return nil, newError(ErrMalformedTsconfig, "Every entry of \"extends\" in %q must be a string", absPath)
				}
				bases = append(bases, item.Str)
			}
		default:
			return nil, newError(ErrMalformedTsconfig, "The \"extends\" field in %q must be a string or an array", absPath)
		}
		for _, base := range bases {
			baseConfig, err := extends(base)
			if err != nil {
				return nil, err
			}
			if baseConfig.BaseURL != nil {
				result.BaseURL = baseConfig.BaseURL
			}
			if baseConfig.Paths != nil {
				result.Paths = baseConfig.Paths
			}
			if baseConfig.TypeRoots != nil {
				result.TypeRoots = baseConfig.TypeRoots
			}
		}
	}

	compilerOptions, ok := json.Get("compilerOptions")
	if !ok || compilerOptions.Kind != jsonc.Object {
		return &result, nil
	}
	data := logger.MsgData{Path: absPath}

	toAbs := func(text string) string {
		if strings.HasPrefix(text, configDirTemplate) {
			text = fs.Join(configDir, "./"+text[len(configDirTemplate):])
		}
		if !fs.IsAbs(text) {
			text = fs.Join(fileDir, text)
		}
		return text
	}

	// Parse "baseUrl"
	if value, ok := compilerOptions.Get("baseUrl"); ok {
		if value.Kind == jsonc.String {
			baseURL := toAbs(value.Str)
			result.BaseURL = &baseURL
		} else {
			log.AddID(logger.MsgID_TsconfigJSON_InvalidBaseURL, logger.Warning, data,
				fmt.Sprintf("Invalid \"baseUrl\": expected a string, got a %s", value.Kind))
		}
	}

	// Parse "paths"
	if value, ok := compilerOptions.Get("paths"); ok {
		if value.Kind != jsonc.Object {
			log.AddID(logger.MsgID_TsconfigJSON_InvalidPaths, logger.Warning, data,
				fmt.Sprintf("Invalid \"paths\": expected an object, got a %s", value.Kind))
		} else {
			paths := &TSConfigPaths{BaseDir: fileDir}
			for _, prop := range value.Props {
				pattern, ok := helpers.ParseWildcardPattern(prop.Key)
				if !ok {
					log.AddID(logger.MsgID_TsconfigJSON_InvalidPaths, logger.Warning, data,
						fmt.Sprintf("Invalid pattern %q, must have at most one \"*\" character", prop.Key))
					continue
				}
				if prop.Value.Kind != jsonc.Array {
					log.AddID(logger.MsgID_TsconfigJSON_InvalidPaths, logger.Warning, data,
						fmt.Sprintf("Substitutions for pattern %q should be an array", prop.Key))
					continue
				}
				entry := TSConfigPath{Key: prop.Key, Pattern: pattern}
				for _, item := range prop.Value.Items {
					if item.Kind != jsonc.String {
						log.AddID(logger.MsgID_TsconfigJSON_InvalidPaths, logger.Warning, data,
							fmt.Sprintf("Substitution for pattern %q should be a string, got a %s", prop.Key, item.Kind))
						continue
					}
					if strings.Count(item.Str, "*") > 1 {
						log.AddID(logger.MsgID_TsconfigJSON_InvalidPaths, logger.Warning, data,
							fmt.Sprintf("Invalid substitution %q, must have at most one \"*\" character", item.Str))
						continue
					}
					target := item.Str
					if strings.HasPrefix(target, configDirTemplate) {
						target = fs.Join(configDir, "./"+target[len(configDirTemplate):])
					}
					entry.Targets = append(entry.Targets, target)
				}

				// Duplicate keys keep their first position but take the last value
				replaced := false
				for i := range paths.Entries {
					if paths.Entries[i].Key == entry.Key {
						paths.Entries[i] = entry
						replaced = true
						break
					}
				}
				if !replaced {
					paths.Entries = append(paths.Entries, entry)
				}
			}
			result.Paths = paths
		}
	}

	// Parse "typeRoots"
	if value, ok := compilerOptions.Get("typeRoots"); ok {
		if value.Kind != jsonc.Array {
			log.AddID(logger.MsgID_TsconfigJSON_InvalidTypeRoots, logger.Warning, data,
				fmt.Sprintf("Invalid \"typeRoots\": expected an array, got a %s", value.Kind))
		} else {
			typeRoots := []string{}
			for _, item := range value.Items {
				if item.Kind != jsonc.String {
					log.AddID(logger.MsgID_TsconfigJSON_InvalidTypeRoots, logger.Warning, data,
						fmt.Sprintf("Invalid entry in \"typeRoots\": expected a string, got a %s", item.Kind))
					continue
				}
				typeRoots = append(typeRoots, toAbs(item.Str))
			}
			result.TypeRoots = typeRoots
		}
	}

	return &result, nil
}

// Targets that aren't relative or absolute only make sense with a "baseUrl".
// This must be checked on the final merged config because one file can
// specify "baseUrl" and inherit "paths" from another.
func dropPackageStyleTargets(log logger.Log, fs fs.FS, config *TSConfigJSON) {
	if config.Paths == nil || config.BaseURL != nil {
		return
	}
	paths := &TSConfigPaths{BaseDir: config.Paths.BaseDir}
	for _, entry := range config.Paths.Entries {
		targets := make([]string, 0, len(entry.Targets))
		for _, target := range entry.Targets {
			if isRelativeOrAbsolute(fs, target) {
				targets = append(targets, target)
				continue
			}
			log.AddID(logger.MsgID_TsconfigJSON_InvalidPaths, logger.Warning, logger.MsgData{Path: config.AbsPath},
				fmt.Sprintf("Non-relative path %q is not allowed when \"baseUrl\" is not set (did you forget a leading \"./\"?)", target))
		}
		entry.Targets = targets
		paths.Entries = append(paths.Entries, entry)
	}
	config.Paths = paths
}

func isRelativeOrAbsolute(fs fs.FS, path string) bool {
	return path == "." || path == ".." || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") ||
		strings.HasPrefix(path, ".\\") || strings.HasPrefix(path, "..\\") || fs.IsAbs(path)
}

var errTSConfigNotFound = newError(ErrMalformedTsconfig, "not found").withCause(syscall.ENOENT)

// loadTSConfig loads the tsconfig.json file at "path" or, for a directory,
// the "tsconfig.json" file inside it, along with everything it extends.
func (r resolverQuery) loadTSConfig(path string) (*TSConfigJSON, *Error) {
	if info, _ := r.dirInfoCached(path); info != nil {
		path = r.fs.Join(path, "tsconfig.json")
	}
	config, err := r.parseTSConfig(path, make(map[string]bool), r.fs.Dir(path))
	if err == errTSConfigNotFound {
		return nil, newError(ErrMalformedTsconfig, "Cannot find tsconfig file %q", path).withCause(syscall.ENOENT)
	}
	if err != nil {
		return nil, err
	}
	dropPackageStyleTargets(r.log, r.fs, config)
	return config, nil
}

// This returns "errTSConfigNotFound" if the file doesn't exist so the caller
// can try the next candidate.
func (r resolverQuery) parseTSConfig(file string, visited map[string]bool, configDir string) (*TSConfigJSON, *Error) {
	// Resolve any symlinks first so cycles through links are still detected
	key := file
	if !r.options.PreserveSymlinks {
		if real, err := fs.EvalSymlinks(r.fs, file); err == nil {
			key = real
		}
	}

	// Don't infinite loop if a series of "extends" links forms a cycle
	if visited[key] {
		return nil, newError(ErrConfigCycle, "The tsconfig file %q extends itself through a cycle", file)
	}

	result, err := r.caches.ReadJSON(r.fs, file, cache.JSONWithComments)
	if r.debugLogs != nil && result.OriginalReadError != nil {
		r.debugLogs.addNote(fmt.Sprintf("Failed to read file %q: %s", file, result.OriginalReadError.Error()))
	}
	if err != nil {
		if result.SyntaxError != nil {
			return nil, newError(ErrMalformedTsconfig, "Cannot parse %q: %s", file, result.SyntaxError.Error()).withCause(result.SyntaxError)
		}
		if err == syscall.ENOENT || err == syscall.EISDIR {
			return nil, errTSConfigNotFound
		}
		return nil, newError(ErrMalformedTsconfig, "Cannot read file %q: %s", file, err.Error()).withCause(result.OriginalReadError)
	}
	if result.Value.Kind != jsonc.Object {
		return nil, newError(ErrMalformedTsconfig, "The file %q must contain a JSON object", file)
	}
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Parsed tsconfig file %q", file))
	}

	// The same base may be reached again through a different "extends"
	// entry, which isn't a cycle, so only mark it while it's being parsed
	visited[key] = true
	defer delete(visited, key)

	return ParseTSConfigJSON(r.log, r.fs, file, result.Value, configDir, func(extends string) (*TSConfigJSON, *Error) {
		base, err := r.resolveTSConfigExtends(extends, r.fs.Dir(file), visited, configDir)
		if err == errTSConfigNotFound {
			return nil, newError(ErrMalformedTsconfig, "Cannot find base config file %q extended by %q", extends, file)
		}
		return base, err
	})
}

func (r resolverQuery) resolveTSConfigExtends(extends string, fileDir string, visited map[string]bool, configDir string) (*TSConfigJSON, *Error) {
	// "." and ".." are interpreted as having an implicit "tsconfig.json" suffix
	if extends == "." || extends == ".." {
		extends += "/tsconfig.json"
	}

	if isRelativeOrAbsolute(r.fs, extends) {
		extendsFile := extends
		if !r.fs.IsAbs(extendsFile) {
			extendsFile = r.fs.Join(fileDir, extendsFile)
		}

		// Only try adding ".json" if it's not already present
		base, err := r.parseTSConfig(extendsFile, visited, configDir)
		if err == errTSConfigNotFound && !strings.HasSuffix(extendsFile, ".json") {
			base, err = r.parseTSConfig(extendsFile+".json", visited, configDir)
		}
		return base, err
	}

	name, subpath, ok := specifier.ParsePackageName(extends)
	if !ok {
		return nil, errTSConfigNotFound
	}
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Parsed tsconfig package name %q and package subpath %q", name, subpath))
	}

	// Search upward for the package in "node_modules" directories
	for current := fileDir; ; {
		if r.fs.Base(current) != "node_modules" {
			modulesDir := r.fs.Join(current, "node_modules")
			pkgDir := r.fs.Join(modulesDir, name)
			join := r.fs.Join(modulesDir, extends)
			var filesToCheck []string

			if pkgInfo, _ := r.dirInfoCached(pkgDir); pkgInfo != nil && pkgInfo.packageJSON != nil {
				packageJSON := pkgInfo.packageJSON

				// The "tsconfig" field of "package.json" names the config for the package root
				if packageJSON.tsconfig != "" && subpath == "." {
					filesToCheck = append(filesToCheck, r.fs.Join(pkgDir, packageJSON.tsconfig))
				}

				// TypeScript treats "extends" as a "require" for the "exports" map
				if packageJSON.exportsMap != nil {
					resolvedPath, status, _ := esmPackageExportsResolve(subpath, packageJSON.exportsMap, tsconfigExtendsConditions)
					if status == pjStatusExact || status == pjStatusExactEndsWithStar {
						filesToCheck = append(filesToCheck, r.fs.Join(pkgDir, resolvedPath))
					}
				}
			}

			filesToCheck = append(filesToCheck, r.fs.Join(join, "tsconfig.json"), join, join+".json")
			for _, fileToCheck := range filesToCheck {
				if base, err := r.parseTSConfig(fileToCheck, visited, configDir); err != errTSConfigNotFound {
					return base, err
				}
			}
		}

		// Go to the parent directory, stopping at the file system root
		next := r.fs.Dir(current)
		if current == next {
			break
		}
		current = next
	}

	return nil, errTSConfigNotFound
}

var tsconfigExtendsConditions = []string{"types", "require", "default"}
