package resolver

import (
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/pkg/errors"

	"github.com/modresolve/modresolve/internal/cache"
	"github.com/modresolve/modresolve/internal/config"
	"github.com/modresolve/modresolve/internal/fs"
	"github.com/modresolve/modresolve/internal/helpers"
	"github.com/modresolve/modresolve/internal/logger"
	"github.com/modresolve/modresolve/internal/specifier"
)

type ResolveResult struct {
	// Absolute path of the resolved file
	Path string

	// The "?query" and "#fragment" suffixes of the specifier, if resolution
	// only succeeded without them. Each includes its leading delimiter.
	Query    string
	Fragment string

	// True when the specifier named a TypeScript file (".ts", ".tsx", ".mts"
	// or ".cts") and resolved to a file with that extension
	ResolvedUsingTSExtension bool
}

type Resolver struct {
	fs      fs.FS
	log     logger.Log
	caches  *cache.CacheSet
	options config.Options

	// Loaded once from "options.Tsconfig" and applied to every query
	tsConfig *TSConfigJSON

	// The extension, condition and main field lists for ordinary resolution
	// and for declaration files. Declaration mode puts "types" first.
	normalMode      resolveMode
	declarationMode resolveMode

	// The union of main fields over both modes, which is what gets read from
	// each package.json file
	allMainFields []string

	// These caches are populated once per key and never invalidated. Two
	// queries that miss at the same time may both do the work, but only the
	// first stored result is used.
	dirCache      sync.Map // map[string]dirInfoResult
	realPathCache sync.Map // map[string]realPathResult
}

type resolveMode struct {
	conditions      []string
	extensions      []string
	mainFields      []string
	declarationOnly bool
}

type resolverQuery struct {
	*Resolver
	debugLogs *debugLogs
	mode      *resolveMode
	status    *queryStatus
}

// State shared by every step of one query
type queryStatus struct {
	// The most specific failure seen so far. A query that fails without
	// setting this reports a plain "not found" error.
	err *Error

	// The first file that only matched with different case
	diffCase *fs.DifferentCase
}

func NewResolver(fs fs.FS, log logger.Log, caches *cache.CacheSet, options config.Options) (*Resolver, error) {
	options = options.WithDefaults()
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if caches == nil {
		caches = cache.MakeCacheSet()
	}
	if log.AddMsg == nil {
		log = logger.NewSilentLog()
	}

	res := &Resolver{
		fs:      fs,
		log:     log,
		caches:  caches,
		options: options,
	}

	// "default" always matches, but only after every configured condition
	conditions := appendUnique(nil, options.ConditionNames, "default")
	conditions = append(conditions, "default")
	res.normalMode = resolveMode{
		conditions: conditions,
		extensions: options.Extensions,
		mainFields: options.MainFields,
	}

	declarationConditions := appendUnique([]string{"types"}, options.ConditionNames, "types", "default")
	declarationConditions = append(declarationConditions, "default")
	res.declarationMode = resolveMode{
		conditions:      declarationConditions,
		extensions:      append([]string{}, declarationExtensions...),
		mainFields:      appendUnique([]string{"types", "typings"}, options.MainFields, "types", "typings"),
		declarationOnly: true,
	}
	res.allMainFields = appendUnique(append([]string{}, res.declarationMode.mainFields...), res.normalMode.mainFields)

	if options.Tsconfig != "" {
		r := resolverQuery{Resolver: res, mode: res.defaultMode(), status: &queryStatus{}}
		path := options.Tsconfig
		if abs, ok := fs.Abs(path); ok {
			path = abs
		}
		tsConfig, err := r.loadTSConfig(path)
		if err != nil {
			return nil, err
		}
		res.tsConfig = tsConfig
	}

	return res, nil
}

// Appends each value that isn't already present or excluded
func appendUnique(list []string, values []string, exclude ...string) []string {
	seen := make(map[string]bool)
	for _, value := range list {
		seen[value] = true
	}
	for _, value := range exclude {
		seen[value] = true
	}
	for _, value := range values {
		if !seen[value] {
			seen[value] = true
			list = append(list, value)
		}
	}
	return list
}

func (res *Resolver) defaultMode() *resolveMode {
	if res.options.DeclarationOnly {
		return &res.declarationMode
	}
	return &res.normalMode
}

func (res *Resolver) newQuery(mode *resolveMode, what string) resolverQuery {
	r := resolverQuery{
		Resolver: res,
		mode:     mode,
		status:   &queryStatus{},
	}
	if res.log.Level <= logger.LevelDebug {
		r.debugLogs = &debugLogs{what: what}
	}
	return r
}

// Resolve resolves a specifier written in a file inside "sourceDir". The
// returned error is always a *Error.
func (res *Resolver) Resolve(sourceDir string, importPath string) (*ResolveResult, error) {
	r := res.newQuery(res.defaultMode(),
		fmt.Sprintf("Resolving import %q in directory %q", importPath, sourceDir))

	result, err := r.resolve(sourceDir, importPath)
	if err != nil && err.Kind == ErrNotFound && r.mode.declarationOnly {
		err = res.checkForNonDeclarationFile(err, func(q resolverQuery) (*ResolveResult, *Error) {
			return q.resolve(sourceDir, importPath)
		})
	}
	if err != nil {
		r.warnAboutCase()
		r.flushDebugLogs(flushDueToFailure)
		return nil, err
	}
	r.flushDebugLogs(flushDueToSuccess)
	return result, nil
}

// ResolveTypeReferenceDirective resolves a "/// <reference types="..." />"
// directive in "containingFile". Only declaration files are accepted. The
// returned error is always a *Error.
func (res *Resolver) ResolveTypeReferenceDirective(containingFile string, typeReference string) (*ResolveResult, error) {
	r := res.newQuery(&res.declarationMode,
		fmt.Sprintf("Resolving type reference %q in file %q", typeReference, containingFile))

	sourceDir := r.fs.Dir(r.absPath(containingFile))
	result, err := r.resolveTypeReference(sourceDir, typeReference)
	if err != nil && err.Kind == ErrNotFound {
		err = res.checkForNonDeclarationFile(err, func(q resolverQuery) (*ResolveResult, *Error) {
			return q.resolve(sourceDir, typeReference)
		})
	}
	if err != nil {
		r.warnAboutCase()
		r.flushDebugLogs(flushDueToFailure)
		return nil, err
	}
	r.flushDebugLogs(flushDueToSuccess)
	return result, nil
}

// A failed declaration-only query is retried without that restriction. If
// that finds an implementation file, the failure is reported as that file
// not being a declaration file instead of as a missing file.
func (res *Resolver) checkForNonDeclarationFile(err *Error, retry func(resolverQuery) (*ResolveResult, *Error)) *Error {
	q := resolverQuery{Resolver: res, mode: &res.normalMode, status: &queryStatus{}}
	if result, retryErr := retry(q); retryErr == nil {
		return newError(ErrNotADeclarationFile, "The file %q is not a declaration file", result.Path).
			withNote(err.Message)
	}
	return err
}

func (r resolverQuery) absPath(path string) string {
	if !r.fs.IsAbs(path) {
		if abs, ok := r.fs.Abs(path); ok {
			return abs
		}
	}
	return path
}

type debugLogs struct {
	what   string
	indent string
	notes  []logger.MsgData
}

func (d *debugLogs) addNote(text string) {
	if d.indent != "" {
		text = d.indent + text
	}
	d.notes = append(d.notes, logger.MsgData{Text: text})
}

func (d *debugLogs) increaseIndent() {
	d.indent += "  "
}

func (d *debugLogs) decreaseIndent() {
	d.indent = d.indent[2:]
}

type flushMode uint8

const (
	flushDueToFailure flushMode = iota
	flushDueToSuccess
)

func (r resolverQuery) flushDebugLogs(mode flushMode) {
	if r.debugLogs != nil {
		if mode == flushDueToFailure {
			r.log.AddIDWithNotes(logger.MsgID_None, logger.Debug, logger.MsgData{}, r.debugLogs.what, r.debugLogs.notes)
		} else if r.log.Level <= logger.LevelVerbose {
			r.log.AddIDWithNotes(logger.MsgID_None, logger.Verbose, logger.MsgData{}, r.debugLogs.what, r.debugLogs.notes)
		}
	}
}

func (r resolverQuery) setError(err *Error) {
	r.status.err = err
}

func (r resolverQuery) setErrorIfUnset(err *Error) {
	if r.status.err == nil {
		r.status.err = err
	}
}

// The error for a query that didn't find anything
func (r resolverQuery) failure(importPath string, sourceDir string) *Error {
	err := r.status.err
	if err == nil {
		err = newError(ErrNotFound, "Could not resolve %q from %q", importPath, sourceDir)
	}
	if diffCase := r.status.diffCase; diffCase != nil {
		err = err.clone().withNote(fmt.Sprintf("The file %q differs only in case", r.fs.Join(diffCase.Dir, diffCase.Actual)))
	}
	return err
}

func (r resolverQuery) warnAboutCase() {
	if diffCase := r.status.diffCase; diffCase != nil {
		actual := r.fs.Join(diffCase.Dir, diffCase.Actual)
		r.log.AddID(logger.MsgID_Resolver_DifferentPathCase, logger.Warning, logger.MsgData{Path: actual},
			fmt.Sprintf("Use %q instead of %q to avoid issues with case-sensitive file systems",
				actual, r.fs.Join(diffCase.Dir, diffCase.Query)))
	}
}

func (r resolverQuery) resolve(sourceDir string, importPath string) (*ResolveResult, *Error) {
	sourceDir = r.absPath(sourceDir)

	result, err := r.resolveWithoutSuffix(sourceDir, importPath)
	if err == nil {
		return result, nil
	}

	// If the specifier has a "?query" or "#fragment" suffix, try again
	// without it whatever the failure was, so that the suffix never changes
	// how "exports" and "imports" match. The suffix is then passed along in
	// the result.
	base, query, fragment := specifier.SplitSuffix(importPath)
	if query == "" && fragment == "" {
		return nil, err
	}
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Retrying %q without the suffix %q", base, query+fragment))
	}
	retry := r
	retry.status = &queryStatus{}
	result, retryErr := retry.resolveWithoutSuffix(sourceDir, base)
	if retryErr == nil {
		result.Query = query
		result.Fragment = fragment
		return result, nil
	}

	// Report why the path itself failed unless it simply wasn't found
	if retryErr.Kind != ErrNotFound {
		*r.status = *retry.status
		return nil, retryErr
	}
	return nil, err
}

func (r resolverQuery) resolveWithoutSuffix(sourceDir string, importPath string) (*ResolveResult, *Error) {
	spec, parseErr := specifier.Parse(importPath, r.fs.IsAbs)
	if parseErr != nil {
		// Aliases such as "@/components" aren't valid package names but are
		// common in "paths"
		if importPath != "" {
			if absolute, ok := r.loadFromTSConfig(importPath); ok {
				return r.finalizeResolve(absolute, importPath)
			}
		}
		return nil, newError(ErrInvalidSpecifier, "%s", parseErr.Error()).withCause(parseErr)
	}
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Classified %q as a %s specifier", importPath, spec.Kind))
	}

	var absolute string
	var ok bool

	switch spec.Kind {
	case specifier.Scheme:
		switch spec.SchemeName {
		case "file":
			path, isFile := specifier.FileURLToPath(importPath, r.separator())
			if !isFile {
				return nil, newError(ErrInvalidSpecifier, "The file URL %q is invalid", importPath)
			}
			absolute, ok = r.loadAsFileOrDirectory(path, r.ownPathFlags(path))
		case "node":
			return nil, newError(ErrBuiltin, "The specifier %q refers to a node built-in module", importPath)
		default:
			return nil, newError(ErrUnsupportedScheme, "The %q scheme is not supported in %q", spec.SchemeName+":", importPath)
		}

	case specifier.Relative, specifier.Absolute:
		path := importPath
		if !r.fs.IsAbs(path) {
			path = r.fs.Join(sourceDir, path)
		}
		absolute, ok = r.loadAsFileOrDirectory(path, r.ownPathFlags(importPath))

	case specifier.Internal:
		absolute, ok = r.loadPackageImports(importPath, sourceDir)

	case specifier.Bare, specifier.ScopedBare:
		if r.options.BuiltinModules && specifier.IsBuiltin(importPath) {
			return nil, newError(ErrBuiltin, "The specifier %q refers to a node built-in module", importPath)
		}

		// Try the specifier as a relative path first
		if r.options.PreferRelative {
			if r.debugLogs != nil {
				r.debugLogs.addNote(fmt.Sprintf("Trying %q as a relative path first", importPath))
			}
			absolute, ok = r.loadAsFileOrDirectory(r.fs.Join(sourceDir, importPath), r.ownPathFlags(importPath))
		}

		if !ok {
			sourceDirInfo, err := r.dirInfoCached(sourceDir)
			if err != nil {
				return nil, err
			}
			if sourceDirInfo == nil {
				return nil, newError(ErrNotFound, "Could not resolve %q because the directory %q does not exist", importPath, sourceDir)
			}
			absolute, ok = r.loadNodeModules(spec, sourceDirInfo)
		}
	}

	if !ok {
		return nil, r.failure(importPath, sourceDir)
	}
	return r.finalizeResolve(absolute, importPath)
}

func (r resolverQuery) separator() byte {
	if strings.ContainsRune(r.fs.Join("a", "b"), '\\') {
		return '\\'
	}
	return '/'
}

func (r resolverQuery) ownPathFlags(importPath string) (flags loadFlags) {
	if helpers.HasTrailingSlash(importPath) {
		flags |= loadDirectoryOnly
	}
	if r.options.FullySpecified {
		flags |= loadFullySpecified
	}
	return
}

var typeScriptExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

func (r resolverQuery) finalizeResolve(absolute string, importPath string) (*ResolveResult, *Error) {
	result := &ResolveResult{Path: absolute}

	if !r.options.PreserveSymlinks {
		real, err := r.realPath(absolute)
		if err != nil {
			return nil, err
		}
		if r.debugLogs != nil && real != absolute {
			r.debugLogs.addNote(fmt.Sprintf("Resolved symlink %q to %q", absolute, real))
		}
		result.Path = real
	}

	for _, ext := range typeScriptExtensions {
		if strings.HasSuffix(importPath, ext) && strings.HasSuffix(result.Path, ext) {
			result.ResolvedUsingTSExtension = true
			break
		}
	}

	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Resolved to %q", result.Path))
	}
	return result, nil
}

type realPathResult struct {
	path string
	err  error
}

func (r resolverQuery) realPath(path string) (string, *Error) {
	value, ok := r.realPathCache.Load(path)
	if !ok {
		real, err := fs.EvalSymlinks(r.fs, path)
		value, _ = r.realPathCache.LoadOrStore(path, realPathResult{path: real, err: err})
	}
	cached := value.(realPathResult)
	switch {
	case cached.err == nil:
		return cached.path, nil
	case cached.err == syscall.ELOOP:
		return "", newError(ErrSymlinkCycle, "The path %q contains a symlink cycle", path).withCause(cached.err)
	default:
		return "", newError(ErrIO, "Cannot resolve symlinks in %q: %s", path, cached.err.Error()).
			withCause(errors.Wrapf(cached.err, "resolving symlinks in %s", path))
	}
}

func (r resolverQuery) loadPackageImports(importPath string, sourceDir string) (string, bool) {
	sourceDirInfo, err := r.dirInfoCached(sourceDir)
	if err != nil {
		r.setError(err)
		return "", false
	}
	if sourceDirInfo == nil || sourceDirInfo.enclosingPackageDir == nil {
		r.setError(newError(ErrPackagePathNotExported,
			"The package import %q is not defined because there is no enclosing package.json file", importPath))
		return "", false
	}
	dirInfoPackageJSON := sourceDirInfo.enclosingPackageDir
	packageJSON, err := dirInfoPackageJSON.packageJSONOrError()
	if err != nil {
		r.setError(err)
		return "", false
	}
	if packageJSON.importsMap == nil {
		r.setError(newError(ErrPackagePathNotExported,
			"The package import %q is not defined because %q has no imports map", importPath, packageJSON.absPath))
		return "", false
	}

	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Looking for %q in %q map in %q", importPath, packageJSON.importsMap.field, packageJSON.absPath))
		r.debugLogs.increaseIndent()
		defer r.debugLogs.decreaseIndent()
	}

	resolvedPath, status, debug := esmPackageImportsResolve(importPath, packageJSON.importsMap, r.mode.conditions)

	if status == pjStatusPackageResolve {
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("The import %q was remapped to the package specifier %q", importPath, resolvedPath))
		}
		if r.options.BuiltinModules && specifier.IsBuiltin(resolvedPath) {
			r.setError(newError(ErrBuiltin, "The package import %q refers to the node built-in module %q", importPath, resolvedPath))
			return "", false
		}

		// The import path was remapped via "imports" to another import path
		// that now needs to be resolved too. This is always a package name,
		// so "imports" can't be consulted again and end up in a loop.
		spec, parseErr := specifier.Parse(resolvedPath, r.fs.IsAbs)
		if parseErr != nil || (spec.Kind != specifier.Bare && spec.Kind != specifier.ScopedBare) {
			r.setError(newError(ErrInvalidPackageTarget, "The package import %q maps to the invalid target %q", importPath, resolvedPath))
			return "", false
		}
		absolute, ok := r.loadNodeModules(spec, dirInfoPackageJSON)
		if !ok {
			r.setErrorIfUnset(newError(ErrNotFound, "The remapped path %q for %q could not be resolved", resolvedPath, importPath))
		}
		return absolute, ok
	}

	return r.finalizeImportsExportsResult(dirInfoPackageJSON.absPath, packageJSON, packageJSON.importsMap,
		resolvedPath, status, debug, "", importPath)
}

func (r resolverQuery) esmResolveAlgorithm(esmPackageName string, esmPackageSubpath string, packageJSON *packageJSON, absPkgPath string) (string, bool) {
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Looking for %q in %q map in %q", esmPackageSubpath, packageJSON.exportsMap.field, packageJSON.absPath))
		r.debugLogs.increaseIndent()
		defer r.debugLogs.decreaseIndent()
	}

	// Resolve against the path "/", then join it with the absolute
	// directory path. This is done because ESM package resolution uses
	// URLs while our path resolution uses file system paths. We don't
	// want problems due to Windows paths, which are very unlike URL
	// paths. We also want to avoid any "%" characters in the absolute
	// directory path accidentally being interpreted as URL escapes.
	resolvedPath, status, debug := esmPackageExportsResolve(esmPackageSubpath, packageJSON.exportsMap, r.mode.conditions)

	return r.finalizeImportsExportsResult(absPkgPath, packageJSON, packageJSON.exportsMap,
		resolvedPath, status, debug, esmPackageName, esmPackageSubpath)
}

func (r resolverQuery) finalizeImportsExportsResult(
	absDirPath string,
	packageJSON *packageJSON,
	importExportMap *pjMap,

	// Resolution results
	resolvedPath string,
	status pjStatus,
	debug pjDebug,

	// For exports this is the package name and subpath. For imports the
	// package name is empty and the subpath is the "#" specifier.
	esmPackageName string,
	esmPackageSubpath string,
) (string, bool) {
	switch status {
	case pjStatusExact, pjStatusExactEndsWithStar:
		absResolvedPath := r.fs.Join(absDirPath, resolvedPath)
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("The resolved path %q is exact", absResolvedPath))
		}
		return r.loadExactFile(absResolvedPath, status == pjStatusExactEndsWithStar)

	case pjStatusInexact:
		// If this was resolved against an expansion key ending in a "/"
		// instead of a "*", we need to try CommonJS-style implicit
		// extension and/or directory detection.
		absResolvedPath := r.fs.Join(absDirPath, resolvedPath)
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("The resolved path %q is inexact", absResolvedPath))
		}
		if absolute, ok := r.loadAsFileOrDirectory(absResolvedPath, 0); ok {
			return absolute, true
		}
		r.setErrorIfUnset(newError(ErrNotFound, "The module %q was not found on the file system", absResolvedPath))
		return "", false
	}

	if strings.HasPrefix(resolvedPath, "/") {
		resolvedPath = "." + resolvedPath
	}
	field := importExportMap.field
	var err *Error

	// Provide additional details about the failure to help with debugging
	switch status {
	case pjStatusInvalidModuleSpecifier:
		err = newError(ErrInvalidSpecifier, "The module specifier %q is invalid%s", resolvedPath, debug.invalidBecause)

	case pjStatusInvalidPackageConfiguration:
		err = newError(ErrMalformedPackageJSON, "The %q map in %q is invalid: %s", field, packageJSON.absPath, debug.invalidBecause)

	case pjStatusInvalidPackageTarget:
		err = newError(ErrInvalidPackageTarget, "The package target %q in %q is invalid%s", resolvedPath, packageJSON.absPath, debug.invalidBecause)

	case pjStatusPackagePathNotExported:
		if debug.isBecauseOfNullLiteral {
			err = newError(ErrPackagePathNotExported,
				"The path %q cannot be imported from package %q because it was explicitly disabled by the package author", esmPackageSubpath, esmPackageName)
			break
		}
		err = newError(ErrPackagePathNotExported, "The path %q is not exported by package %q", esmPackageSubpath, esmPackageName)
		detector := helpers.MakeTypoDetector(exportedSubpaths(importExportMap))
		if corrected, ok := detector.MaybeCorrectTypo(esmPackageSubpath); ok {
			err.withNote(fmt.Sprintf("Did you mean %q?", strings.TrimSuffix(esmPackageName+strings.TrimPrefix(corrected, "."), "/")))
		}

	case pjStatusPackageImportNotDefined:
		if debug.isBecauseOfNullLiteral {
			err = newError(ErrPackagePathNotExported,
				"The package import %q was explicitly disabled in the %q map of %q", esmPackageSubpath, field, packageJSON.absPath)
			break
		}
		err = newError(ErrPackagePathNotExported, "The package import %q is not defined in the %q map of %q", esmPackageSubpath, field, packageJSON.absPath)

	case pjStatusUndefinedNoConditionsMatch:
		what := fmt.Sprintf("the path %q in package %q", esmPackageSubpath, esmPackageName)
		if esmPackageName == "" {
			what = fmt.Sprintf("the package import %q", esmPackageSubpath)
		}
		err = newError(ErrNoMatchingCondition, "No condition matches %s", what).
			withNote(fmt.Sprintf("The available conditions are %s", helpers.QuotedList(debug.unmatchedConditions))).
			withNote(fmt.Sprintf("The enabled conditions are %s", helpers.QuotedList(r.mode.conditions)))

	default:
		err = newError(ErrNotFound, "The module %q was not found on the file system", resolvedPath)
	}

	if r.debugLogs != nil {
		r.debugLogs.addNote(err.Error())
	}
	r.setError(err)
	return "", false
}

func (r resolverQuery) loadNodeModules(spec specifier.Specifier, dirInfo *dirInfo) (string, bool) {
	importPath := spec.Raw
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Searching for %q in \"node_modules\" directories starting from %q", importPath, dirInfo.absPath))
		r.debugLogs.increaseIndent()
		defer r.debugLogs.decreaseIndent()
	}

	// First, check path overrides from the configured "tsconfig.json" file
	if absolute, ok := r.loadFromTSConfig(importPath); ok {
		return absolute, true
	}

	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Parsed package name %q and package subpath %q", spec.PackageName, spec.Subpath))
	}

	// Check for self-references
	if dirInfoPackageJSON := dirInfo.enclosingPackageDir; dirInfoPackageJSON != nil {
		packageJSON, err := dirInfoPackageJSON.packageJSONOrError()
		if err != nil {
			r.setError(err)
			return "", false
		}
		if packageJSON.name == spec.PackageName && packageJSON.exportsMap != nil {
			if r.debugLogs != nil {
				r.debugLogs.addNote(fmt.Sprintf("The import %q is a self-reference to %q", importPath, packageJSON.absPath))
			}
			return r.esmResolveAlgorithm(spec.PackageName, spec.Subpath, packageJSON, dirInfoPackageJSON.absPath)
		}
	}

	// Then check for the package in any enclosing "node_modules" directories
	for ; dirInfo != nil; dirInfo = dirInfo.parent {
		// Skip directories that are themselves called "node_modules", since we
		// don't ever want to search for "node_modules/node_modules"
		if !dirInfo.hasNodeModules {
			continue
		}
		modulesDir := r.fs.Join(dirInfo.absPath, "node_modules")

		absolute, ok, found := r.tryToResolvePackage(modulesDir, spec.PackageName, spec.Subpath, importPath)
		if ok {
			return absolute, true
		}

		// TypeScript also looks for a "@types" package next to the package
		if r.mode.declarationOnly && !strings.HasPrefix(spec.PackageName, "@types/") {
			typesName := "@types/" + specifier.MangleScopedPackageName(spec.PackageName)
			savedErr := r.status.err
			typesAbsolute, typesOK, typesFound := r.tryToResolvePackage(modulesDir, typesName, spec.Subpath, typesName+spec.Subpath[1:])
			if typesOK {
				return typesAbsolute, true
			}
			if found {
				r.status.err = savedErr
			}
			found = found || typesFound
		}

		// There's no backtracking once a package directory has been found
		if found {
			return "", false
		}
	}

	return "", false
}

// Non-relative specifiers are checked against "paths" and then "baseUrl"
// before any package lookup
func (r resolverQuery) loadFromTSConfig(importPath string) (string, bool) {
	tsConfigJSON := r.tsConfig
	if tsConfigJSON == nil {
		return "", false
	}

	// Try path substitutions first
	if tsConfigJSON.Paths != nil {
		if absolute, ok := r.matchTSConfigPaths(tsConfigJSON, importPath); ok {
			return absolute, true
		}
	}

	// Try looking up the path relative to the base URL
	if tsConfigJSON.BaseURL != nil {
		basePath := r.fs.Join(*tsConfigJSON.BaseURL, importPath)
		if absolute, ok := r.loadAsFileOrDirectory(basePath, r.ownPathFlags(importPath)); ok {
			return absolute, true
		}
	}
	return "", false
}

// The last return value is true if a package directory was found, in which
// case the search must stop even if resolution failed.
func (r resolverQuery) tryToResolvePackage(modulesDir string, packageName string, subpath string, importPath string) (string, bool, bool) {
	absPkgPath := r.fs.Join(modulesDir, packageName)
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Checking for a package in the directory %q", absPkgPath))
	}

	pkgDirInfo, err := r.dirInfoCached(absPkgPath)
	if err != nil {
		r.setError(err)
		return "", false, true
	}

	// A package may also be a single file directly inside "node_modules"
	if pkgDirInfo == nil {
		if subpath == "." {
			if absolute, ok := r.loadAsFile(absPkgPath, r.ownPathFlags(importPath)); ok {
				return absolute, true, true
			}
		}
		return "", false, false
	}

	packageJSON, err := pkgDirInfo.packageJSONOrError()
	if err != nil {
		r.setError(err)
		return "", false, true
	}

	// Check the "exports" map
	if packageJSON != nil && packageJSON.exportsMap != nil {
		absolute, ok := r.esmResolveAlgorithm(packageName, subpath, packageJSON, absPkgPath)
		return absolute, ok, true
	}

	// Try node's old package resolution rules. The package root itself gets
	// its main fields and "index" lookup regardless of "fully specified".
	if subpath == "." {
		absolute, ok := r.loadDirectory(pkgDirInfo)
		return absolute, ok, true
	}
	absolute, ok := r.loadAsFileOrDirectory(r.fs.Join(absPkgPath, subpath), r.ownPathFlags(importPath))
	return absolute, ok, true
}

func hasCaseInsensitiveSuffix(s string, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func (r resolverQuery) matchTSConfigPaths(tsConfigJSON *TSConfigJSON, path string) (string, bool) {
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Matching %q against \"paths\" in %q", path, tsConfigJSON.AbsPath))
		r.debugLogs.increaseIndent()
		defer r.debugLogs.decreaseIndent()
	}

	absBaseURL := tsConfigJSON.Paths.BaseDir

	// The explicit base URL should take precedence over the implicit base URL
	// if present. This matters when a tsconfig.json file overrides "baseUrl"
	// from another extended tsconfig.json file but doesn't override "paths".
	if tsConfigJSON.BaseURL != nil {
		absBaseURL = *tsConfigJSON.BaseURL
	}

	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Using %q as \"baseUrl\"", absBaseURL))
	}

	// Check for exact matches first, then for the most specific pattern. If
	// two patterns are equally specific, the first one declared wins.
	var longestMatch *TSConfigPath
	capture := ""
	for i := range tsConfigJSON.Paths.Entries {
		entry := &tsConfigJSON.Paths.Entries[i]
		if !entry.Pattern.HasWildcard && entry.Key == path {
			if r.debugLogs != nil {
				r.debugLogs.addNote(fmt.Sprintf("Found an exact match for %q in \"paths\"", entry.Key))
			}
			longestMatch = entry
			capture = ""
			break
		}
		if !entry.Pattern.HasWildcard {
			continue
		}
		if matched, ok := entry.Pattern.Match(path); ok && (longestMatch == nil || entry.Pattern.MoreSpecificThan(longestMatch.Pattern)) {
			longestMatch = entry
			capture = matched
		}
	}

	if longestMatch == nil {
		return "", false
	}
	if r.debugLogs != nil && longestMatch.Pattern.HasWildcard {
		r.debugLogs.addNote(fmt.Sprintf("Found a fuzzy match for %q in \"paths\"", longestMatch.Key))
	}

	for _, originalPath := range longestMatch.Targets {
		// Swap out the "*" in the original path for whatever the "*" matched
		if longestMatch.Pattern.HasWildcard {
			originalPath = strings.Replace(originalPath, "*", capture, 1)
		}

		// Ignore ".d.ts" files unless we're looking for declarations since
		// the rule is obviously only there for type checking
		if !r.mode.declarationOnly && hasCaseInsensitiveSuffix(originalPath, ".d.ts") {
			if r.debugLogs != nil {
				r.debugLogs.addNote(fmt.Sprintf("Ignoring substitution %q because it ends in \".d.ts\"", originalPath))
			}
			continue
		}

		// Load the original path relative to the "baseUrl" from tsconfig.json
		absoluteOriginalPath := originalPath
		if !r.fs.IsAbs(originalPath) {
			absoluteOriginalPath = r.fs.Join(absBaseURL, originalPath)
		}
		if absolute, ok := r.loadAsFileOrDirectory(absoluteOriginalPath, r.ownPathFlags(originalPath)); ok {
			return absolute, true
		}
	}

	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("No substitution for %q in \"paths\" exists, falling back to package search", longestMatch.Key))
	}
	return "", false
}

func (r resolverQuery) resolveTypeReference(sourceDir string, typeReference string) (*ResolveResult, *Error) {
	spec, parseErr := specifier.Parse(typeReference, r.fs.IsAbs)
	if parseErr != nil {
		return nil, newError(ErrInvalidSpecifier, "%s", parseErr.Error()).withCause(parseErr)
	}
	if spec.Kind != specifier.Bare && spec.Kind != specifier.ScopedBare {
		return r.resolve(sourceDir, typeReference)
	}

	// Search the type roots first
	name := specifier.MangleScopedPackageName(spec.PackageName) + spec.Subpath[1:]
	for _, typeRoot := range r.typeRoots(sourceDir) {
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("Checking for %q in the type root %q", name, typeRoot))
		}
		if absolute, ok := r.loadAsFileOrDirectory(r.fs.Join(typeRoot, name), 0); ok {
			return r.finalizeResolve(absolute, typeReference)
		}
	}

	// Then fall back to an ordinary package search
	sourceDirInfo, err := r.dirInfoCached(sourceDir)
	if err != nil {
		return nil, err
	}
	if sourceDirInfo != nil {
		if absolute, ok := r.loadNodeModules(spec, sourceDirInfo); ok {
			return r.finalizeResolve(absolute, typeReference)
		}
	}
	if r.status.err == nil {
		r.status.err = newError(ErrNotFound, "Could not resolve the type reference %q from %q", typeReference, sourceDir)
	}
	return nil, r.failure(typeReference, sourceDir)
}

// Without "typeRoots", every "node_modules/@types" directory above the
// tsconfig.json file (or above the containing file if there is none) is a
// type root.
func (r resolverQuery) typeRoots(sourceDir string) []string {
	if r.tsConfig != nil && r.tsConfig.TypeRoots != nil {
		return r.tsConfig.TypeRoots
	}
	current := sourceDir
	if r.tsConfig != nil {
		current = r.fs.Dir(r.tsConfig.AbsPath)
	}
	var typeRoots []string
	for {
		if r.fs.Base(current) != "node_modules" {
			typeRoots = append(typeRoots, r.fs.Join(current, "node_modules", "@types"))
		}
		next := r.fs.Dir(current)
		if next == current {
			break
		}
		current = next
	}
	return typeRoots
}
