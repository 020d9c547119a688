package resolver

import (
	"fmt"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	"github.com/modresolve/modresolve/internal/fs"
)

type loadFlags uint8

const (
	// The path ended in a slash, so only a directory can match
	loadDirectoryOnly loadFlags = 1 << iota

	// No implicit extensions and no directory "index" files
	loadFullySpecified
)

// TypeScript-specific behavior: if the extension is ".js" or ".jsx", try
// replacing it with ".ts" or ".tsx". At the time of writing this specific
// behavior comes from the function "loadModuleFromFile()" in the file
// "moduleNameResolver.ts" in the TypeScript compiler source code. It
// contains this comment:
//
//	If that didn't work, try stripping a ".js" or ".jsx" extension and
//	replacing it with a TypeScript one; e.g. "./foo.js" can be matched
//	by "./foo.ts" or "./foo.d.ts"
//
// A replacement is only tried if it's one of the configured extensions.
var rewrittenFileExtensions = map[string][]string{
	// Note that the official compiler code always tries ".ts" before
	// ".tsx" even if the original extension was ".jsx".
	".js":  {".ts", ".tsx"},
	".jsx": {".ts", ".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// In declaration-only mode, implementation files map to their declarations
var declarationFileExtensions = map[string][]string{
	".js":  {".d.ts"},
	".jsx": {".d.ts"},
	".ts":  {".d.ts"},
	".tsx": {".d.ts"},
	".mjs": {".d.mts"},
	".mts": {".d.mts"},
	".cjs": {".d.cts"},
	".cts": {".d.cts"},
}

var declarationExtensions = []string{".d.ts", ".d.mts", ".d.cts"}

// This includes TypeScript's "arbitrary extension" declarations such as
// "styles.d.css.ts" for "styles.css"
func isDeclarationFile(base string) bool {
	for _, ext := range declarationExtensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	if strings.HasSuffix(base, ".ts") {
		trimmed := base[:len(base)-3]
		if dot := strings.LastIndexByte(trimmed, '.'); dot != -1 {
			return strings.HasSuffix(trimmed[:dot], ".d")
		}
	}
	return false
}

func (r resolverQuery) hasConfiguredExtension(base string) bool {
	for _, ext := range r.mode.extensions {
		if strings.HasSuffix(base, ext) {
			return true
		}
	}
	return false
}

// The plain path is accepted as written if it passes these checks
func (r resolverQuery) acceptsPlainFile(base string) bool {
	if r.mode.declarationOnly && !isDeclarationFile(base) {
		return false
	}
	return !r.options.EnforceExtension || r.hasConfiguredExtension(base)
}

func (r resolverQuery) rewrittenBases(base string) (bases []string) {
	lastDot := strings.LastIndexByte(base, '.')
	if lastDot <= 0 {
		return nil
	}
	stem, ext := base[:lastDot], base[lastDot:]

	if r.mode.declarationOnly {
		if isDeclarationFile(base) {
			return nil
		}
		for _, newExt := range declarationFileExtensions[ext] {
			bases = append(bases, stem+newExt)
		}
		return
	}

	for _, newExt := range rewrittenFileExtensions[ext] {
		if r.hasConfiguredExtension(newExt) {
			bases = append(bases, stem+newExt)
		}
	}
	return
}

func (r resolverQuery) readDirectory(dirPath string) (fs.DirEntries, bool) {
	entries, err, originalError := r.fs.ReadDirectory(dirPath)
	if r.debugLogs != nil && originalError != nil {
		r.debugLogs.addNote(fmt.Sprintf("Failed to read directory %q: %s", dirPath, originalError.Error()))
	}
	switch err {
	case nil:
		return entries, true
	case syscall.ENOENT, syscall.ENOTDIR:
	case syscall.ELOOP:
		if !r.options.PreserveSymlinks {
			r.setError(newError(ErrSymlinkCycle, "Cannot read directory %q because of a symlink cycle", dirPath).withCause(originalError))
		}
	default:
		r.setError(newError(ErrIO, "Cannot read directory %q: %s", dirPath, err.Error()).
			withCause(errors.Wrapf(originalError, "reading directory %s", dirPath)))
	}
	return fs.DirEntries{}, false
}

func (r resolverQuery) tryFile(entries fs.DirEntries, dirPath string, base string) (string, bool) {
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Checking for file %q", base))
	}
	entry, diffCase := entries.Get(base)
	if entry == nil {
		return "", false
	}
	if diffCase != nil {
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("Ignoring file %q because it differs from %q in case", diffCase.Actual, base))
		}
		if r.status.diffCase == nil {
			r.status.diffCase = diffCase
		}
		return "", false
	}
	if entry.IsSymlinkCycle(r.fs) {
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("The symlink %q forms a cycle", r.fs.Join(dirPath, base)))
		}
		if !r.options.PreserveSymlinks {
			r.setError(newError(ErrSymlinkCycle, "The symlink %q forms a cycle", r.fs.Join(dirPath, base)))
		}
		return "", false
	}
	if entry.Kind(r.fs) != fs.FileEntry {
		return "", false
	}
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Found file %q", base))
	}
	return r.fs.Join(dirPath, base), true
}

func (r resolverQuery) loadAsFile(path string, flags loadFlags) (string, bool) {
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Attempting to load %q as a file", path))
		r.debugLogs.increaseIndent()
		defer r.debugLogs.decreaseIndent()
	}

	dirPath := r.fs.Dir(path)
	entries, ok := r.readDirectory(dirPath)
	if !ok {
		return "", false
	}
	base := r.fs.Base(path)

	// Try the plain path without any extensions
	if r.acceptsPlainFile(base) {
		if absolute, ok := r.tryFile(entries, dirPath, base); ok {
			return absolute, true
		}
	}

	// Try the path with extensions
	if flags&loadFullySpecified == 0 {
		for _, ext := range r.mode.extensions {
			if absolute, ok := r.tryFile(entries, dirPath, base+ext); ok {
				return absolute, true
			}
		}
	}

	// TypeScript-specific behavior: try rewriting ".js" to ".ts"
	for _, rewritten := range r.rewrittenBases(base) {
		if absolute, ok := r.tryFile(entries, dirPath, rewritten); ok {
			return absolute, true
		}
	}

	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Failed to find file %q", base))
	}
	return "", false
}

func (r resolverQuery) loadAsIndex(dirInfo *dirInfo) (string, bool) {
	// Try the "index" file with extensions
	for _, ext := range r.mode.extensions {
		if absolute, ok := r.tryFile(dirInfo.entries, dirInfo.absPath, "index"+ext); ok {
			return absolute, true
		}
	}
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Failed to find an \"index\" file in %q", dirInfo.absPath))
	}
	return "", false
}

func (r resolverQuery) loadAsMainField(dirInfo *dirInfo, packageJSON *packageJSON) (string, bool) {
	for _, field := range r.mode.mainFields {
		value, ok := packageJSON.mainFields[field]
		if !ok {
			continue
		}
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("Found main field %q with path %q", field, value))
			r.debugLogs.increaseIndent()
		}

		// Main fields get extension probing even in fully specified mode since
		// they aren't what the import statement wrote
		absPath := r.fs.Join(dirInfo.absPath, value)
		absolute, ok := r.loadAsFile(absPath, 0)
		if !ok {
			if mainDirInfo, _ := r.dirInfoCached(absPath); mainDirInfo != nil {
				absolute, ok = r.loadAsIndex(mainDirInfo)
			}
		}

		if r.debugLogs != nil {
			r.debugLogs.decreaseIndent()
		}
		if ok {
			return absolute, true
		}
		if r.debugLogs != nil {
			r.debugLogs.addNote(fmt.Sprintf("Failed to resolve main field %q", field))
		}
	}
	return "", false
}

func (r resolverQuery) loadDirectory(dirInfo *dirInfo) (string, bool) {
	packageJSON, err := dirInfo.packageJSONOrError()
	if err != nil {
		r.setError(err)
		return "", false
	}
	if packageJSON != nil {
		if absolute, ok := r.loadAsMainField(dirInfo, packageJSON); ok {
			return absolute, true
		}
	}
	return r.loadAsIndex(dirInfo)
}

func (r resolverQuery) loadAsFileOrDirectory(path string, flags loadFlags) (string, bool) {
	if r.debugLogs != nil {
		r.debugLogs.addNote(fmt.Sprintf("Attempting to load %q as a file or directory", path))
		r.debugLogs.increaseIndent()
		defer r.debugLogs.decreaseIndent()
	}

	// Is this a file?
	if flags&loadDirectoryOnly == 0 {
		if absolute, ok := r.loadAsFile(path, flags); ok {
			return absolute, true
		}
	}

	// Is this a directory?
	dirInfo, err := r.dirInfoCached(path)
	if err != nil {
		r.setError(err)
		return "", false
	}

	if flags&loadFullySpecified == 0 {
		if dirInfo == nil {
			return "", false
		}
		return r.loadDirectory(dirInfo)
	}

	// Fully specified paths can't omit anything. Look for what would have been
	// found without that restriction to give a more helpful error.
	if flags&loadDirectoryOnly == 0 {
		if absolute, ok := r.loadAsFile(path, 0); ok {
			r.setError(newError(ErrExtensionRequired, "The path %q must include the file extension", path).
				withNote(fmt.Sprintf("Did you mean %q?", absolute)))
			return "", false
		}
	}
	if dirInfo != nil {
		if absolute, ok := r.loadDirectory(dirInfo); ok {
			r.setError(newError(ErrExtensionRequired, "Directory imports are not supported for the fully specified path %q", path).
				withNote(fmt.Sprintf("Did you mean %q?", absolute)))
		}
	}
	return "", false
}

// Exact targets come from "exports" and "imports" maps, which must name a
// file directly. The only leeway is TypeScript extension rewriting.
func (r resolverQuery) loadExactFile(absPath string, endsWithStar bool) (string, bool) {
	dirPath := r.fs.Dir(absPath)
	entries, ok := r.readDirectory(dirPath)
	if !ok {
		r.setErrorIfUnset(newError(ErrNotFound, "The module %q was not found on the file system", absPath))
		return "", false
	}
	base := r.fs.Base(absPath)

	var bases []string
	if !r.mode.declarationOnly || isDeclarationFile(base) {
		bases = append(bases, base)
	}
	bases = append(bases, r.rewrittenBases(base)...)
	if r.mode.declarationOnly && !strings.Contains(base, ".") {
		for _, ext := range declarationExtensions {
			bases = append(bases, base+ext)
		}
	}

	for _, candidate := range bases {
		entry, diffCase := entries.Get(candidate)
		if entry == nil {
			continue
		}
		if diffCase != nil {
			if r.status.diffCase == nil {
				r.status.diffCase = diffCase
			}
			continue
		}
		if entry.IsSymlinkCycle(r.fs) {
			if !r.options.PreserveSymlinks {
				r.setError(newError(ErrSymlinkCycle, "The symlink %q forms a cycle", r.fs.Join(dirPath, candidate)))
				return "", false
			}
			continue
		}
		switch entry.Kind(r.fs) {
		case fs.FileEntry:
			if r.debugLogs != nil {
				r.debugLogs.addNote(fmt.Sprintf("Resolved to %q", r.fs.Join(dirPath, candidate)))
			}
			return r.fs.Join(dirPath, candidate), true
		case fs.DirEntry:
			if r.debugLogs != nil {
				r.debugLogs.addNote(fmt.Sprintf("The path %q is a directory, which is not allowed", r.fs.Join(dirPath, candidate)))
			}
			r.setError(newError(ErrNotFound, "The path %q is a directory, which is not allowed here", r.fs.Join(dirPath, candidate)))
			return "", false
		}
	}

	err := newError(ErrNotFound, "The module %q was not found on the file system", absPath)

	// Try to have a friendly error message if people forget the extension
	if endsWithStar {
		for _, ext := range r.mode.extensions {
			if entry, _ := entries.Get(base + ext); entry != nil {
				err.withNote(fmt.Sprintf("The import is missing the extension %q", ext))
				break
			}
		}
	}
	r.setError(err)
	return "", false
}
