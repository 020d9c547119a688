package resolver

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"

	"github.com/modresolve/modresolve/internal/fs"
)

// Directory information is computed once per directory and then shared by
// every query. These objects are immutable, so a child can just point to its
// parent directory.
type dirInfo struct {
	parent *dirInfo

	absPath string
	entries fs.DirEntries

	// Is there a "package.json" file in this directory? If the file exists
	// but can't be used, "packageJSONErr" is set instead.
	packageJSON    *packageJSON
	packageJSONErr *Error

	// The nearest directory at or above this one with a "package.json" file
	enclosingPackageDir *dirInfo

	isNodeModules  bool // Is the base name "node_modules"?
	hasNodeModules bool // Is there a "node_modules" subdirectory?
}

type dirInfoResult struct {
	info *dirInfo
	err  *Error
}

// Both missing directories and unreadable directories are cached. A nil info
// with a nil error means the directory doesn't exist.
func (r resolverQuery) dirInfoCached(path string) (*dirInfo, *Error) {
	value, ok := r.dirCache.Load(path)
	if !ok {
		info, err := r.dirInfoUncached(path)
		value, _ = r.dirCache.LoadOrStore(path, dirInfoResult{info: info, err: err})
	}
	cached := value.(dirInfoResult)

	if r.debugLogs != nil {
		if cached.info == nil {
			r.debugLogs.addNote(fmt.Sprintf("Failed to read directory %q", path))
		} else {
			count := cached.info.entries.Len()
			entries := "entries"
			if count == 1 {
				entries = "entry"
			}
			r.debugLogs.addNote(fmt.Sprintf("Read %d %s for directory %q", count, entries, path))
		}
	}

	return cached.info, cached.err
}

func (r resolverQuery) dirInfoUncached(path string) (*dirInfo, *Error) {
	// Get the info for the parent directory
	var parentInfo *dirInfo
	parentDir := r.fs.Dir(path)
	if parentDir != path {
		var err *Error
		parentInfo, err = r.dirInfoCached(parentDir)

		// Stop now if the parent directory doesn't exist
		if parentInfo == nil {
			return nil, err
		}
	}

	// List the directories
	entries, err, originalError := r.fs.ReadDirectory(path)
	if err == syscall.EACCES || err == syscall.EPERM {
		// Just pretend this directory is empty if we can't access it. This is the
		// case on Unix for directories that only have the execute permission bit
		// set. It means we will just pass through the empty directory and
		// continue to check the directories above it, which is how node behaves.
		entries = fs.MakeEmptyDirEntries(path)
		err = nil
	}
	if r.debugLogs != nil && originalError != nil {
		r.debugLogs.addNote(fmt.Sprintf("Failed to read directory %q: %s", path, originalError.Error()))
	}
	if err != nil {
		switch err {
		case syscall.ENOENT, syscall.ENOTDIR:
			// Treat a file in place of a directory as if there is nothing there
			return nil, nil
		case syscall.ELOOP:
			if r.options.PreserveSymlinks {
				return nil, nil
			}
			return nil, newError(ErrSymlinkCycle, "Cannot read directory %q because of a symlink cycle", path).withCause(originalError)
		}
		return nil, newError(ErrIO, "Cannot read directory %q: %s", path, err.Error()).
			withCause(errors.Wrapf(originalError, "reading directory %s", path))
	}

	info := &dirInfo{
		absPath: path,
		parent:  parentInfo,
		entries: entries,
	}

	// A "node_modules" directory isn't allowed to directly contain another "node_modules" directory
	base := r.fs.Base(path)
	if base == "node_modules" {
		info.isNodeModules = true
	} else if entry, diffCase := entries.Get("node_modules"); entry != nil && diffCase == nil {
		info.hasNodeModules = entry.Kind(r.fs) == fs.DirEntry
	}

	if parentInfo != nil {
		info.enclosingPackageDir = parentInfo.enclosingPackageDir
	}

	// Record if this directory has a package.json file
	if entry, diffCase := entries.Get("package.json"); entry != nil && diffCase == nil && entry.Kind(r.fs) == fs.FileEntry {
		info.packageJSON, info.packageJSONErr = r.parsePackageJSON(path)
		if info.packageJSON != nil || info.packageJSONErr != nil {
			info.enclosingPackageDir = info
		}
	}

	return info, nil
}

// The "package.json" file of this directory, which must exist. Returns an
// error if it exists but couldn't be used.
func (info *dirInfo) packageJSONOrError() (*packageJSON, *Error) {
	if info.packageJSONErr != nil {
		return nil, info.packageJSONErr
	}
	return info.packageJSON, nil
}
