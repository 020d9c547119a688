package fs

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
)

type realFS struct {
	// Stores the file entries for directories we've listed before. Two
	// goroutines racing on the same directory both read it and one result is
	// kept, which is harmless since both reads see the same file system.
	entries sync.Map // map[string]entriesOrErr

	cwd string
}

type entriesOrErr struct {
	canonicalError error
	originalError  error
	entries        DirEntries
}

type RealFSOptions struct {
	// Relative paths are resolved against this directory. Defaults to the
	// current working directory.
	AbsWorkingDir string
}

func RealFS(options RealFSOptions) FS {
	fs := &realFS{}

	if options.AbsWorkingDir != "" {
		fs.cwd = filepath.Clean(options.AbsWorkingDir)
	} else if cwd, err := os.Getwd(); err != nil {
		fs.cwd = string(filepath.Separator)
	} else {
		fs.cwd = cwd
	}

	// Resolve symlinks in the working directory so that relative inputs
	// canonicalize the same way absolute inputs do. Errors are ignored here:
	// an unresolvable working directory will surface later on the first read
	// that actually depends on it.
	if real, err := EvalSymlinks(fs, fs.cwd); err == nil {
		fs.cwd = real
	}

	return fs
}

func (fs *realFS) ReadDirectory(dir string) (DirEntries, error, error) {
	// First, check the cache
	if cached, ok := fs.entries.Load(dir); ok {
		cached := cached.(entriesOrErr)
		return cached.entries, cached.canonicalError, cached.originalError
	}

	// Cache miss: read the directory entries
	names, canonicalError, originalError := readdir(dir)
	entries := DirEntries{dir: dir}
	if canonicalError == nil {
		entries = MakeEmptyDirEntries(dir)
		for _, name := range names {
			// Call "stat" lazily for performance. Large package directories can
			// contain thousands of entries and most of them are never probed.
			entries.add(&Entry{
				dir:      dir,
				base:     name,
				needStat: true,
			})
		}
	}

	// Update the cache unconditionally. Even if the read failed, we don't want
	// to retry again later. The directory is inaccessible so trying again is
	// wasted.
	actual, _ := fs.entries.LoadOrStore(dir, entriesOrErr{
		entries:        entries,
		canonicalError: canonicalError,
		originalError:  originalError,
	})
	cached := actual.(entriesOrErr)
	return cached.entries, cached.canonicalError, cached.originalError
}

func (fs *realFS) ReadFile(path string) (contents string, canonicalError error, originalError error) {
	buffer, originalError := os.ReadFile(path)
	canonicalError = canonicalize(originalError)

	// Windows returns ENOTDIR here even though nothing we've done yet has asked
	// for a directory. This really means ENOENT on Windows. Return ENOENT here
	// so callers that check for ENOENT will successfully detect this file as
	// missing.
	if canonicalError == syscall.ENOTDIR {
		canonicalError = syscall.ENOENT
	}

	return string(buffer), canonicalError, originalError
}

func (fs *realFS) Readlink(path string) (string, error) {
	link, err := readlink(path)
	if err == syscall.ENOTDIR {
		err = syscall.ENOENT
	}
	return link, err
}

func (fs *realFS) IsAbs(p string) bool {
	return filepath.IsAbs(p)
}

func (fs *realFS) Abs(p string) (string, bool) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), true
	}
	return filepath.Join(fs.cwd, p), true
}

func (fs *realFS) Dir(p string) string {
	return filepath.Dir(p)
}

func (fs *realFS) Base(p string) string {
	return filepath.Base(p)
}

func (fs *realFS) Ext(p string) string {
	return filepath.Ext(p)
}

func (fs *realFS) Join(parts ...string) string {
	return filepath.Clean(filepath.Join(parts...))
}

func (fs *realFS) Cwd() string {
	return fs.cwd
}

func (fs *realFS) Rel(base string, target string) (string, bool) {
	if rel, err := filepath.Rel(base, target); err == nil {
		return rel, true
	}
	return "", false
}

func readdir(dirname string) (entries []string, canonicalError error, originalError error) {
	f, originalError := os.Open(dirname)
	canonicalError = canonicalize(originalError)

	// Windows returns ENOTDIR here even though nothing we've done yet has asked
	// for a directory. This really means ENOENT on Windows. Return ENOENT here
	// so callers that check for ENOENT will successfully detect this directory
	// as missing.
	if canonicalError == syscall.ENOTDIR {
		canonicalError = syscall.ENOENT
	}

	// Stop now if there was an error
	if canonicalError != nil {
		return nil, canonicalError, originalError
	}

	defer f.Close()
	entries, originalError = f.Readdirnames(-1)
	canonicalError = canonicalize(originalError)

	// Don't convert ENOTDIR to ENOENT here. ENOTDIR is a legitimate error
	// condition for Readdirnames() on non-Windows platforms.

	return entries, canonicalError, originalError
}

func canonicalize(err error) error {
	// Unwrap to get the underlying error
	if pathErr, ok := err.(*os.PathError); ok {
		err = pathErr.Unwrap()
	}
	if syscallErr, ok := err.(*os.SyscallError); ok {
		err = syscallErr.Unwrap()
	}
	return err
}

func (fs *realFS) kind(dir string, base string) (symlink string, kind EntryKind, cycle bool) {
	entryPath := filepath.Join(dir, base)

	// Use "lstat" since we want information about symbolic links
	isLink, isDir, err := lstat(entryPath)
	if err != nil {
		return
	}

	if isLink {
		link, err := readlink(entryPath)
		if err != nil {
			return // Skip over this entry
		}
		if !filepath.IsAbs(link) {
			link = filepath.Join(dir, link)
		}
		symlink = filepath.Clean(link)

		// Follow the whole chain now so the cache contains the final kind
		isDir, err = stat(entryPath)
		if err == syscall.ELOOP {
			cycle = true
			return
		}
		if err != nil {
			return // Broken link
		}
	}

	// We consider the entry either a directory or a file
	if isDir {
		kind = DirEntry
	} else {
		kind = FileEntry
	}
	return
}
