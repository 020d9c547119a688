package fs

// This is a mock implementation of the "fs" module for use with tests. It does
// not actually read from the file system. Instead, it reads from a pre-specified
// map of file paths to files and a map of link paths to link targets.

import (
	"path"
	"strings"
	"syscall"
)

type mockFS struct {
	dirs          map[string]DirEntries
	files         map[string]string
	links         map[string]string
	absWorkingDir string
}

// MockFS builds an in-memory file system. Keys of both maps are absolute
// Unix-style paths. Link targets may be absolute or relative to the directory
// containing the link, and may point at files, directories, other links, or
// nothing at all.
func MockFS(input map[string]string, links map[string]string, absWorkingDir string) FS {
	fs := &mockFS{
		dirs:          make(map[string]DirEntries),
		files:         make(map[string]string),
		links:         make(map[string]string),
		absWorkingDir: absWorkingDir,
	}

	for k, v := range input {
		fs.files[k] = v
		fs.addEntry(k, &Entry{kind: FileEntry})
	}
	for k, v := range links {
		fs.links[k] = v
		fs.addEntry(k, &Entry{needStat: true})
	}

	if fs.absWorkingDir == "" {
		fs.absWorkingDir = "/"
	}
	if _, ok := fs.dirs["/"]; !ok {
		fs.dirs["/"] = MakeEmptyDirEntries("/")
	}
	return fs
}

func (fs *mockFS) addEntry(k string, leaf *Entry) {
	original := k

	// Build the directory map
	for {
		kDir := path.Dir(k)
		dir, ok := fs.dirs[kDir]
		if !ok {
			dir = MakeEmptyDirEntries(kDir)
			fs.dirs[kDir] = dir
		}
		if kDir == k {
			break
		}
		base := path.Base(k)
		if k == original {
			leaf.dir = kDir
			leaf.base = base
			dir.add(leaf)
		} else if _, ok := dir.data[base]; !ok {
			dir.add(&Entry{kind: DirEntry, dir: kDir, base: base})
		}
		k = kDir
	}
}

func (fs *mockFS) ReadDirectory(p string) (DirEntries, error, error) {
	real, err := EvalSymlinks(fs, path.Clean(p))
	if err != nil {
		return DirEntries{}, err, err
	}
	if dir, ok := fs.dirs[real]; ok {
		return dir, nil, nil
	}
	if _, ok := fs.files[real]; ok {
		return DirEntries{}, syscall.ENOTDIR, syscall.ENOTDIR
	}
	return DirEntries{}, syscall.ENOENT, syscall.ENOENT
}

func (fs *mockFS) ReadFile(p string) (string, error, error) {
	real, err := EvalSymlinks(fs, path.Clean(p))
	if err != nil {
		return "", err, err
	}
	if contents, ok := fs.files[real]; ok {
		return contents, nil, nil
	}
	if _, ok := fs.dirs[real]; ok {
		return "", syscall.EISDIR, syscall.EISDIR
	}
	return "", syscall.ENOENT, syscall.ENOENT
}

func (fs *mockFS) Readlink(p string) (string, error) {
	p = path.Clean(p)
	if target, ok := fs.links[p]; ok {
		return target, nil
	}
	if _, ok := fs.files[p]; ok {
		return "", syscall.EINVAL
	}
	if _, ok := fs.dirs[p]; ok {
		return "", syscall.EINVAL
	}
	return "", syscall.ENOENT
}

func (fs *mockFS) IsAbs(p string) bool {
	return path.IsAbs(p)
}

func (fs *mockFS) Abs(p string) (string, bool) {
	if path.IsAbs(p) {
		return path.Clean(p), true
	}
	return path.Join(fs.absWorkingDir, p), true
}

func (*mockFS) Dir(p string) string {
	return path.Dir(p)
}

func (*mockFS) Base(p string) string {
	return path.Base(p)
}

func (*mockFS) Ext(p string) string {
	return path.Ext(p)
}

func (*mockFS) Join(parts ...string) string {
	return path.Clean(path.Join(parts...))
}

func (fs *mockFS) Cwd() string {
	return fs.absWorkingDir
}

func splitOnSlash(path string) (string, string) {
	if slash := strings.IndexByte(path, '/'); slash != -1 {
		return path[:slash], path[slash+1:]
	}
	return path, ""
}

func (*mockFS) Rel(base string, target string) (string, bool) {
	base = path.Clean(base)
	target = path.Clean(target)

	// Base cases
	if base == "" || base == "." {
		return target, true
	}
	if base == target {
		return ".", true
	}

	// Find the common parent directory
	for {
		bHead, bTail := splitOnSlash(base)
		tHead, tTail := splitOnSlash(target)
		if bHead != tHead {
			break
		}
		base = bTail
		target = tTail
	}

	// Stop now if base is a subpath of target
	if base == "" {
		return target, true
	}

	// Traverse up to the common parent
	commonParent := strings.Repeat("../", strings.Count(base, "/")+1)

	// Stop now if target is a subpath of base
	if target == "" {
		return commonParent[:len(commonParent)-1], true
	}

	// Otherwise, down to the parent
	return commonParent + target, true
}

func (fs *mockFS) kind(dir string, base string) (symlink string, kind EntryKind, cycle bool) {
	p := path.Join(dir, base)
	if target, ok := fs.links[p]; ok {
		if path.IsAbs(target) {
			symlink = path.Clean(target)
		} else {
			symlink = path.Join(dir, target)
		}
	}

	real, err := EvalSymlinks(fs, p)
	if err == syscall.ELOOP {
		cycle = true
		return
	}
	if err != nil {
		return
	}
	if _, ok := fs.files[real]; ok {
		kind = FileEntry
	} else if _, ok := fs.dirs[real]; ok {
		kind = DirEntry
	}
	return
}
