package fs

import (
	"sort"
	"strings"
	"sync"
)

type EntryKind uint8

const (
	DirEntry  EntryKind = 1
	FileEntry EntryKind = 2
)

type Entry struct {
	symlink  string
	dir      string
	base     string
	mutex    sync.Mutex
	kind     EntryKind
	cycle    bool
	needStat bool
}

// Kind follows symbolic links. An entry whose link chain is broken or cyclic
// has a zero kind.
func (e *Entry) Kind(fs FS) EntryKind {
	e.stat(fs)
	return e.kind
}

// Symlink returns the absolute target of the first link hop, or "" if this
// entry is not a symbolic link.
func (e *Entry) Symlink(fs FS) string {
	e.stat(fs)
	return e.symlink
}

// IsSymlinkCycle reports whether following this entry's links never
// terminates.
func (e *Entry) IsSymlinkCycle(fs FS) bool {
	e.stat(fs)
	return e.cycle
}

func (e *Entry) stat(fs FS) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.needStat {
		e.needStat = false
		e.symlink, e.kind, e.cycle = fs.kind(e.dir, e.base)
	}
}

type DirEntries struct {
	data   map[string]*Entry
	folded map[string]*Entry
	dir    string
}

func MakeEmptyDirEntries(dir string) DirEntries {
	return DirEntries{dir: dir, data: make(map[string]*Entry), folded: make(map[string]*Entry)}
}

func (entries DirEntries) add(entry *Entry) {
	entries.data[entry.base] = entry
	if _, ok := entries.folded[strings.ToLower(entry.base)]; !ok {
		entries.folded[strings.ToLower(entry.base)] = entry
	}
}

type DifferentCase struct {
	Dir    string
	Query  string
	Actual string
}

// Get looks up an entry case-insensitively. An entry whose real name differs
// from the query in case is returned together with a non-nil DifferentCase so
// callers can decide whether to accept it.
func (entries DirEntries) Get(query string) (*Entry, *DifferentCase) {
	if entries.data != nil {
		if entry := entries.data[query]; entry != nil {
			return entry, nil
		}
		if entry := entries.folded[strings.ToLower(query)]; entry != nil {
			return entry, &DifferentCase{
				Dir:    entries.dir,
				Query:  query,
				Actual: entry.base,
			}
		}
	}
	return nil, nil
}

func (entries DirEntries) Len() int {
	return len(entries.data)
}

func (entries DirEntries) SortedKeys() (keys []string) {
	if entries.data != nil {
		keys = make([]string, 0, len(entries.data))
		for key := range entries.data {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	return
}

type FS interface {
	// The returned entries are immutable and are cached across invocations. Do
	// not mutate them.
	ReadDirectory(path string) (entries DirEntries, canonicalError error, originalError error)
	ReadFile(path string) (contents string, canonicalError error, originalError error)

	// Readlink returns the raw target of a symbolic link. Paths that exist but
	// are not links report syscall.EINVAL.
	Readlink(path string) (string, error)

	// This is part of the interface because the mock interface used for tests
	// should not depend on file system behavior (i.e. different slashes for
	// Windows) while the real interface should.
	IsAbs(path string) bool
	Abs(path string) (string, bool)
	Dir(path string) string
	Base(path string) string
	Ext(path string) string
	Join(parts ...string) string
	Cwd() string
	Rel(base string, target string) (string, bool)

	// This is used in the implementation of "Entry"
	kind(dir string, base string) (symlink string, kind EntryKind, cycle bool)
}
