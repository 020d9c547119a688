package cache

import (
	"sync"

	"github.com/modresolve/modresolve/internal/fs"
)

// Reads are memoized by path, including failed reads. A missing file stays
// missing for the lifetime of the cache.

type FSCache struct {
	entries sync.Map // map[string]*fsEntry
}

type fsEntry struct {
	contents       string
	canonicalError error
	originalError  error
}

func (c *FSCache) ReadFile(fs fs.FS, path string) (contents string, canonicalError error, originalError error) {
	if value, ok := c.entries.Load(path); ok {
		entry := value.(*fsEntry)
		return entry.contents, entry.canonicalError, entry.originalError
	}

	entry := &fsEntry{}
	entry.contents, entry.canonicalError, entry.originalError = fs.ReadFile(path)
	value, _ := c.entries.LoadOrStore(path, entry)
	entry = value.(*fsEntry)
	return entry.contents, entry.canonicalError, entry.originalError
}
