package cache

import (
	"github.com/modresolve/modresolve/internal/fs"
)

// This is a cache of file contents and of parsed JSON documents. The idea is
// to be able to answer repeated lookups for the same "package.json" or
// "tsconfig.json" file without going back to the file system or re-parsing.
// This only works if:
//
//   - The file system doesn't change while the cache is alive. There is no
//     invalidation. Create a new cache set to observe changes.
//
//   - The cached values are considered immutable. There is no way to enforce
//     this in Go, but please be disciplined about this. The same value is
//     handed to every caller, possibly on different goroutines.
//
// Every entry is populated at most once per key. Two goroutines that miss at
// the same time may both do the work, but only the first stored result is
// ever returned, so every caller observes the same answer.
type CacheSet struct {
	FSCache   FSCache
	JSONCache JSONCache
}

func MakeCacheSet() *CacheSet {
	return &CacheSet{}
}

// ReadJSON reads and parses a file through both caches
func (c *CacheSet) ReadJSON(fs fs.FS, path string, flavor JSONFlavor) (*JSONResult, error) {
	return c.JSONCache.Parse(&c.FSCache, fs, path, flavor)
}
