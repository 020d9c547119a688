package cache

import (
	"sync"

	"github.com/modresolve/modresolve/internal/fs"
	"github.com/modresolve/modresolve/internal/jsonc"
)

type JSONFlavor uint8

const (
	// package.json files must be strict JSON
	StrictJSON JSONFlavor = iota

	// tsconfig.json files may contain comments and trailing commas
	JSONWithComments
)

type JSONCache struct {
	entries sync.Map // map[jsonKey]*JSONResult
}

type jsonKey struct {
	path   string
	flavor JSONFlavor
}

type JSONResult struct {
	Contents string
	Value    jsonc.Value

	// Set when the file couldn't be read. This is the canonical error from
	// the file system, so a missing file is always syscall.ENOENT.
	ReadError         error
	OriginalReadError error

	// Set when the file was read but isn't well-formed
	SyntaxError *jsonc.SyntaxError
}

// Parse returns the parsed document. The error is non-nil if and only if the
// file couldn't be read or parsed, and is then either ReadError or
// SyntaxError from the result.
func (c *JSONCache) Parse(fsCache *FSCache, fs fs.FS, path string, flavor JSONFlavor) (*JSONResult, error) {
	key := jsonKey{path: path, flavor: flavor}
	if value, ok := c.entries.Load(key); ok {
		return value.(*JSONResult).unpack()
	}

	result := &JSONResult{}
	result.Contents, result.ReadError, result.OriginalReadError = fsCache.ReadFile(fs, path)
	if result.ReadError == nil {
		var value jsonc.Value
		var err error
		if flavor == JSONWithComments {
			value, err = jsonc.ParseJSONC([]byte(result.Contents))
		} else {
			value, err = jsonc.Parse([]byte(result.Contents))
		}
		if err != nil {
			if syntaxErr, ok := err.(*jsonc.SyntaxError); ok {
				result.SyntaxError = syntaxErr
			} else {
				result.SyntaxError = &jsonc.SyntaxError{Err: err}
			}
		} else {
			result.Value = value
		}
	}

	value, _ := c.entries.LoadOrStore(key, result)
	return value.(*JSONResult).unpack()
}

func (r *JSONResult) unpack() (*JSONResult, error) {
	if r.ReadError != nil {
		return r, r.ReadError
	}
	if r.SyntaxError != nil {
		return r, r.SyntaxError
	}
	return r, nil
}
