package helpers

import (
	"net/url"
	"strings"
)

// IsFileURL accepts "file:///x" and "file://localhost/x" but not URLs naming
// another host, which can't be turned into a local path
func IsFileURL(fileURL *url.URL) bool {
	if fileURL.Scheme != "file" || !strings.HasPrefix(fileURL.Path, "/") {
		return false
	}
	return fileURL.Host == "" || strings.EqualFold(fileURL.Host, "localhost")
}

// FilePathFromFileURL converts the path of a "file:" URL to a native path.
// Pass the separator of the file system the path is destined for.
//
//	"/C:/Users/User/foo.js" => "C:\Users\User\foo.js" when the separator is "\"
func FilePathFromFileURL(fileURL *url.URL, separator byte) string {
	path := fileURL.Path
	if separator != '\\' {
		return path
	}
	return strings.ReplaceAll(strings.TrimPrefix(path, "/"), "/", "\\")
}

// HasTrailingSlash reports whether a specifier names a directory explicitly,
// as in "./dir/" or "pkg/". Both separators count since the specifier may
// have been written on another platform.
func HasTrailingSlash(path string) bool {
	return strings.HasSuffix(path, "/") || strings.HasSuffix(path, "\\")
}
