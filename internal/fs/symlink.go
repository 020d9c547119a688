package fs

import (
	"strings"
	"syscall"
)

// Same limit Linux uses for a single path lookup
const maxLinkHops = 40

// EvalSymlinks returns the path with every symbolic link component replaced
// by its target. Revisiting a link with the same remaining path, or exceeding
// the hop limit, fails with syscall.ELOOP instead of looping forever.
func EvalSymlinks(fs FS, path string) (string, error) {
	if !fs.IsAbs(path) {
		if abs, ok := fs.Abs(path); ok {
			path = abs
		}
	}

	resolved, pending := splitPath(fs, path)
	visited := make(map[string]bool)
	hops := 0

	for len(pending) > 0 {
		name := pending[0]
		pending = pending[1:]
		next := fs.Join(resolved, name)

		link, err := fs.Readlink(next)
		if err == syscall.EINVAL {
			// Not a link
			resolved = next
			continue
		}
		if err != nil {
			return "", err
		}

		key := next + "\x00" + strings.Join(pending, "\x00")
		if visited[key] || hops >= maxLinkHops {
			return "", syscall.ELOOP
		}
		visited[key] = true
		hops++

		if fs.IsAbs(link) {
			link = fs.Join(link)
		} else {
			link = fs.Join(resolved, link)
		}
		root, parts := splitPath(fs, link)
		resolved = root
		pending = append(parts, pending...)
	}

	return resolved, nil
}

func splitPath(fs FS, path string) (root string, parts []string) {
	for {
		dir := fs.Dir(path)
		if dir == path {
			break
		}
		parts = append(parts, fs.Base(path))
		path = dir
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return path, parts
}
