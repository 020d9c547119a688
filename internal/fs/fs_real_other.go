//go:build !unix

package fs

import "os"

func lstat(path string) (isLink bool, isDir bool, err error) {
	info, err := os.Lstat(path)
	if err != nil {
		return false, false, canonicalize(err)
	}
	return info.Mode()&os.ModeSymlink != 0, info.IsDir(), nil
}

func stat(path string) (isDir bool, err error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, canonicalize(err)
	}
	return info.IsDir(), nil
}

func readlink(path string) (string, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return "", canonicalize(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return "", errNotLink
	}
	link, err := os.Readlink(path)
	return link, canonicalize(err)
}
