//go:build unix

package fs

import "golang.org/x/sys/unix"

func lstat(path string) (isLink bool, isDir bool, err error) {
	var st unix.Stat_t
	if err = unix.Lstat(path, &st); err != nil {
		return
	}
	mode := st.Mode & unix.S_IFMT
	return mode == unix.S_IFLNK, mode == unix.S_IFDIR, nil
}

func stat(path string) (isDir bool, err error) {
	var st unix.Stat_t
	if err = unix.Stat(path, &st); err != nil {
		return
	}
	return st.Mode&unix.S_IFMT == unix.S_IFDIR, nil
}

func readlink(path string) (string, error) {
	buf := make([]byte, 256)
	for {
		n, err := unix.Readlink(path, buf)
		if err != nil {
			return "", err
		}
		if n < len(buf) {
			return string(buf[:n]), nil
		}
		buf = make([]byte, len(buf)*2)
	}
}
