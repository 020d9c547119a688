package fs

import "syscall"

// Reported by Readlink for paths that exist but are not symbolic links. This
// matches what readlink(2) returns on Unix.
var errNotLink error = syscall.EINVAL
