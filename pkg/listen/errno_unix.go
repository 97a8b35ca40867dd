//go:build !windows
// +build !windows

package listen

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// isTransientErrno reports whether err unwraps to one of the process
// resource-exhaustion errno values a busy acceptor can hit under
// ordinary load (too many open files in the process or in the whole
// system, out of socket buffers) or a connection torn down by the
// peer before accept finished. These are worth retrying after a
// backoff; anything else bound to the listener itself is fatal.
func isTransientErrno(err error) bool {
	var errno syscall.Errno
	if !errors.As(err, &errno) {
		return false
	}
	switch errno {
	case unix.EMFILE, unix.ENFILE, unix.ENOBUFS, unix.ECONNABORTED:
		return true
	default:
		return false
	}
}
