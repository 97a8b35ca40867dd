//go:build windows
// +build windows

package listen

// isTransientErrno has no portable errno classification on Windows;
// net.Error.Timeout() (checked in IsFatal before this is reached) is
// the only transient signal available there.
func isTransientErrno(err error) bool {
	return false
}
