//go:build windows
// +build windows

package tcplisten

import "syscall"

// setReusePort is a no-op on Windows, which has no SO_REUSEPORT.
func setReusePort(_, _ string, _ syscall.RawConn) error {
	return nil
}
