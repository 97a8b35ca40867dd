// Package listen defines the Listen capability that every concrete
// transport (TCP, Unix domain sockets, TLS, hybrid KCP+TCP, WebSocket)
// implements, plus the transient-vs-fatal classification of accept
// errors shared by all of them.
package listen

import (
	"errors"
	"net"

	"github.com/silentframework/netserver/pkg/peeraddr"
)

// Listen is the capability a bound endpoint exposes to the rest of the
// core: hand back one accepted connection at a time, and report the
// address it is bound to. Implementations must be safe to call Accept
// on repeatedly from a single goroutine; Close must unblock any pending
// Accept with an error satisfying IsFatal.
type Listen interface {
	Accept() (net.Conn, peeraddr.Addr, error)
	Addr() peeraddr.Addr
	Close() error
}

// ErrClosed is returned by Accept once Close has been called on the
// listener, mirroring net.ErrClosed. Listeners aggregate recognizes it
// to retire a listener without logging it as a transient error.
var ErrClosed = net.ErrClosed

// IsFatal reports whether an Accept error should retire its listener
// for good, as opposed to a transient condition worth retrying after a
// backoff. The net package's own classification (net.Error.Timeout())
// and a fixed set of process-resource errno values are treated as
// transient; everything else, including a closed listener, is fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, net.ErrClosed) {
		return true
	}
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return false
	}
	return !isTransientErrno(err)
}
