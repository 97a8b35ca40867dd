//go:build !windows
// +build !windows

// Package unixlisten implements listen.Listen over a Unix domain
// socket. It is excluded on Windows, which has no Unix domain socket
// support.
package unixlisten

import (
	"fmt"
	"net"

	"github.com/silentframework/netserver/pkg/peeraddr"
)

// Listener wraps a bound *net.UnixListener.
type Listener struct {
	nl   *net.UnixListener
	addr peeraddr.Addr
}

// New binds a Unix domain socket at path. It does not remove a stale
// socket file left behind at path by a previous process that did not
// shut down cleanly; net.ListenUnix fails with "address already in
// use" in that case, and clearing the path first is the caller's
// responsibility.
func New(path string) (*Listener, error) {
	unixAddr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, fmt.Errorf("net.ResolveUnixAddr(unix, %s): %s", path, err)
	}

	nl, err := net.ListenUnix("unix", unixAddr)
	if err != nil {
		return nil, fmt.Errorf("net.ListenUnix(unix, %s): %s", path, err)
	}

	return &Listener{
		nl:   nl,
		addr: peeraddr.FromUnix(nl.Addr().(*net.UnixAddr).Name),
	}, nil
}

// Accept blocks until a client connects, the listener closes, or a
// transient resource error occurs.
func (l *Listener) Accept() (net.Conn, peeraddr.Addr, error) {
	conn, err := l.nl.AcceptUnix()
	if err != nil {
		return nil, peeraddr.Addr{}, err
	}
	// A Unix client typically connects from an unnamed socket, so fall
	// back to the listening path for identification in that case. Linux
	// reports an unnamed peer as "@" rather than "".
	if remote, ok := conn.RemoteAddr().(*net.UnixAddr); ok && remote.Name != "" && remote.Name != "@" {
		return conn, peeraddr.FromUnix(remote.Name), nil
	}
	return conn, l.addr, nil
}

// Addr reports the bound socket path.
func (l *Listener) Addr() peeraddr.Addr {
	return l.addr
}

// Close unblocks any pending Accept and removes the socket file.
func (l *Listener) Close() error {
	return l.nl.Close()
}
