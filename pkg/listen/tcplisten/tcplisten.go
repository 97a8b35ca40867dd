// Package tcplisten implements listen.Listen over a plain TCP socket.
package tcplisten

import (
	"context"
	"fmt"
	"net"

	"github.com/silentframework/netserver/pkg/peeraddr"
)

// Listener wraps a bound *net.TCPListener.
type Listener struct {
	nl   *net.TCPListener
	addr peeraddr.Addr
}

// New resolves and binds addr (host:port, "" host means all interfaces,
// port 0 means let the OS pick), setting SO_REUSEPORT on Unix so
// several processes can share one port.
func New(addr string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %s", addr, err)
	}

	lc := net.ListenConfig{Control: setReusePort}
	ln, err := lc.Listen(context.Background(), "tcp", tcpAddr.String())
	if err != nil {
		return nil, fmt.Errorf("net.ListenConfig.Listen(tcp, %s): %s", addr, err)
	}
	nl := ln.(*net.TCPListener)

	return &Listener{
		nl:   nl,
		addr: peeraddr.FromTCP(nl.Addr().(*net.TCPAddr)),
	}, nil
}

// Accept blocks until a client connects, the listener closes, or a
// transient resource error occurs.
func (l *Listener) Accept() (net.Conn, peeraddr.Addr, error) {
	conn, err := l.nl.AcceptTCP()
	if err != nil {
		return nil, peeraddr.Addr{}, err
	}
	return conn, peeraddr.FromTCP(conn.RemoteAddr().(*net.TCPAddr)), nil
}

// Addr reports the bound local address.
func (l *Listener) Addr() peeraddr.Addr {
	return l.addr
}

// Close unblocks any pending Accept with listen.ErrClosed.
func (l *Listener) Close() error {
	return l.nl.Close()
}
