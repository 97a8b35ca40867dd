// Package tlslisten wraps any listen.Listen capability with TLS: the
// base listener still owns the raw accept loop, tlslisten only runs the
// handshake and reclassifies the resulting peer address.
package tlslisten

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/silentframework/netserver/pkg/listen"
	"github.com/silentframework/netserver/pkg/peeraddr"
)

// Listener performs a TLS handshake on every connection accepted from
// an underlying listen.Listen.
type Listener struct {
	base   listen.Listen
	config *tls.Config
}

// Wrap returns a Listener that TLS-handshakes every connection accepted
// from base using config. config must carry at least one certificate.
func Wrap(base listen.Listen, config *tls.Config) *Listener {
	return &Listener{base: base, config: config}
}

// Accept blocks for a base accept, then completes the TLS handshake
// before handing the connection back. A handshake failure is reported
// as a plain error, never wrapped as fatal or transient on its own —
// Listeners treats it the same as any other accept error from this
// listener.
func (l *Listener) Accept() (net.Conn, peeraddr.Addr, error) {
	conn, peer, err := l.base.Accept()
	if err != nil {
		return nil, peeraddr.Addr{}, err
	}

	tlsConn := tls.Server(conn, l.config)
	if err := tlsConn.Handshake(); err != nil {
		conn.Close()
		return nil, peeraddr.Addr{}, fmt.Errorf("tls handshake with %s: %s", peer, err)
	}

	return tlsConn, peer.WithTLS(), nil
}

// Addr reports the base listener's address, reclassified as TLS.
func (l *Listener) Addr() peeraddr.Addr {
	return l.base.Addr().WithTLS()
}

// Close closes the base listener.
func (l *Listener) Close() error {
	return l.base.Close()
}
