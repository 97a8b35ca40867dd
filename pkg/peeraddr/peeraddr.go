// Package peeraddr provides an immutable sum type over the peer addresses
// a Listen implementation can hand back at accept time.
package peeraddr

import (
	"fmt"
	"net"
)

// Kind identifies which variant of Addr is populated.
type Kind int

const (
	// KindTCP covers both IPv4 and IPv6 TCP endpoints; they are
	// distinguished by the underlying net.TCPAddr, not by Kind.
	KindTCP Kind = iota
	// KindTLSTCP is a TCP endpoint wrapped in TLS. The address itself is
	// identical to the plain-TCP case; only Kind distinguishes them.
	KindTLSTCP
	KindUnix
)

// Addr is the peer identity attached to every dispatched connection.
// Exactly one of the accessor methods is meaningful, selected by Kind.
type Addr struct {
	kind Kind
	tcp  *net.TCPAddr
	unix string
}

// FromTCP wraps a resolved TCP address (v4 or v6).
func FromTCP(a *net.TCPAddr) Addr {
	return Addr{kind: KindTCP, tcp: a}
}

// FromUnix wraps a Unix domain socket path.
func FromUnix(path string) Addr {
	return Addr{kind: KindUnix, unix: path}
}

// WithTLS reclassifies a TCP address as TLS-wrapped, the way the TLS
// listener marks every address coming out of the base listener it wraps.
func (a Addr) WithTLS() Addr {
	if a.kind == KindTCP {
		a.kind = KindTLSTCP
	}
	return a
}

// FromNetAddr classifies a generic net.Addr into the sum type. Unknown
// address families are reported as Unix addresses carrying the raw
// string, matching how an opaque net.Addr is displayed.
func FromNetAddr(a net.Addr) Addr {
	switch v := a.(type) {
	case *net.TCPAddr:
		return FromTCP(v)
	case *net.UnixAddr:
		return FromUnix(v.Name)
	default:
		return Addr{kind: KindUnix, unix: a.String()}
	}
}

// Kind reports which variant is populated.
func (a Addr) Kind() Kind { return a.kind }

// TCP returns the underlying TCP address and whether Kind is KindTCP or
// KindTLSTCP.
func (a Addr) TCP() (*net.TCPAddr, bool) {
	return a.tcp, a.kind == KindTCP || a.kind == KindTLSTCP
}

// UnixPath returns the underlying socket path and whether Kind == KindUnix.
func (a Addr) UnixPath() (string, bool) {
	return a.unix, a.kind == KindUnix
}

// String renders the address the way it should appear in logs and span
// fields: host:port for TCP, the raw path for Unix sockets.
func (a Addr) String() string {
	switch a.kind {
	case KindTCP:
		if a.tcp == nil {
			return "tcp:(unknown)"
		}
		return a.tcp.String()
	case KindTLSTCP:
		if a.tcp == nil {
			return "tls:(unknown)"
		}
		return a.tcp.String()
	case KindUnix:
		return a.unix
	default:
		return fmt.Sprintf("addr(kind=%d)", a.kind)
	}
}
