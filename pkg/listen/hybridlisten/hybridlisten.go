// Package hybridlisten offers a QUIC-shaped listen.Listen built from a
// TCP listener and a KCP-over-UDP listener sharing one port number,
// pairing a datagram transport with a stream transport behind one
// Listen implementation. kcp-go stands in for a true QUIC stack, which
// the available dependencies do not cover.
package hybridlisten

import (
	"fmt"
	"net"

	kcp "github.com/xtaci/kcp-go/v5"

	"github.com/silentframework/netserver/pkg/listen"
	"github.com/silentframework/netserver/pkg/peeraddr"
)

type accepted struct {
	conn net.Conn
	peer peeraddr.Addr
	err  error
}

// Listener fans two independent accept loops, one TCP and one KCP, into
// a single Accept call, the same fan-in shape pkg/listeners uses to
// multiplex many listeners — here collapsed to exactly two.
type Listener struct {
	tcp *net.TCPListener
	kcp *kcp.Listener
	ch  chan accepted
}

// New binds a TCP listener and a KCP-over-UDP listener on the same port
// number on addr (host:port). Either bind failing closes whatever
// already succeeded and returns the error.
func New(addr string) (*Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %s", addr, err)
	}

	tl, err := net.ListenTCP("tcp", tcpAddr)
	if err != nil {
		return nil, fmt.Errorf("net.ListenTCP(tcp, %s): %s", addr, err)
	}

	port := tl.Addr().(*net.TCPAddr).Port
	udpAddr := fmt.Sprintf("%s:%d", tcpAddr.IP.String(), port)

	kl, err := kcp.ListenWithOptions(udpAddr, nil, 0, 0)
	if err != nil {
		tl.Close()
		return nil, fmt.Errorf("kcp.ListenWithOptions(%s): %s", udpAddr, err)
	}

	l := &Listener{
		tcp: tl,
		kcp: kl,
		ch:  make(chan accepted, 16),
	}

	go l.acceptTCP()
	go l.acceptKCP()

	return l, nil
}

// acceptTCP runs for the lifetime of the listener, the same way
// pkg/listeners.pump runs for each of its listeners: a transient accept
// error is reported upstream but does not end the loop, so the TCP half
// of the hybrid listener keeps retrying exactly like a standalone
// tcplisten.Listener would. Only a fatal error retires it for good.
func (l *Listener) acceptTCP() {
	for {
		conn, err := l.tcp.AcceptTCP()
		if err != nil {
			l.ch <- accepted{err: err}
			if listen.IsFatal(err) {
				return
			}
			continue
		}
		l.ch <- accepted{conn: conn, peer: peeraddr.FromTCP(conn.RemoteAddr().(*net.TCPAddr))}
	}
}

// acceptKCP mirrors acceptTCP for the KCP-over-UDP half.
func (l *Listener) acceptKCP() {
	for {
		conn, err := l.kcp.AcceptKCP()
		if err != nil {
			l.ch <- accepted{err: err}
			if listen.IsFatal(err) {
				return
			}
			continue
		}
		conn.SetNoDelay(1, 10, 2, 1)
		conn.SetStreamMode(true)
		conn.SetWindowSize(1024, 1024)
		l.ch <- accepted{conn: conn, peer: peeraddr.FromNetAddr(conn.RemoteAddr())}
	}
}

// Accept hands back whichever of the two sub-listeners produces a
// connection first.
func (l *Listener) Accept() (net.Conn, peeraddr.Addr, error) {
	a := <-l.ch
	if a.err != nil {
		return nil, peeraddr.Addr{}, a.err
	}
	return a.conn, a.peer, nil
}

// Addr reports the shared TCP/UDP port as a TCP address.
func (l *Listener) Addr() peeraddr.Addr {
	return peeraddr.FromTCP(l.tcp.Addr().(*net.TCPAddr))
}

// Close closes both sub-listeners.
func (l *Listener) Close() error {
	err1 := l.tcp.Close()
	err2 := l.kcp.Close()
	if err1 != nil {
		return err1
	}
	return err2
}
