package netserver

import (
	"crypto/tls"
	"fmt"
	"net"

	"github.com/silentframework/netserver/pkg/listen"
	"github.com/silentframework/netserver/pkg/listen/hybridlisten"
	"github.com/silentframework/netserver/pkg/listen/tcplisten"
	"github.com/silentframework/netserver/pkg/listen/tlslisten"
	"github.com/silentframework/netserver/pkg/listen/wslisten"
)

// BindTLS registers a TCP listener wrapped in TLS, terminating the
// handshake before handing connections to the dispatcher.
func (n *NetServer) BindTLS(addr string, config *tls.Config) *NetServer {
	n.binds = append(n.binds, func() (listen.Listen, error) {
		base, err := tcplisten.New(addr)
		if err != nil {
			return nil, err
		}
		return tlslisten.Wrap(base, config), nil
	})
	return n
}

// BindHybrid registers a combined TCP + KCP-over-UDP listener sharing
// one port number, standing in for a true QUIC transport.
func (n *NetServer) BindHybrid(addr string) *NetServer {
	n.binds = append(n.binds, func() (listen.Listen, error) {
		return hybridlisten.New(addr)
	})
	return n
}

// BindWS registers a listener that accepts plain HTTP WebSocket
// upgrades on addr. Unlike the other Bind* methods this binds a raw
// net.Listener directly, since wslisten drives an http.Server that
// needs the standard net.Listener interface rather than listen.Listen.
func (n *NetServer) BindWS(addr string) *NetServer {
	n.binds = append(n.binds, func() (listen.Listen, error) {
		tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %s", addr, err)
		}
		nl, err := net.ListenTCP("tcp", tcpAddr)
		if err != nil {
			return nil, fmt.Errorf("net.ListenTCP(tcp, %s): %s", addr, err)
		}
		return wslisten.Wrap(nl), nil
	})
	return n
}

// BindWSS registers a TLS-wrapped WebSocket listener on addr.
func (n *NetServer) BindWSS(addr string, config *tls.Config) *NetServer {
	n.binds = append(n.binds, func() (listen.Listen, error) {
		tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("net.ResolveTCPAddr(tcp, %s): %s", addr, err)
		}
		nl, err := net.ListenTCP("tcp", tcpAddr)
		if err != nil {
			return nil, fmt.Errorf("net.ListenTCP(tcp, %s): %s", addr, err)
		}
		return wslisten.Wrap(tls.NewListener(nl, config)), nil
	})
	return n
}
