// Package wslisten exposes WebSocket upgrades as a listen.Listen
// capability, bridging net/http's request-response model into the
// core's one-connection-at-a-time Accept.
package wslisten

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/silentframework/netserver/pkg/peeraddr"
)

type accepted struct {
	conn net.Conn
	peer peeraddr.Addr
	err  error
}

// Listener runs an http.Server over a base net.Listener and funnels
// every successfully upgraded WebSocket connection through Accept.
type Listener struct {
	nl     net.Listener
	server *http.Server
	addr   peeraddr.Addr
	ch     chan accepted

	closeOnce chan struct{}
}

// Wrap starts serving WebSocket upgrades over nl. nl is typically a
// plain TCP listener or one already wrapped by tls.NewListener; either
// way Wrap takes ownership of it and closes it when the Listener closes.
func Wrap(nl net.Listener) *Listener {
	l := &Listener{
		nl:        nl,
		addr:      peeraddr.FromNetAddr(nl.Addr()),
		ch:        make(chan accepted, 16),
		closeOnce: make(chan struct{}),
	}

	l.server = &http.Server{
		Handler:           http.HandlerFunc(l.upgrade),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		err := l.server.Serve(nl)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.ch <- accepted{err: err}
		}
		close(l.ch)
	}()

	return l
}

func (l *Listener) upgrade(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"bin"},
	})
	if err != nil {
		return
	}

	conn := websocket.NetConn(context.Background(), c, websocket.MessageBinary)
	peer := peeraddr.FromNetAddr(conn.RemoteAddr())

	select {
	case l.ch <- accepted{conn: conn, peer: peer}:
	case <-l.closeOnce:
		conn.Close()
	}
}

// Accept blocks for the next upgraded WebSocket connection.
func (l *Listener) Accept() (net.Conn, peeraddr.Addr, error) {
	a, ok := <-l.ch
	if !ok {
		return nil, peeraddr.Addr{}, fmt.Errorf("wslisten: %w", net.ErrClosed)
	}
	if a.err != nil {
		return nil, peeraddr.Addr{}, a.err
	}
	return a.conn, a.peer, nil
}

// Addr reports the bound address the HTTP server listens on.
func (l *Listener) Addr() peeraddr.Addr {
	return l.addr
}

// Close stops the HTTP server and closes the base listener.
func (l *Listener) Close() error {
	close(l.closeOnce)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return l.server.Shutdown(ctx)
}
