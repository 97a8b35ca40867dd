// Package service defines the protocol-agnostic connection handling
// capability that a NetServer dispatches accepted connections to.
package service

import (
	"context"
	"net"

	"github.com/silentframework/netserver/pkg/peeraddr"
)

// ConnectionService handles a single accepted connection end to end.
// Implementations own the connection: they must close it (directly or
// by returning control to code that does) before Handle returns.
//
// A plain function satisfies this interface via HandlerFunc, so most
// callers never need to declare a struct.
type ConnectionService interface {
	Handle(ctx context.Context, conn net.Conn, peer peeraddr.Addr) error
}

// HandlerFunc adapts an ordinary function to a ConnectionService, the
// way http.HandlerFunc adapts a function to http.Handler.
type HandlerFunc func(ctx context.Context, conn net.Conn, peer peeraddr.Addr) error

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, conn net.Conn, peer peeraddr.Addr) error {
	return f(ctx, conn, peer)
}
