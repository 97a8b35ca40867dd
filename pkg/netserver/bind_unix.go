//go:build !windows
// +build !windows

package netserver

import (
	"github.com/silentframework/netserver/pkg/listen"
	"github.com/silentframework/netserver/pkg/listen/unixlisten"
)

// BindUnix registers a Unix domain socket listener to be bound at
// finalization time.
func (n *NetServer) BindUnix(path string) *NetServer {
	n.binds = append(n.binds, func() (listen.Listen, error) {
		return unixlisten.New(path)
	})
	return n
}
