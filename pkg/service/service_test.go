package service

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/silentframework/netserver/pkg/peeraddr"
)

func TestHandlerFunc_SatisfiesConnectionService(t *testing.T) {
	var called bool
	var gotPeer peeraddr.Addr

	var svc ConnectionService = HandlerFunc(func(ctx context.Context, conn net.Conn, peer peeraddr.Addr) error {
		called = true
		gotPeer = peer
		return nil
	})

	want := peeraddr.FromUnix("/tmp/x.sock")
	err := svc.Handle(context.Background(), nil, want)

	assert.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, want, gotPeer)
}

func TestHandlerFunc_PropagatesError(t *testing.T) {
	boom := assert.AnError
	svc := HandlerFunc(func(ctx context.Context, conn net.Conn, peer peeraddr.Addr) error {
		return boom
	})

	err := svc.Handle(context.Background(), nil, peeraddr.Addr{})
	assert.Equal(t, boom, err)
}
