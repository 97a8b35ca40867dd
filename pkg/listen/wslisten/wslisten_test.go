package wslisten

import (
	"context"
	"net"
	"testing"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccept_ReceivesUpgradedConnection(t *testing.T) {
	nl, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	l := Wrap(nl)
	defer l.Close()

	dialDone := make(chan error, 1)
	go func() {
		url := "ws://" + nl.Addr().String() + "/"
		c, _, err := websocket.Dial(context.Background(), url, nil)
		if err == nil {
			defer c.CloseNow()
		}
		dialDone <- err
	}()

	conn, peer, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, <-dialDone)
	assert.NotEmpty(t, peer.String())
}

func TestClose_StopsServingNewUpgrades(t *testing.T) {
	nl, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	l := Wrap(nl)
	require.NoError(t, l.Close())

	_, _, err = l.Accept()
	assert.Error(t, err)
}
