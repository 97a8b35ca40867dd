package unixlisten

import (
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BindsSocketFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")

	l, err := New(path)
	require.NoError(t, err)
	defer l.Close()

	assert.Equal(t, path, l.Addr().String())
}

func TestAccept_ReturnsConnectedPeer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")

	l, err := New(path)
	require.NoError(t, err)
	defer l.Close()

	dialErr := make(chan error, 1)
	go func() {
		conn, err := net.Dial("unix", path)
		if err == nil {
			defer conn.Close()
		}
		dialErr <- err
	}()

	conn, peer, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, <-dialErr)
	// unnamed client socket falls back to the listener's bound path
	assert.Equal(t, path, peer.String())
}

func TestClose_UnblocksAccept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.sock")

	l, err := New(path)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := l.Accept()
		done <- err
	}()

	require.NoError(t, l.Close())
	err = <-done
	assert.Error(t, err)
}
