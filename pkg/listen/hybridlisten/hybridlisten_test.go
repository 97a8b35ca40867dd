package hybridlisten

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BindsBothTransportsOnSamePort(t *testing.T) {
	l, err := New("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	tcpAddr, ok := l.Addr().TCP()
	require.True(t, ok)
	assert.NotZero(t, tcpAddr.Port)
}

func TestAccept_ReceivesOverTCP(t *testing.T) {
	l, err := New("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	tcpAddr, _ := l.Addr().TCP()

	dialDone := make(chan error, 1)
	go func() {
		conn, err := net.Dial("tcp", tcpAddr.String())
		if err == nil {
			defer conn.Close()
		}
		dialDone <- err
	}()

	conn, peer, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, <-dialDone)
	_, ok := peer.TCP()
	assert.True(t, ok)
}

func TestClose_ClosesBothSubListeners(t *testing.T) {
	l, err := New("127.0.0.1:0")
	require.NoError(t, err)

	assert.NoError(t, l.Close())
}

// TestAccept_TCPHalfSurvivesTransientError forces the TCP accept loop
// through a transient classification (a deadline timeout, accepted by
// listen.IsFatal the same as EMFILE/ECONNABORTED) and checks it keeps
// accepting afterward instead of retiring for good.
func TestAccept_TCPHalfSurvivesTransientError(t *testing.T) {
	l, err := New("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	require.NoError(t, l.tcp.SetDeadline(time.Now().Add(10*time.Millisecond)))

	timedOut := false
	for i := 0; i < 20; i++ {
		select {
		case a := <-l.ch:
			if a.err != nil {
				timedOut = true
			}
		case <-time.After(50 * time.Millisecond):
		}
		if timedOut {
			break
		}
	}
	require.True(t, timedOut, "expected a transient timeout error on l.ch")

	require.NoError(t, l.tcp.SetDeadline(time.Time{}))

	// acceptTCP reports every timeout it hit while the deadline was in
	// the past, so more of them may still be queued on l.ch; drain them
	// before dialing so the next Accept sees the real connection.
	for drained := false; !drained; {
		select {
		case a := <-l.ch:
			require.Error(t, a.err)
		case <-time.After(50 * time.Millisecond):
			drained = true
		}
	}

	tcpAddr, _ := l.Addr().TCP()
	dialDone := make(chan error, 1)
	go func() {
		conn, err := net.Dial("tcp", tcpAddr.String())
		if err == nil {
			defer conn.Close()
		}
		dialDone <- err
	}()

	conn, peer, err := l.Accept()
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, <-dialDone)
	_, ok := peer.TCP()
	assert.True(t, ok)
}
