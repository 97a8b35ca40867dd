package listeners

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silentframework/netserver/pkg/listen"
	"github.com/silentframework/netserver/pkg/log"
	"github.com/silentframework/netserver/pkg/peeraddr"
)

// fakeConn is a minimal net.Conn good enough to flow through Accept
// without ever touching the network.
type fakeConn struct {
	net.Conn
	id     string
	closed atomic.Bool
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

// fakeListener hands back connections pushed onto ready, or errors
// pushed onto errs, whichever is sent first; Close unblocks everything.
type fakeListener struct {
	addr   peeraddr.Addr
	ready  chan *fakeConn
	errs   chan error
	closed chan struct{}
	once   sync.Once
}

func newFakeListener(name string) *fakeListener {
	return &fakeListener{
		addr:   peeraddr.FromUnix(name),
		ready:  make(chan *fakeConn, 8),
		errs:   make(chan error, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeListener) Accept() (net.Conn, peeraddr.Addr, error) {
	select {
	case c := <-f.ready:
		return c, f.addr, nil
	case err := <-f.errs:
		return nil, peeraddr.Addr{}, err
	case <-f.closed:
		return nil, peeraddr.Addr{}, listen.ErrClosed
	}
}

func (f *fakeListener) Addr() peeraddr.Addr { return f.addr }

func (f *fakeListener) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeListener) push(id string) {
	f.ready <- &fakeConn{id: id}
}

func TestListeners_AcceptFromEveryListener(t *testing.T) {
	a := newFakeListener("a")
	b := newFakeListener("b")

	agg := newListeners([]listen.Listen{a, b}, log.Default)
	defer agg.Close()

	a.push("from-a")
	b.push("from-b")

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		res, err, ok := agg.Accept()
		require.True(t, ok)
		require.NoError(t, err)
		seen[res.Conn.(*fakeConn).id] = true
	}

	assert.True(t, seen["from-a"])
	assert.True(t, seen["from-b"])
}

func TestListeners_LocalAddrs(t *testing.T) {
	a := newFakeListener("a")
	b := newFakeListener("b")

	agg := newListeners([]listen.Listen{a, b}, log.Default)
	defer agg.Close()

	addrs := agg.LocalAddrs()
	require.Len(t, addrs, 2)
	assert.Equal(t, "a", addrs[0].String())
	assert.Equal(t, "b", addrs[1].String())
}

func TestListeners_FatalErrorRetiresOneListenerNotTheOthers(t *testing.T) {
	a := newFakeListener("a")
	b := newFakeListener("b")

	agg := newListeners([]listen.Listen{a, b}, log.Default)
	defer agg.Close()

	a.errs <- errors.New("boom")

	_, err, ok := agg.Accept()
	require.True(t, ok)
	require.Error(t, err)

	b.push("still-alive")
	res, err, ok := agg.Accept()
	require.True(t, ok)
	require.NoError(t, err)
	assert.Equal(t, "still-alive", res.Conn.(*fakeConn).id)
}

func TestListeners_CloseUnblocksAccept(t *testing.T) {
	a := newFakeListener("a")

	agg := newListeners([]listen.Listen{a}, log.Default)

	done := make(chan struct{})
	go func() {
		_, _, ok := agg.Accept()
		assert.False(t, ok)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	agg.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Accept did not unblock after Close")
	}
}

// preloadedListener hands back exactly one accepted connection, then
// reports closed on every subsequent Accept — just enough to pin down
// the race between a pump's buffered delivery and a concurrent Close
// without an accept loop of its own racing against that Close too.
type preloadedListener struct {
	addr peeraddr.Addr
	ch   chan *fakeConn
}

func newPreloadedListener(name string) *preloadedListener {
	return &preloadedListener{addr: peeraddr.FromUnix(name), ch: make(chan *fakeConn, 1)}
}

func (p *preloadedListener) push(c *fakeConn) { p.ch <- c }

func (p *preloadedListener) Accept() (net.Conn, peeraddr.Addr, error) {
	c, ok := <-p.ch
	if !ok {
		return nil, peeraddr.Addr{}, net.ErrClosed
	}
	return c, p.addr, nil
}

func (p *preloadedListener) Addr() peeraddr.Addr { return p.addr }

func (p *preloadedListener) Close() error {
	close(p.ch)
	return nil
}

// TestListeners_PumpDeliversBufferedConnectionDespiteConcurrentClose
// pins down the exact window the success-path select races: a
// connection the listener already handed to pump, sitting one send
// away from a.out, at the moment Close is called. With buffer room
// available, delivery must win every time rather than being dropped on
// a lost race against a.closed.
func TestListeners_PumpDeliversBufferedConnectionDespiteConcurrentClose(t *testing.T) {
	for i := 0; i < 200; i++ {
		p := newPreloadedListener("a")
		agg := newListeners([]listen.Listen{p}, log.Default)

		conn := &fakeConn{id: "x"}
		p.push(conn)

		agg.Close()

		select {
		case s, ok := <-agg.out:
			require.True(t, ok)
			require.NoError(t, s.err)
			assert.Equal(t, "x", s.result.Conn.(*fakeConn).id)
			assert.False(t, conn.closed.Load(), "a delivered connection must not also be closed")
		default:
			t.Fatal("accepted connection was dropped instead of delivered")
		}
	}
}

func TestBackoffFor_CapsAtMax(t *testing.T) {
	assert.Equal(t, baseBackoff, backoffFor(1))
	assert.Equal(t, 2*baseBackoff, backoffFor(2))
	assert.Equal(t, maxBackoff, backoffFor(30))
}

func TestBuilder_FinalizeRequiresAtLeastOneListener(t *testing.T) {
	b := NewBuilder()
	_, err := b.Finalize(log.Default)
	assert.Error(t, err)
}
