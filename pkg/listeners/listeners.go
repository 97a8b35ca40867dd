// Package listeners fans several listen.Listen capabilities into one
// backoff-aware accept stream: persistent per-listener goroutines
// feeding one shared channel in the order they deliver, and
// exponential backoff on a listener that is
// hitting transient accept errors, so one noisy listener cannot starve
// the others nor spin a tight error loop.
package listeners

import (
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/silentframework/netserver/pkg/listen"
	"github.com/silentframework/netserver/pkg/log"
	"github.com/silentframework/netserver/pkg/peeraddr"
)

const (
	baseBackoff = 100 * time.Millisecond
	maxBackoff  = 1 * time.Second
)

// Result is one item produced by the aggregate accept stream.
type Result struct {
	Conn     net.Conn
	Peer     peeraddr.Addr
	Listener peeraddr.Addr // local address of the listener that produced Conn
}

type slot struct {
	listener peeraddr.Addr
	result   Result
	err      error
}

// Builder collects Listen implementations and local binds before
// finalizing them into a Listeners aggregate.
type Builder struct {
	listens []listen.Listen
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add registers an already-constructed Listen capability.
func (b *Builder) Add(l listen.Listen) {
	b.listens = append(b.listens, l)
}

// HasAny reports whether any listener has been added yet.
func (b *Builder) HasAny() bool {
	return len(b.listens) > 0
}

// Finalize closes out the builder into a running Listeners aggregate.
// If no listener was ever added, it is the caller's responsibility to
// have already added a default bind — NetServer does this, falling
// back to 127.0.0.1:0.
func (b *Builder) Finalize(logger *log.Logger) (*Listeners, error) {
	if len(b.listens) == 0 {
		return nil, fmt.Errorf("listeners: no listener configured")
	}
	return newListeners(b.listens, logger), nil
}

// Listeners multiplexes accepts across every bound listener, applying
// per-listener exponential backoff to transient errors. Connections are
// handed out in the order the listeners deliver them; there is no
// explicit rotation among listeners that are ready at the same time.
type Listeners struct {
	listens []listen.Listen
	addrs   []peeraddr.Addr
	logger  *log.Logger

	out    chan slot
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

func newListeners(ls []listen.Listen, logger *log.Logger) *Listeners {
	if logger == nil {
		logger = log.Default
	}
	addrs := make([]peeraddr.Addr, len(ls))
	for i, l := range ls {
		addrs[i] = l.Addr()
	}

	agg := &Listeners{
		listens: ls,
		addrs:   addrs,
		logger:  logger,
		out:     make(chan slot, len(ls)),
		closed:  make(chan struct{}),
	}

	for _, l := range ls {
		agg.wg.Add(1)
		go agg.pump(l)
	}

	go func() {
		agg.wg.Wait()
		close(agg.out)
	}()

	return agg
}

// pump runs one listener's accept loop for the lifetime of the
// aggregate, retiring on a fatal error and backing off exponentially
// (100ms, 200ms, 400ms, ... capped at 1s) after each transient one.
func (a *Listeners) pump(l listen.Listen) {
	defer a.wg.Done()

	attempt := 0
	for {
		conn, peer, err := l.Accept()
		if err != nil {
			if listen.IsFatal(err) {
				select {
				case a.out <- slot{listener: l.Addr(), err: err}:
				case <-a.closed:
				}
				return
			}

			attempt++
			wait := backoffFor(attempt)
			a.logger.WarnMsg("transient accept error on %s, backing off %s: %s", nil, l.Addr(), wait, err)

			select {
			case <-time.After(wait):
				continue
			case <-a.closed:
				return
			}
		}

		attempt = 0
		s := slot{listener: l.Addr(), result: Result{Conn: conn, Peer: peer, Listener: l.Addr()}}
		select {
		case a.out <- s:
		default:
			// a.out has no room right now; prefer delivering this
			// already-accepted connection over dropping it on a
			// concurrent Close, so block on the send and race it
			// against closed only as a last resort.
			select {
			case a.out <- s:
			case <-a.closed:
				conn.Close()
				return
			}
		}
	}
}

func backoffFor(attempt int) time.Duration {
	d := time.Duration(float64(baseBackoff) * math.Pow(2, float64(attempt-1)))
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

// Accept returns the next connection from whichever listener produces
// one first. Every pump sends into the same buffered channel, so a
// pump that finds it full waits in line behind the pumps already
// waiting, and each pump has at most one send pending; a listener that
// is always ready therefore cannot keep another out indefinitely, but
// listeners that are ready at the same time are not strictly rotated.
// Accept returns ok=false once every listener has
// retired with a fatal error or the aggregate has been closed.
func (a *Listeners) Accept() (Result, error, bool) {
	select {
	case s, ok := <-a.out:
		if !ok {
			return Result{}, nil, false
		}
		return s.result, s.err, true
	case <-a.closed:
		return Result{}, nil, false
	}
}

// LocalAddrs reports the bound address of every listener in the
// aggregate, in the order they were added.
func (a *Listeners) LocalAddrs() []peeraddr.Addr {
	out := make([]peeraddr.Addr, len(a.addrs))
	copy(out, a.addrs)
	return out
}

// Close stops every listener and unblocks any pending Accept.
func (a *Listeners) Close() error {
	var firstErr error
	a.once.Do(func() {
		close(a.closed)
		for _, l := range a.listens {
			if err := l.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	})
	a.wg.Wait()
	return firstErr
}
