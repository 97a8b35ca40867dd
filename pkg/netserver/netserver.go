// Package netserver implements NetServer, the protocol-agnostic
// connection-acceptance engine the rest of this module's packages
// exist to support. Its builder chain exposes
// bind/bind_unix/listen/on_listen/with_rate_limiter/with_shutdown/
// set_shutdown_callback-style methods, finalized by Run (blocking) or
// Serve (returns when stopped), accepting from however many listeners
// were configured and falling back to one loopback TCP listener if
// none were.
package netserver

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/silentframework/netserver/pkg/listen"
	"github.com/silentframework/netserver/pkg/listen/tcplisten"
	"github.com/silentframework/netserver/pkg/listeners"
	"github.com/silentframework/netserver/pkg/log"
	"github.com/silentframework/netserver/pkg/peeraddr"
	"github.com/silentframework/netserver/pkg/ratelimit"
	"github.com/silentframework/netserver/pkg/service"
	"github.com/silentframework/netserver/pkg/shutdown"
	"github.com/silentframework/netserver/pkg/telemetry"
)

// defaultBind is the address used when Run/Serve is called with no
// listener configured at all.
const defaultBind = "127.0.0.1:0"

// ListenCallback is invoked once, after every listener has bound but
// before the first accept, with the local address of each.
type ListenCallback func(addrs []peeraddr.Addr)

// NetServer is a protocol-agnostic acceptance engine: it binds zero or
// more listeners, optionally gates admission through a rate limiter,
// and dispatches every accepted connection to a service.ConnectionService
// until told to shut down.
type NetServer struct {
	builder *listeners.Builder
	binds   []func() (listen.Listen, error)

	listenCallback   ListenCallback
	shutdownCallback func()
	rateLimiter      *ratelimit.Limiter
	coordinator      *shutdown.Coordinator
	logger           *log.Logger
	recorder         *telemetry.Recorder

	graceWait time.Duration
}

// New returns an empty NetServer ready for its builder chain.
func New() *NetServer {
	return &NetServer{
		builder: listeners.NewBuilder(),
		logger:  log.Default,
	}
}

// Bind registers a plain TCP listener to be bound at finalization time.
func (n *NetServer) Bind(addr string) *NetServer {
	n.binds = append(n.binds, func() (listen.Listen, error) {
		return tcplisten.New(addr)
	})
	return n
}

// Listen registers an already-constructed Listen capability directly,
// bypassing the deferred binds that Bind, BindUnix, BindTLS, BindHybrid
// and BindWS register.
func (n *NetServer) Listen(l listen.Listen) *NetServer {
	n.builder.Add(l)
	return n
}

// ListenFunc defers construction of a Listen capability to finalization
// time, the way Bind defers binding the TCP socket. Use this for
// listeners (Unix sockets, TLS, hybrid, WebSocket) whose constructors
// can fail, so the failure surfaces from Run/Serve like any other bind
// error instead of needing to be checked inline at call sites.
func (n *NetServer) ListenFunc(f func() (listen.Listen, error)) *NetServer {
	n.binds = append(n.binds, f)
	return n
}

// OnListen registers a callback run once every configured listener has
// bound, before the first Accept.
func (n *NetServer) OnListen(cb ListenCallback) *NetServer {
	n.listenCallback = cb
	return n
}

// WithRateLimiter gates admission with a token bucket of the given
// burst capacity, refilling one token every refillEvery, waiting up to
// maxWait for a token before dropping a connection.
func (n *NetServer) WithRateLimiter(capacity int, refillEvery, maxWait time.Duration) *NetServer {
	n.rateLimiter = ratelimit.New(capacity, refillEvery, maxWait)
	return n
}

// WithShutdown configures how long in-flight connections get to finish
// on their own once shutdown begins before they are cancelled outright.
func (n *NetServer) WithShutdown(graceWait time.Duration) *NetServer {
	n.graceWait = graceWait
	return n
}

// SetShutdownCallback registers a callback run exactly once, the moment
// shutdown begins (before the grace period, not after it).
func (n *NetServer) SetShutdownCallback(cb func()) *NetServer {
	n.shutdownCallback = cb
	return n
}

// WithLogger swaps the logger used for accept/backoff/shutdown
// messages. Defaults to log.Default.
func (n *NetServer) WithLogger(l *log.Logger) *NetServer {
	n.logger = l
	return n
}

// WithTelemetry binds counters and spans to the given providers. Either
// may be nil to fall back to the globally registered (default no-op)
// otel providers.
func (n *NetServer) WithTelemetry(mp metric.MeterProvider, tp trace.TracerProvider) *NetServer {
	r, err := telemetry.New(mp, tp)
	if err != nil {
		// Only fails if an instrument name collides, which cannot
		// happen with the fixed set this package registers.
		panic(err)
	}
	n.recorder = r
	return n
}

// Coordinator exposes the shutdown coordinator so callers can trigger
// shutdown themselves (besides the installed SIGINT/SIGTERM handler).
// Only valid after Run/Serve has started.
func (n *NetServer) Coordinator() *shutdown.Coordinator {
	return n.coordinator
}

// Run finalizes the server and blocks until shutdown completes.
func (n *NetServer) Run(handler service.ConnectionService) error {
	return n.Serve(context.Background(), handler)
}

// Serve finalizes the server and blocks until ctx is cancelled, a
// SIGINT/SIGTERM is received, or Coordinator().Trigger() is called —
// whichever comes first — then drains in-flight connections per
// WithShutdown before returning.
func (n *NetServer) Serve(ctx context.Context, handler service.ConnectionService) error {
	if n.recorder == nil {
		n.recorder = telemetry.NoOp()
	}
	n.coordinator = shutdown.New(n.graceWait)
	n.coordinator.OnTrigger(func() {
		n.recorder.ShutdownGraceful(ctx)
		if n.shutdownCallback != nil {
			n.shutdownCallback()
		}
	})
	go func() {
		<-n.coordinator.ForceCanceled().Done()
		n.recorder.ShutdownForced(ctx)
	}()
	n.coordinator.InstallSignalHandler()

	if len(n.binds) == 0 && !n.builder.HasAny() {
		n.binds = append(n.binds, func() (listen.Listen, error) {
			return tcplisten.New(defaultBind)
		})
	}
	for _, bind := range n.binds {
		l, err := bind()
		if err != nil {
			return err
		}
		n.builder.Add(l)
	}

	agg, err := n.builder.Finalize(n.logger)
	if err != nil {
		return err
	}
	defer agg.Close()

	addrs := agg.LocalAddrs()
	if n.listenCallback != nil {
		n.listenCallback(addrs)
	}
	for _, a := range addrs {
		n.logger.InfoMsg("listening on %s", nil, a)
	}

	go func() {
		select {
		case <-ctx.Done():
			n.coordinator.Trigger()
		case <-n.coordinator.Closed():
		}
		// Unblocks acceptLoop's pending agg.Accept() immediately: once
		// shutdown has begun, no further connection needs admitting, and
		// Accept() otherwise only returns when a real connection or
		// listener error arrives.
		agg.Close()
	}()

	loopCtx, span := n.recorder.StartAcceptLoopSpan(ctx)
	n.acceptLoop(loopCtx, agg, handler)
	span.End()

	n.coordinator.Wait()
	return nil
}

func (n *NetServer) acceptLoop(ctx context.Context, agg *listeners.Listeners, handler service.ConnectionService) {
	for {
		select {
		case <-n.coordinator.Closed():
			return
		default:
		}

		result, err, ok := agg.Accept()
		if !ok {
			return
		}
		if err != nil {
			n.recorder.AcceptErr(ctx)
			n.logger.ErrorMsg("accept: %s", nil, err)
			continue
		}

		n.recorder.AcceptOK(ctx)
		n.dispatch(ctx, handler, result.Conn, result.Peer, result.Listener)
	}
}

func (n *NetServer) dispatch(ctx context.Context, handler service.ConnectionService, conn net.Conn, peer, listenerAddr peeraddr.Addr) {
	dispatchCtx, span := n.recorder.StartDispatchSpan(ctx, peer.String(), listenerAddr.String())
	defer span.End()

	if n.rateLimiter != nil {
		switch n.rateLimiter.Acquire(dispatchCtx, n.coordinator.Closed()) {
		case ratelimit.RejectedClosed:
			n.recorder.RatelimiterClosed(dispatchCtx)
			n.logger.WarnMsg("rate limiter closed, dropping connection from %s", nil, peer)
			conn.Close()
			return
		case ratelimit.RejectedTimeout:
			n.recorder.RatelimiterTimeout(dispatchCtx)
			n.logger.WarnMsg("rate limiter timeout, dropping connection from %s", nil, peer)
			conn.Close()
			return
		}
	}

	release := n.coordinator.TaskStarted()
	go n.runHandler(dispatchCtx, handler, conn, peer, listenerAddr, release)
}

func (n *NetServer) runHandler(ctx context.Context, handler service.ConnectionService, conn net.Conn, peer, listenerAddr peeraddr.Addr, release func()) {
	defer release()
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorMsg("handler panic for %s: %v", nil, peer, r)
		}
	}()

	handlerCtx, span := n.recorder.StartHandlerSpan(ctx, peer.String(), listenerAddr.String())
	defer span.End()

	start := time.Now()
	err := handler.Handle(n.coordinator.ForceCanceled(), conn, peer)
	n.recorder.HandlerDuration(handlerCtx, time.Since(start).Seconds())

	if err != nil {
		n.recorder.HandlerErr(handlerCtx)
		n.logger.ErrorMsg("handling connection from %s: %s", nil, peer, err)
		return
	}
	n.recorder.HandlerOK(handlerCtx)
}
