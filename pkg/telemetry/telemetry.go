// Package telemetry binds the NetServer core's named counters, its
// handler-duration histogram, and its accept_loop/dispatch/handler spans
// to caller-supplied OpenTelemetry providers. Binding to a concrete
// metrics or tracing backend is the caller's concern: a Recorder built
// with no providers reads the global otel providers the same way
// go.opentelemetry.io/otel.Tracer/otel.Meter do, which default to the
// library's no-op implementation until the caller calls
// otel.SetTracerProvider/otel.SetMeterProvider.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/silentframework/netserver"

	// CounterAcceptOK etc. are the fixed counter names this package
	// registers. They are package-level so test code and exporters can
	// refer to them without re-deriving strings.
	CounterAcceptOK           = "accept.ok"
	CounterAcceptErr          = "accept.err"
	CounterRatelimiterClosed  = "ratelimiter.closed"
	CounterRatelimiterTimeout = "ratelimiter.timeout"
	CounterHandlerOK          = "handler.ok"
	CounterHandlerErr         = "handler.err"
	CounterShutdownGraceful   = "shutdown.graceful"
	CounterShutdownForced     = "shutdown.forced"
	HistogramHandlerDuration  = "handler.duration"

	SpanAcceptLoop = "accept_loop"
	SpanDispatch   = "dispatch"
	SpanHandler    = "handler"
)

// Recorder owns the meter instruments and tracer used by one NetServer.
// It is safe for concurrent use; the underlying otel instruments are.
type Recorder struct {
	tracer trace.Tracer

	acceptOK           metric.Int64Counter
	acceptErr          metric.Int64Counter
	ratelimiterClosed  metric.Int64Counter
	ratelimiterTimeout metric.Int64Counter
	handlerOK          metric.Int64Counter
	handlerErr         metric.Int64Counter
	shutdownGraceful   metric.Int64Counter
	shutdownForced     metric.Int64Counter
	handlerDuration    metric.Float64Histogram
}

// New builds a Recorder from the given providers. Either may be nil, in
// which case the globally registered otel providers are used — the same
// ones otel.Tracer/otel.Meter read, which are the no-op implementation
// until a caller installs a real backend with otel.SetTracerProvider /
// otel.SetMeterProvider.
func New(mp metric.MeterProvider, tp trace.TracerProvider) (*Recorder, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	meter := mp.Meter(instrumentationName)
	tracer := tp.Tracer(instrumentationName)

	r := &Recorder{tracer: tracer}

	var err error
	if r.acceptOK, err = meter.Int64Counter(CounterAcceptOK); err != nil {
		return nil, err
	}
	if r.acceptErr, err = meter.Int64Counter(CounterAcceptErr); err != nil {
		return nil, err
	}
	if r.ratelimiterClosed, err = meter.Int64Counter(CounterRatelimiterClosed); err != nil {
		return nil, err
	}
	if r.ratelimiterTimeout, err = meter.Int64Counter(CounterRatelimiterTimeout); err != nil {
		return nil, err
	}
	if r.handlerOK, err = meter.Int64Counter(CounterHandlerOK); err != nil {
		return nil, err
	}
	if r.handlerErr, err = meter.Int64Counter(CounterHandlerErr); err != nil {
		return nil, err
	}
	if r.shutdownGraceful, err = meter.Int64Counter(CounterShutdownGraceful); err != nil {
		return nil, err
	}
	if r.shutdownForced, err = meter.Int64Counter(CounterShutdownForced); err != nil {
		return nil, err
	}
	if r.handlerDuration, err = meter.Float64Histogram(HistogramHandlerDuration,
		metric.WithUnit("s")); err != nil {
		return nil, err
	}

	return r, nil
}

// NoOp returns a Recorder bound to the globally registered (default
// no-op) otel providers; handy for tests and for NetServer's own
// zero-value default.
func NoOp() *Recorder {
	r, err := New(nil, nil)
	if err != nil {
		// The default meter never rejects an instrument registration.
		panic(err)
	}
	return r
}

func (r *Recorder) AcceptOK(ctx context.Context)          { r.acceptOK.Add(ctx, 1) }
func (r *Recorder) AcceptErr(ctx context.Context)         { r.acceptErr.Add(ctx, 1) }
func (r *Recorder) RatelimiterClosed(ctx context.Context) { r.ratelimiterClosed.Add(ctx, 1) }
func (r *Recorder) RatelimiterTimeout(ctx context.Context) {
	r.ratelimiterTimeout.Add(ctx, 1)
}
func (r *Recorder) HandlerOK(ctx context.Context)        { r.handlerOK.Add(ctx, 1) }
func (r *Recorder) HandlerErr(ctx context.Context)       { r.handlerErr.Add(ctx, 1) }
func (r *Recorder) ShutdownGraceful(ctx context.Context) { r.shutdownGraceful.Add(ctx, 1) }
func (r *Recorder) ShutdownForced(ctx context.Context)   { r.shutdownForced.Add(ctx, 1) }

// HandlerDuration records the seconds a handler ran for. No peer address
// or other high-cardinality value is ever attached as an attribute here;
// that identity lives only in span fields (see StartHandlerSpan).
func (r *Recorder) HandlerDuration(ctx context.Context, seconds float64) {
	r.handlerDuration.Record(ctx, seconds)
}

// StartAcceptLoopSpan opens the accept_loop span for one NetServer run.
func (r *Recorder) StartAcceptLoopSpan(ctx context.Context) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, SpanAcceptLoop)
}

// StartDispatchSpan opens the dispatch span covering admission control
// and task spawn for one accepted connection.
func (r *Recorder) StartDispatchSpan(ctx context.Context, peer, listenerAddr string) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, SpanDispatch)
	span.SetAttributes(peerAttribute(peer), listenerAttribute(listenerAddr))
	return ctx, span
}

// StartHandlerSpan opens the handler span covering one ConnectionService
// invocation.
func (r *Recorder) StartHandlerSpan(ctx context.Context, peer, listenerAddr string) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, SpanHandler)
	span.SetAttributes(peerAttribute(peer), listenerAttribute(listenerAddr))
	return ctx, span
}

func peerAttribute(peer string) attribute.KeyValue {
	return attribute.String("peer.address", peer)
}

func listenerAttribute(addr string) attribute.KeyValue {
	return attribute.String("listener.address", addr)
}
