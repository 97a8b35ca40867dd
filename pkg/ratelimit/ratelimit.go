// Package ratelimit provides token-bucket admission control for
// accepted connections, wrapping golang.org/x/time/rate the way
// internal/ratelimiter does it, extended with the three-way
// Admitted/RejectedClosed/RejectedTimeout outcome a connection-accepting
// server needs instead of ratelimiter's plain bool/error result.
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Result is the outcome of an admission attempt.
type Result int

const (
	// Admitted means a token was acquired; the connection may proceed.
	Admitted Result = iota
	// RejectedClosed means shutdown began before Acquire was called or
	// while it was waiting for a token; the connection is dropped.
	RejectedClosed
	// RejectedTimeout means no token became available within maxWait.
	RejectedTimeout
)

// String renders a Result for logging and span attributes.
func (r Result) String() string {
	switch r {
	case Admitted:
		return "admitted"
	case RejectedClosed:
		return "rejected_closed"
	case RejectedTimeout:
		return "rejected_timeout"
	default:
		return "unknown"
	}
}

// Limiter gates connection admission with a token bucket: capacity
// tokens refill continuously at one per refillEvery, and Acquire waits
// up to maxWait for a token before giving up.
type Limiter struct {
	limiter *rate.Limiter
	maxWait time.Duration
}

// New builds a Limiter with the given burst capacity, refill interval,
// and maximum wait. capacity is both the bucket size and the burst
// allowance; the sustained rate is one token per refillEvery.
func New(capacity int, refillEvery, maxWait time.Duration) *Limiter {
	var limit rate.Limit
	if refillEvery <= 0 {
		limit = rate.Inf
	} else {
		limit = rate.Every(refillEvery)
	}
	return &Limiter{
		limiter: rate.NewLimiter(limit, capacity),
		maxWait: maxWait,
	}
}

// Acquire waits for one token, respecting both the configured maxWait
// and ctx's deadline/cancellation — whichever fires first. If closed is
// already closed when Acquire is called, it returns RejectedClosed
// without consuming a token or waiting, the conservative choice over
// admitting a connection that a shutdown in progress would immediately
// have to drop anyway.
func (l *Limiter) Acquire(ctx context.Context, closed <-chan struct{}) Result {
	select {
	case <-closed:
		return RejectedClosed
	default:
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.limiter.Wait(waitCtx) }()

	select {
	case <-closed:
		return RejectedClosed
	case err := <-done:
		if err != nil {
			return RejectedTimeout
		}
		return Admitted
	}
}

// Tokens reports the current number of available tokens, for metrics
// and tests; the value may be stale immediately after it is read.
func (l *Limiter) Tokens() float64 {
	return l.limiter.Tokens()
}
