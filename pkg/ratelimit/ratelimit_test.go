package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_Admitted(t *testing.T) {
	l := New(2, time.Millisecond, time.Second)
	never := make(chan struct{})

	require.Equal(t, Admitted, l.Acquire(context.Background(), never))
	require.Equal(t, Admitted, l.Acquire(context.Background(), never))
}

func TestAcquire_RejectedTimeout(t *testing.T) {
	l := New(1, time.Hour, 10*time.Millisecond)
	never := make(chan struct{})

	assert.Equal(t, Admitted, l.Acquire(context.Background(), never))
	assert.Equal(t, RejectedTimeout, l.Acquire(context.Background(), never))
}

func TestAcquire_RejectedClosed(t *testing.T) {
	l := New(5, time.Millisecond, time.Second)
	closed := make(chan struct{})
	close(closed)

	assert.Equal(t, RejectedClosed, l.Acquire(context.Background(), closed))
}

func TestAcquire_ClosedWhileWaiting(t *testing.T) {
	l := New(1, time.Hour, time.Hour)
	closed := make(chan struct{})

	assert.Equal(t, Admitted, l.Acquire(context.Background(), closed))

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(closed)
	}()

	start := time.Now()
	result := l.Acquire(context.Background(), closed)
	assert.Equal(t, RejectedClosed, result)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestResult_String(t *testing.T) {
	assert.Equal(t, "admitted", Admitted.String())
	assert.Equal(t, "rejected_closed", RejectedClosed.String())
	assert.Equal(t, "rejected_timeout", RejectedTimeout.String())
}
