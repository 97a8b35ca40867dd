package listen

import (
	"errors"
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsFatal_Nil(t *testing.T) {
	assert.False(t, IsFatal(nil))
}

func TestIsFatal_ClosedListener(t *testing.T) {
	assert.True(t, IsFatal(net.ErrClosed))
}

func TestIsFatal_TimeoutIsTransient(t *testing.T) {
	assert.False(t, IsFatal(timeoutErr{}))
}

func TestIsFatal_ArbitraryErrorIsFatal(t *testing.T) {
	assert.True(t, IsFatal(errors.New("something else")))
}

func TestIsFatal_NetOpErrorTimeout(t *testing.T) {
	err := &net.OpError{Op: "accept", Err: timeoutErr{}}
	assert.False(t, IsFatal(err))
}

func TestIsFatal_PathError(t *testing.T) {
	_, err := os.Open("/definitely/does/not/exist")
	assert.True(t, IsFatal(err))
}
