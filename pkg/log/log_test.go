package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoMsg_WritesFormattedMessage(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.InfoMsg("listening on %s", nil, "127.0.0.1:9000")

	assert.Contains(t, buf.String(), "listening on 127.0.0.1:9000")
}

func TestErrorMsg_AppendsFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.ErrorMsg("accept failed", []Field{F("listener", "tcp://:9000"), F("attempt", 3)})

	out := buf.String()
	assert.Contains(t, out, "listener=tcp://:9000")
	assert.Contains(t, out, "attempt=3")
}

func TestVerboseMsg_SuppressedWhenNotVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, false)

	l.VerboseMsg("debug detail", nil)

	assert.Empty(t, buf.String())
}

func TestVerboseMsg_EmittedWhenVerbose(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, true)

	l.VerboseMsg("debug detail", nil)

	assert.Contains(t, buf.String(), "debug detail")
}

func TestNew_NilWriterFallsBackToStderr(t *testing.T) {
	l := New(nil, false)
	assert.NotNil(t, l.out)
}
