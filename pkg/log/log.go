// Package log provides colored console logging with structured fields
// so the core can attach peer identity and listener address to every
// line it emits.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
)

var (
	red    = color.New(color.FgRed).FprintfFunc()
	yellow = color.New(color.FgYellow).FprintfFunc()
	blue   = color.New(color.FgBlue).FprintfFunc()
	gray   = color.New(color.FgWhite).FprintfFunc()
)

// Field is a single structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value interface{}
}

// F builds a Field; short name because call sites pass several of these.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Logger writes leveled, colorized, structured lines to an output stream.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	verbose bool
}

// New creates a Logger writing to out. If out is nil, os.Stderr is used.
func New(out io.Writer, verbose bool) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, verbose: verbose}
}

// Default is the package-level logger used by the free functions below.
var Default = New(os.Stderr, false)

func (l *Logger) line(colorFn func(io.Writer, string, ...interface{}), prefix, format string, fields []Field, a ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := fmt.Sprintf(format, a...)
	if len(fields) > 0 {
		parts := make([]string, len(fields))
		for i, f := range fields {
			parts[i] = fmt.Sprintf("%s=%v", f.Key, f.Value)
		}
		msg = msg + " " + strings.Join(parts, " ")
	}
	colorFn(l.out, prefix+msg+"\n")
}

// InfoMsg logs an informational message with optional structured fields.
func (l *Logger) InfoMsg(format string, fields []Field, a ...interface{}) {
	l.line(blue, "[+] ", format, fields, a...)
}

// WarnMsg logs a warning, used for transient or rate-limited conditions
// that do not bring the server down.
func (l *Logger) WarnMsg(format string, fields []Field, a ...interface{}) {
	l.line(yellow, "[*] ", format, fields, a...)
}

// ErrorMsg logs an error, used for fatal listener errors and handler
// failures that are local to one connection.
func (l *Logger) ErrorMsg(format string, fields []Field, a ...interface{}) {
	l.line(red, "[!] Error: ", format, fields, a...)
}

// VerboseMsg logs only when the logger was constructed with verbose=true.
func (l *Logger) VerboseMsg(format string, fields []Field, a ...interface{}) {
	if !l.verbose {
		return
	}
	l.line(gray, "[ ] ", format, fields, a...)
}

// ErrorMsg is the package-level form for call sites that do not carry
// their own *Logger.
func ErrorMsg(format string, a ...interface{}) {
	red(os.Stderr, "[!] Error: "+format, a...)
}

// InfoMsg is the package-level form for call sites that do not carry
// their own *Logger.
func InfoMsg(format string, a ...interface{}) {
	blue(os.Stderr, "[+] "+format, a...)
}

// WarnMsg is the package-level form for rate-limited/backoff notices.
func WarnMsg(format string, a ...interface{}) {
	yellow(os.Stderr, "[*] "+format, a...)
}
