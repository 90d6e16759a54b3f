/* carplaydongled - host-side protocol engine for CarPlay/Android Auto USB dongles
 *
 * Leveled, multi-destination logger. A trimmed adaptation of the IPP-over-
 * USB proxy's own Logger: each message is written directly to its
 * destinations (no buffered LogMessage/commit step), with no HTTP/IPP dump
 * helpers and no log rotation (this engine keeps no persistent per-device
 * logs), and with console coloring delegated to
 * github.com/fatih/color instead of hand-written ANSI escapes.
 */

package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Level is a bitmask selecting which severities a Logger emits.
type Level int

const (
	LevelError Level = 1 << iota
	LevelInfo
	LevelDebug
	LevelTrace
)

// LevelAll enables every severity.
const LevelAll = LevelError | LevelInfo | LevelDebug | LevelTrace

var levelNames = map[Level]string{
	LevelError: "ERROR",
	LevelInfo:  "INFO",
	LevelDebug: "DEBUG",
	LevelTrace: "TRACE",
}

var levelColors = map[Level]*color.Color{
	LevelError: color.New(color.FgRed, color.Bold),
	LevelInfo:  color.New(color.FgGreen),
	LevelDebug: color.New(color.FgYellow),
	LevelTrace: color.New(color.FgCyan),
}

// Logger writes leveled messages to a destination writer, optionally with
// ANSI coloring, and optionally mirrors everything to a second "carbon
// copy" writer (e.g. a file, independent of the primary console).
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	cc     io.Writer
	level  Level
	colors bool
}

// NewLogger creates a Logger writing to out at the given level, with no
// coloring and no carbon-copy destination.
func NewLogger(out io.Writer, level Level) *Logger {
	return &Logger{out: out, level: level}
}

// ToConsole is a convenience constructor for a plain (uncolored) stderr
// logger.
func ToConsole(level Level) *Logger {
	return NewLogger(os.Stderr, level)
}

// ToColorConsole is a convenience constructor for an ANSI-colored stderr
// logger.
func ToColorConsole(level Level) *Logger {
	l := NewLogger(os.Stderr, level)
	l.colors = true
	return l
}

// Cc sets (or clears, with nil) a carbon-copy destination that receives
// every message this Logger emits, uncolored.
func (l *Logger) Cc(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cc = w
}

// enabled reports whether lvl is among the levels this Logger emits.
func (l *Logger) enabled(lvl Level) bool {
	return l.level&lvl != 0
}

func (l *Logger) write(lvl Level, format string, args ...interface{}) {
	if !l.enabled(lvl) {
		return
	}
	msg := fmt.Sprintf(format, args...)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.colors {
		if c, ok := levelColors[lvl]; ok {
			c.Fprintf(l.out, "[%s] %s\n", levelNames[lvl], msg)
		} else {
			fmt.Fprintf(l.out, "[%s] %s\n", levelNames[lvl], msg)
		}
	} else {
		fmt.Fprintf(l.out, "[%s] %s\n", levelNames[lvl], msg)
	}

	if l.cc != nil {
		fmt.Fprintf(l.cc, "[%s] %s\n", levelNames[lvl], msg)
	}
}

// Error logs a message at LevelError.
func (l *Logger) Error(format string, args ...interface{}) { l.write(LevelError, format, args...) }

// Info logs a message at LevelInfo.
func (l *Logger) Info(format string, args ...interface{}) { l.write(LevelInfo, format, args...) }

// Debug logs a message at LevelDebug.
func (l *Logger) Debug(format string, args ...interface{}) { l.write(LevelDebug, format, args...) }

// Trace logs a message at LevelTrace.
func (l *Logger) Trace(format string, args ...interface{}) { l.write(LevelTrace, format, args...) }

// HexDump renders data as a conventional 16-bytes-per-line hex/ASCII dump,
// for tracing raw frame payloads. Nothing else in this module calls it.
func HexDump(data []byte) string {
	const width = 16
	var buf []byte
	for off := 0; off < len(data); off += width {
		end := off + width
		if end > len(data) {
			end = len(data)
		}
		line := data[off:end]

		buf = append(buf, fmt.Sprintf("%04x  ", off)...)
		for i := 0; i < width; i++ {
			if i < len(line) {
				buf = append(buf, fmt.Sprintf("%02x ", line[i])...)
			} else {
				buf = append(buf, "   "...)
			}
		}
		buf = append(buf, " "...)
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				buf = append(buf, b)
			} else {
				buf = append(buf, '.')
			}
		}
		buf = append(buf, '\n')
	}
	return string(buf)
}
