// Package trace defines a minimal leveled logging interface used by the
// constructed-type driver (lib/per/aper) to report its progress through a
// SEQUENCE/CHOICE/SEQUENCE-OF tree during encode and decode.
//
// It generalizes the teacher's compile-time ENABLE_TRACE constant into a
// runtime-switchable level, since the driver has many more call sites than
// a single bit-buffer codec and a caller will usually want only one or two
// levels active at a time.
package trace

import (
	"fmt"
	"io"
)

// Level selects which Logger calls are emitted. Higher levels are more
// verbose; a Logger configured at level L emits calls at L and below.
type Level int

const (
	// LevelOff emits nothing.
	LevelOff Level = iota
	// LevelError reports failures the caller could not recover from.
	LevelError
	// LevelWarn reports recoverable anomalies.
	LevelWarn
	// LevelInfo reports top-level operations.
	LevelInfo
	// LevelDebug reports per-call and per-field events within a
	// constructed type. The lib/per/aper driver logs at this level only:
	// the start of each Encode/Decode call, each field or alternative,
	// and each unknown extension addition it skips.
	LevelDebug
	// LevelTrace reports bit-level detail (offsets, raw lengths).
	LevelTrace
)

// Logger receives leveled trace messages from the constructed-type driver.
// Implementations must be safe for concurrent use if the same Logger is
// shared across goroutines decoding different messages.
type Logger interface {
	Log(level Level, path string, format string, args ...any)
}

// noop discards everything. It is the default used when no Logger is
// configured, so the hot path never pays for formatting.
type noop struct{}

func (noop) Log(Level, string, string, ...any) {}

// Noop is the default no-op Logger.
var Noop Logger = noop{}

// StdLogger writes leveled messages to an io.Writer in a plain
// "level path: message" line format, filtering out anything above its
// configured Level.
type StdLogger struct {
	Out   io.Writer
	Level Level
}

// NewStdLogger returns a StdLogger writing to w at the given level.
func NewStdLogger(w io.Writer, level Level) *StdLogger {
	return &StdLogger{Out: w, Level: level}
}

func (l *StdLogger) Log(level Level, path string, format string, args ...any) {
	if l == nil || l.Out == nil || level > l.Level || level == LevelOff {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if path == "" {
		fmt.Fprintf(l.Out, "%s %s\n", levelName(level), msg)
		return
	}
	fmt.Fprintf(l.Out, "%s %s: %s\n", levelName(level), path, msg)
}

func levelName(level Level) string {
	switch level {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	case LevelTrace:
		return "TRACE"
	default:
		return "OFF"
	}
}
