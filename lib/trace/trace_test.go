package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStdLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger(&buf, LevelWarn)

	logger.Log(LevelInfo, "Root", "should be suppressed")
	require.Empty(t, buf.String())

	logger.Log(LevelWarn, "Root.Field", "value %d out of range", 9)
	require.Equal(t, "WARN Root.Field: value 9 out of range\n", buf.String())
}

func TestStdLoggerOffEmitsNothing(t *testing.T) {
	var buf bytes.Buffer
	logger := NewStdLogger(&buf, LevelTrace)

	logger.Log(LevelOff, "Root", "never shown")
	require.Empty(t, buf.String())
}

func TestNoopLoggerDiscardsEverything(t *testing.T) {
	require.NotPanics(t, func() {
		Noop.Log(LevelError, "Root", "whatever %s", "arg")
	})
}
