package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithOutput(LevelWarn, &buf)

	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")

	out := buf.String()
	require.NotContains(t, out, "debug line")
	require.NotContains(t, out, "info line")
	require.Contains(t, out, "warn line")
	require.Contains(t, out, "error line")
}

func TestLogger_SetLevelTakesEffect(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerWithOutput(LevelError, &buf)

	l.Info("hidden")
	l.SetLevel(LevelDebug)
	l.Debug("visible")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "visible")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"fatal":   LevelFatal,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}
