package logging

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

type testWriter struct{ tb testing.TB }

func (w testWriter) Write(p []byte) (int, error) {
	w.tb.Helper()
	w.tb.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewTestLogger returns a debug-level console logger that writes through
// t.Log, so output shows up only for failing or verbose tests.
func NewTestLogger(t testing.TB) zerolog.Logger {
	return zerolog.New(newConsoleWriter(testWriter{tb: t})).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
