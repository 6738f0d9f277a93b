// Package logging builds the zerolog loggers used by the keysig commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Options struct {
	// Level is either a single level ("info") or a list of module rules
	// such as "warn;keysig=trace;grpcnode=debug". "*" names the default.
	Level string

	// Format is "text" (console) or "json". Empty means text.
	Format string

	// Out defaults to os.Stderr.
	Out io.Writer
}

// New returns a logger configured by opts.
func New(opts Options) (zerolog.Logger, error) {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(opts.Format) {
	case "", FormatText, "plain":
		out = newConsoleWriter(out)
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q is not supported", opts.Format)
	}

	rules, err := parseLevelRules(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	if len(rules.modules) > 0 {
		out = moduleFilter{out: out, rules: rules}
	}

	return zerolog.New(out).Level(rules.floor()).With().Timestamp().Logger(), nil
}

func newConsoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		FormatLevel: func(i interface{}) string {
			if ll, ok := i.(string); ok {
				return strings.ToUpper(ll)
			}
			return "????"
		},
	}
}
