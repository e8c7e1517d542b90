// Package logging builds the zerolog loggers used by the client and the
// command line front-end.
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
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New returns a logger writing to w at the given level. An empty level
// means info, a nil w means stderr.
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
	}

	var output io.Writer
	switch strings.ToLower(format) {
	case "", FormatConsole:
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	case FormatJSON:
		output = w
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}
	return zerolog.New(output).Level(lvl).With().Timestamp().Logger(), nil
}

// Must is like New but falls back to a console logger at info level.
func Must(level, format string, w io.Writer) zerolog.Logger {
	l, err := New(level, format, w)
	if err != nil {
		l, _ = New("", FormatConsole, w)
		l.Warn().Err(err).Msg("invalid logging settings, using defaults")
	}
	return l
}
