// Package logx centralizes structured logging on top of rs/zerolog.
// Component loggers are sub-loggers carrying a "component" field, console-
// pretty in a TTY and JSON otherwise.
package logx

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	once sync.Once
	base zerolog.Logger
)

// resolvePretty decides console-vs-JSON output for a given format setting.
// "console" always pretty-prints, "json" always emits raw JSON, and
// anything else (including "auto") defers to isTerminal.
func resolvePretty(format string, isTerminal bool) bool {
	switch strings.ToLower(format) {
	case "console":
		return true
	case "json":
		return false
	default:
		return isTerminal
	}
}

// Init configures the base logger. level is one of zerolog's textual levels
// ("debug", "info", "warn", "error"). format is "console" for pretty
// console-writer output, "json" for raw JSON lines, or anything else
// (including "auto") to fall back to isTerminal.
func Init(level, format string, isTerminal bool) {
	once.Do(func() {
		pretty := resolvePretty(format, isTerminal)

		var w io.Writer = os.Stderr
		if pretty {
			w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		}
		lvl, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			lvl = zerolog.InfoLevel
		}
		base = zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	})
}

// For returns a sub-logger tagged with the given component name. Safe to
// call before Init: it falls back to a sane default (info level, pretty).
func For(component string) zerolog.Logger {
	once.Do(func() {
		base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
			Level(zerolog.InfoLevel).With().Timestamp().Logger()
	})
	return base.With().Str("component", component).Logger()
}
