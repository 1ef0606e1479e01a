// Package logging builds the charmbracelet/log loggers used across pawnls
// and carries them through contexts.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

//nolint:gochecknoglobals // Process-wide fallback logger.
var fallback atomic.Pointer[log.Logger]

// New returns a logger on stderr at level. Off a terminal, as when an
// editor owns stderr, it writes timestamped logfmt.
func New(level string) *log.Logger {
	return NewWriter(os.Stderr, level, !isTerminal(os.Stderr))
}

// NewWriter returns a logger on w at level.
func NewWriter(w io.Writer, level string, logfmt bool) *log.Logger {
	opts := log.Options{
		Prefix:          "pawnls",
		ReportTimestamp: logfmt,
		Level:           ParseLevel(level),
	}
	if logfmt {
		opts.Formatter = log.LogfmtFormatter
	}
	return log.NewWithOptions(w, opts)
}

// NewInteractive returns an unprefixed info logger for messages meant for
// a person at a terminal.
func NewInteractive() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.InfoLevel})
}

// ParseLevel maps debug, info, warn(ing) and error to a level. Anything
// else is info.
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Default returns the process-wide logger, creating an info logger on
// first use.
func Default() *log.Logger {
	if l := fallback.Load(); l != nil {
		return l
	}
	fallback.CompareAndSwap(nil, New("info"))
	return fallback.Load()
}

// SetDefault replaces the process-wide logger.
func SetDefault(logger *log.Logger) {
	fallback.Store(logger)
}

// SetLevel changes the level of the process-wide logger.
func SetLevel(level string) {
	Default().SetLevel(ParseLevel(level))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
