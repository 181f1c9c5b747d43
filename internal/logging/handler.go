// Package logging builds the process slog.Logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Format names accepted by New.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
	FormatAuto   = "auto"
)

// Options configures New.
type Options struct {
	Level  string
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// New returns a logger writing JSON lines, or colorized tint output when the format is
// "pretty", or "auto" on a terminal.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level := ParseLevel(opts.Level)

	if usePretty(opts.Format, out) {
		return slog.New(tint.NewHandler(out, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		}))
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func usePretty(format string, out io.Writer) bool {
	switch strings.ToLower(format) {
	case FormatPretty:
		return true
	case FormatJSON:
		return false
	}
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
