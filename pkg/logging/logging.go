// Package logging configures log/slog for kodman.
//
// The CLI builds one *slog.Logger at startup with NewLogger and passes it to the
// run engine explicitly. Three renderings are supported:
//
//   - text: "LEVEL:\tmessage key=value" lines, used with --debug
//   - json: slog JSON lines, used with --log-json
//   - status: a single self-overwriting status line on terminals, used otherwise
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format selects how log records are rendered.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatStatus Format = "status"
)

// Options configures NewLogger.
type Options struct {
	Level  slog.Level
	Format Format
}

// NewLogger returns a logger writing to w.
func NewLogger(w io.Writer, opts Options) *slog.Logger {
	switch opts.Format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level}))
	case FormatStatus:
		return slog.New(NewStatusHandler(w, opts.Level))
	default:
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:       opts.Level,
			ReplaceAttr: levelPrefix,
		}))
	}
}

// ParseLogLevel maps debug, info, warn and error (case-insensitive) to a
// slog.Level. Anything else is info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// levelPrefix drops the timestamp so debug output reads like "DEBUG:\tmessage".
func levelPrefix(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		return slog.Attr{}
	case slog.LevelKey:
		return slog.String(slog.LevelKey, a.Value.String()+":")
	}
	return a
}
