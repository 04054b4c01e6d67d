// Package logging builds the slog handlers selectable from the command line.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Handler formats.
const (
	FormatText   = "text"
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// ParseLevel parses debug, info, warn or error.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// New returns a logger writing to w at level in the given format.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", FormatText:
		handler = slog.NewTextHandler(w, &opts)
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &opts)
	case FormatPretty:
		handler = NewPrettyHandler(w, PrettyHandlerOptions{SlogOpts: opts})
	default:
		return nil, fmt.Errorf("invalid log format %q (want %s, %s or %s)", format, FormatText, FormatJSON, FormatPretty)
	}
	return slog.New(handler), nil
}
