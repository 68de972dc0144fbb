// Package logging builds the application loggers. Output goes to stderr so
// stdout stays free for the chat UI and piped command output.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates a configured application logger. Level may be a fixed
// slog.Level or a *slog.LevelVar when the caller wants to flip verbosity at
// runtime, like the REPL debug toggle does. Common keys are standardized
// ("error" -> "err").
func New(level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
