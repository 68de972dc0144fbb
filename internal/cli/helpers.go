// Package cli implements the interactive surfaces of the bridge: the chat
// REPL and the server log watcher.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/muesli/termenv"

	"github.com/nerdpudding/factorio-llm/internal/logging"
	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

// quietLevel sits above Error so a non-debug session logs nothing; the REPL
// owns all user-facing output.
const quietLevel = slog.LevelError + 4

// newLevelVar returns the runtime-adjustable log level backing the /debug
// toggle.
func newLevelVar(debug bool) *slog.LevelVar {
	level := new(slog.LevelVar)
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(quietLevel)
	}
	return level
}

var colors = termenv.ColorProfile()

func cyan(s string) string   { return termenv.String(s).Foreground(colors.Color("6")).String() }
func green(s string) string  { return termenv.String(s).Foreground(colors.Color("2")).String() }
func red(s string) string    { return termenv.String(s).Foreground(colors.Color("1")).String() }
func yellow(s string) string { return termenv.String(s).Foreground(colors.Color("3")).String() }
func dim(s string) string    { return termenv.String(s).Faint().String() }

// debugHooks logs the conversation lifecycle. Visible only while the level
// var sits at Debug.
func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnModelTurn: func(ctx context.Context, e *domain.ModelEvent) {
			logger.Debug("Model Turn", "iteration", e.Iteration, "tool_calls", e.ToolCalls,
				"prompt_tokens", e.PromptTokens, "output_tokens", e.OutputTokens, "elapsed_ms", e.ElapsedMS)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Debug("Tool Call", "tool", e.Tool, "args", fmt.Sprintf("%v", e.Args))
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			if e.IsError {
				logger.Debug("Tool Return (Error)", "tool", e.Tool, "err", e.Result)
			} else {
				logger.Debug("Tool Return (Success)", "tool", e.Tool)
			}
		},
	}
}

// isInterrupted reports whether err means the user ended the session rather
// than something breaking.
func isInterrupted(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, errInterrupted)
}

var errInterrupted = errors.New("interrupted")

// newLogger builds the session logger at the given adjustable level.
func newLogger(level *slog.LevelVar) *slog.Logger {
	return logging.New(level)
}
