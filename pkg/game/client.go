// Package game is the typed facade over the console link. Every operation
// builds one script expression, executes it in a single round trip, and
// projects the decoded reply into a domain record with explicit defaults.
package game

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
	"github.com/nerdpudding/factorio-llm/pkg/lua"
	"github.com/nerdpudding/factorio-llm/pkg/ports"
	"github.com/nerdpudding/factorio-llm/pkg/serpent"
)

// Client exposes the game operations the dispatcher and the status surfaces
// call. It owns no connection state of its own; that lives in the console.
type Client struct {
	console ports.Console
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a facade over the given console.
func New(console ports.Console, opts ...Option) *Client {
	c := &Client{console: console}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Connect establishes the console link.
func (c *Client) Connect(ctx context.Context) error {
	return c.console.Connect(ctx)
}

// Close tears the console link down.
func (c *Client) Close() error {
	return c.console.Close()
}

// Connected reports whether the console link is live.
func (c *Client) Connected() bool {
	return c.console.Connected()
}

// Reconnect drops the link and retries Connect up to attempts times with a
// constant delay before each try.
func (c *Client) Reconnect(ctx context.Context, attempts int, delay time.Duration) error {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		_ = c.console.Close()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := c.console.Connect(ctx); err != nil {
			lastErr = err
			c.logger.Warn("reconnect attempt failed", "attempt", i, "of", attempts, "err", err)
			continue
		}
		return nil
	}
	if lastErr == nil {
		lastErr = domain.ErrUnreachable
	}
	return fmt.Errorf("reconnect gave up after %d attempts: %w", attempts, lastErr)
}

// StateLine is the cheap status snapshot injected ahead of each user
// message. Any failure degrades to the unavailable form rather than
// blocking the exchange.
func (c *Client) StateLine(ctx context.Context) string {
	pos, err := c.PlayerPosition(ctx)
	if err == nil {
		tick, terr := c.Tick(ctx)
		if terr == nil {
			return fmt.Sprintf("[GAME STATE: x=%.1f y=%.1f tick=%d]", pos.X, pos.Y, tick)
		}
		err = terr
	}
	c.logger.Warn("game state snapshot unavailable", "err", err)
	return "[GAME STATE: unavailable]"
}

// queryScalar evaluates expr and returns its printed value, trimmed.
func (c *Client) queryScalar(ctx context.Context, expr string) (string, error) {
	reply, err := c.console.Execute(ctx, lua.ScalarQuery(expr))
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if lua.IsScriptError(reply) {
		return "", &domain.RemoteScriptError{Output: reply}
	}
	return reply, nil
}

// queryInt evaluates expr as a scalar integer. An empty reply counts as 0.
func (c *Client) queryInt(ctx context.Context, expr string) (int, error) {
	reply, err := c.queryScalar(ctx, expr)
	if err != nil {
		return 0, err
	}
	if reply == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(reply)
	if err != nil {
		return 0, &domain.DecodeError{Raw: reply, Reason: "not an integer"}
	}
	return n, nil
}

// queryTable evaluates expr through the table serializer and decodes the
// reply.
func (c *Client) queryTable(ctx context.Context, expr string) (serpent.Value, error) {
	reply, err := c.console.Execute(ctx, lua.TableQuery(expr))
	if err != nil {
		return serpent.Value{}, err
	}
	if lua.IsScriptError(reply) {
		return serpent.Value{}, &domain.RemoteScriptError{Output: strings.TrimSpace(reply)}
	}
	return serpent.Decode(reply)
}

// oneline collapses a multiline script chunk into the single-line form the
// console expects. Applied to templates before parameters are interpolated,
// so parameter values are never rewritten.
func oneline(chunk string) string {
	return strings.Join(strings.Fields(chunk), " ")
}

// roundTenth rounds a coordinate to a tenth of a tile for display.
func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}
