// Package rcon implements the authenticated request/response console
// protocol the game server speaks. One client holds at most one TCP
// connection and serializes commands over it; any transport failure drops
// the connection, and the caller decides when to reconnect.
package rcon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/nerdpudding/factorio-llm/pkg/domain"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultIOTimeout   = 10 * time.Second
)

// Client is a console link to one game server. The zero value is not
// usable; construct with New. Safe for concurrent use, though calls are
// serialized: the protocol allows one outstanding command per connection.
type Client struct {
	addr        string
	password    string
	dialTimeout time.Duration
	ioTimeout   time.Duration
	logger      *slog.Logger
	observer    Observer

	mu    sync.Mutex
	conn  net.Conn
	reqID int32
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithDialTimeout bounds the TCP connect.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) { c.dialTimeout = d }
}

// WithIOTimeout bounds each command round trip.
func WithIOTimeout(d time.Duration) Option {
	return func(c *Client) { c.ioTimeout = d }
}

// Observer is notified after each executed command with its round-trip
// duration and outcome. Must not block.
type Observer func(command string, elapsed time.Duration, err error)

// WithObserver registers a hook called after every Execute.
func WithObserver(obs Observer) Option {
	return func(c *Client) { c.observer = obs }
}

// New returns a disconnected client for the given endpoint.
func New(host string, port int, password string, opts ...Option) *Client {
	c := &Client{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		password: password,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if c.dialTimeout <= 0 {
		c.dialTimeout = defaultDialTimeout
	}
	if c.ioTimeout <= 0 {
		c.ioTimeout = defaultIOTimeout
	}
	return c
}

// Connect dials and authenticates. Calling it while connected is a no-op.
// Failures, including a rejected password, map to domain.ErrUnreachable.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	dialer := net.Dialer{Timeout: c.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %v: %w", c.addr, err, domain.ErrUnreachable)
	}

	if err := c.authenticate(conn); err != nil {
		_ = conn.Close()
		return err
	}

	c.conn = conn
	c.logger.Debug("console connected", "addr", c.addr)
	return nil
}

func (c *Client) authenticate(conn net.Conn) error {
	deadline := time.Now().Add(c.ioTimeout)
	_ = conn.SetDeadline(deadline)
	defer func() { _ = conn.SetDeadline(time.Time{}) }()

	id := c.nextID()
	if err := writePacket(conn, packet{id: id, typ: typeAuth, body: c.password}); err != nil {
		return fmt.Errorf("auth write: %v: %w", err, domain.ErrUnreachable)
	}

	// Some servers echo an empty response packet before the auth reply;
	// skip anything that is not the auth response.
	for {
		p, err := readPacket(conn)
		if err != nil {
			return fmt.Errorf("auth read: %v: %w", err, domain.ErrUnreachable)
		}
		if p.typ != typeAuthResponse {
			continue
		}
		if p.id == authRejectedID {
			return fmt.Errorf("authentication rejected by %s: %w", c.addr, domain.ErrUnreachable)
		}
		if p.id != id {
			return fmt.Errorf("auth response for request %d, sent %d: %w", p.id, id, domain.ErrUnreachable)
		}
		return nil
	}
}

// Execute sends one console command and returns the raw reply body. On any
// transport failure the connection is dropped and the error maps to
// domain.ErrLinkLost; the caller must Connect again before retrying.
func (c *Client) Execute(ctx context.Context, command string) (reply string, err error) {
	if c.observer != nil {
		start := time.Now()
		defer func() { c.observer(command, time.Since(start), err) }()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return "", fmt.Errorf("not connected: %w", domain.ErrLinkLost)
	}

	deadline := time.Now().Add(c.ioTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	id := c.nextID()
	if err := writePacket(c.conn, packet{id: id, typ: typeCommand, body: command}); err != nil {
		c.drop()
		return "", fmt.Errorf("write: %v: %w", err, domain.ErrLinkLost)
	}

	p, err := readPacket(c.conn)
	if err != nil {
		c.drop()
		return "", fmt.Errorf("read: %v: %w", err, domain.ErrLinkLost)
	}
	if p.id != id {
		c.drop()
		return "", fmt.Errorf("reply for request %d, sent %d: %w", p.id, id, domain.ErrLinkLost)
	}

	_ = c.conn.SetDeadline(time.Time{})
	return p.body, nil
}

// Connected reports whether a live connection is held.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close tears down the connection. Idempotent, never fails.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drop()
	return nil
}

// Reconnect closes any existing connection and retries Connect up to
// attempts times, sleeping a constant delay before each try. No backoff
// growth and no jitter.
func (c *Client) Reconnect(ctx context.Context, attempts int, delay time.Duration) error {
	var lastErr error
	for i := 1; i <= attempts; i++ {
		_ = c.Close()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if err := c.Connect(ctx); err != nil {
			lastErr = err
			c.logger.Warn("reconnect attempt failed", "attempt", i, "of", attempts, "err", err)
			continue
		}
		c.logger.Info("reconnected", "attempt", i)
		return nil
	}
	if lastErr == nil {
		lastErr = domain.ErrUnreachable
	}
	return fmt.Errorf("reconnect gave up after %d attempts: %w", attempts, lastErr)
}

// drop closes and clears the connection. Caller must hold mu.
func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	if err := c.conn.Close(); err != nil {
		c.logger.Debug("close failed", "err", err)
	}
	c.conn = nil
}

func (c *Client) nextID() int32 {
	c.reqID++
	if c.reqID <= 0 {
		c.reqID = 1
	}
	return c.reqID
}
