package ports

import "context"

// Console is the command link into a running game server.
// Implementations hold at most one live connection and serialize commands
// over it.
type Console interface {
	// Connect establishes the link. Calling it on an already connected
	// console is a no-op.
	Connect(ctx context.Context) error

	// Execute sends one console command and returns the raw textual reply.
	// A transport failure mid-command drops the link and returns
	// domain.ErrLinkLost; the caller must Connect again before retrying.
	Execute(ctx context.Context, command string) (string, error)

	// Connected reports whether a live link is currently held.
	Connected() bool

	// Close tears down the link. Safe to call on a dead console.
	Close() error
}
