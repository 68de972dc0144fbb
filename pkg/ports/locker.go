package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases an acquired session lock.
type UnlockFunc func(ctx context.Context) error

// SessionLocker serializes exchanges per session. Conversation state lives
// only in process memory, so a session is pinned to one replica; the lock
// guards against two requests for the same session racing through the loop.
type SessionLocker interface {
	// Lock attempts to acquire the lock for the given key (a session ID).
	// It blocks until the lock is acquired or the context is canceled.
	// The TTL bounds how long a crashed holder can wedge the key.
	// Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
