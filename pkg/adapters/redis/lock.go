// Package redis provides a Redis-backed session locker for serve
// deployments running more than one replica. Conversation state stays in
// process memory; the lock only keeps two replicas from running the same
// session's exchange at once.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/nerdpudding/factorio-llm/pkg/ports"
)

// retryInterval is how long an acquirer waits between attempts while the
// lock is held elsewhere.
const retryInterval = 100 * time.Millisecond

// unlockScript deletes the lock only when it still carries our token. A
// lock that expired and was reacquired by another holder is never deleted
// from here.
var unlockScript = backend.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker implements ports.SessionLocker on a Redis client using
// SET NX PX with a per-acquisition token.
type Locker struct {
	client *backend.Client
	prefix string
}

// NewLocker creates a locker whose keys are namespaced under prefix.
func NewLocker(client *backend.Client, prefix string) *Locker {
	return &Locker{
		client: client,
		prefix: prefix,
	}
}

// Lock acquires the lock for key, blocking until it is free or ctx is
// canceled. The returned UnlockFunc releases it; after ttl Redis expires
// the key on its own.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire session lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				return unlockScript.Run(ctx, l.client, []string{lockKey}, token).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
