package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionLockerContract runs a suite of tests to verify that a
// SessionLocker implementation adheres to the defined interface contract.
func RunSessionLockerContract(t *testing.T, locker SessionLocker) {
	ctx := context.Background()
	key := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Acquire and Release", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err, "Lock should not return error")
		require.NotNil(t, unlock)
		require.NoError(t, unlock(ctx), "Unlock should not return error")
	})

	t.Run("Held Lock Blocks Second Acquirer", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)

		acquired := make(chan struct{})
		go func() {
			second, err := locker.Lock(ctx, key, 5*time.Second)
			if err == nil {
				_ = second(ctx)
			}
			close(acquired)
		}()

		select {
		case <-acquired:
			t.Fatal("second Lock acquired while first still held")
		case <-time.After(100 * time.Millisecond):
		}

		require.NoError(t, unlock(ctx))

		select {
		case <-acquired:
		case <-time.After(2 * time.Second):
			t.Fatal("second Lock never acquired after release")
		}
	})

	t.Run("Independent Keys Do Not Contend", func(t *testing.T) {
		unlockA, err := locker.Lock(ctx, key+"-a", 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlockA(ctx) }()

		unlockB, err := locker.Lock(ctx, key+"-b", 5*time.Second)
		require.NoError(t, err)
		assert.NoError(t, unlockB(ctx))
	})

	t.Run("Canceled Context Aborts Wait", func(t *testing.T) {
		unlock, err := locker.Lock(ctx, key, 5*time.Second)
		require.NoError(t, err)
		defer func() { _ = unlock(ctx) }()

		waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err = locker.Lock(waitCtx, key, 5*time.Second)
		assert.Error(t, err, "Lock should fail once the context is canceled")
	})
}
