package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_GetSet(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()

	t.Run("Get on an absent key", func(t *testing.T) {
		// When: reading a key nobody wrote
		_, err := backend.Get(ctx, "absent")

		// Then: the backend reports the key as missing
		require.ErrorIs(t, err, ErrKeyNotFound)
	})

	t.Run("Set then Get round trip", func(t *testing.T) {
		// Given: a stored payload
		require.NoError(t, backend.Set(ctx, "state", `{"a":1}`))

		// When: reading it back
		value, err := backend.Get(ctx, "state")

		// Then: the payload comes back unchanged
		require.NoError(t, err)
		assert.Equal(t, `{"a":1}`, value)
	})
}

func TestMemoryBackend_Watch(t *testing.T) {
	ctx := context.Background()

	t.Run("Watcher hears a write", func(t *testing.T) {
		// Given: a watcher on the key
		backend := NewMemoryBackend()
		events, cancel := backend.Watch(ctx, "state")
		defer cancel()

		// When: the key is written
		require.NoError(t, backend.Set(ctx, "state", "v1"))

		// Then: one signal is pending
		select {
		case _, ok := <-events:
			assert.True(t, ok)
		default:
			t.Fatal("expected a pending signal")
		}
	})

	t.Run("Signals coalesce while unread", func(t *testing.T) {
		// Given: a watcher that never drains
		backend := NewMemoryBackend()
		events, cancel := backend.Watch(ctx, "state")
		defer cancel()

		// When: the key is written twice
		require.NoError(t, backend.Set(ctx, "state", "v1"))
		require.NoError(t, backend.Set(ctx, "state", "v2"))

		// Then: exactly one signal is pending
		<-events
		select {
		case <-events:
			t.Fatal("expected signals to coalesce into one")
		default:
		}
	})

	t.Run("Every watcher hears the write", func(t *testing.T) {
		// Given: two watchers on the same key
		backend := NewMemoryBackend()
		first, cancelFirst := backend.Watch(ctx, "state")
		defer cancelFirst()
		second, cancelSecond := backend.Watch(ctx, "state")
		defer cancelSecond()

		// When: the key is written
		require.NoError(t, backend.Set(ctx, "state", "v1"))

		// Then: both watchers have a signal
		<-first
		<-second
	})

	t.Run("Cancel closes the channel and stops delivery", func(t *testing.T) {
		// Given: a watcher that walks away
		backend := NewMemoryBackend()
		events, cancel := backend.Watch(ctx, "state")
		cancel()

		// Then: the channel is closed
		_, ok := <-events
		assert.False(t, ok)

		// And: later writes do not panic
		require.NoError(t, backend.Set(ctx, "state", "v1"))
	})

	t.Run("Context cancellation releases the watcher", func(t *testing.T) {
		// Given: a watcher bound to a cancellable context
		backend := NewMemoryBackend()
		watchCtx, stop := context.WithCancel(ctx)
		events, cancel := backend.Watch(watchCtx, "state")
		defer cancel()

		// When: the context ends
		stop()

		// Then: the channel closes shortly after
		require.Eventually(t, func() bool {
			select {
			case _, ok := <-events:
				return !ok
			default:
				return false
			}
		}, time.Second, 10*time.Millisecond)
	})
}
