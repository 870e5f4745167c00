package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryBackend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("set then get returns value", func(t *testing.T) {
		b := NewMemory()
		require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))

		got, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("v"), got)
	})

	t.Run("missing key returns ErrMiss", func(t *testing.T) {
		b := NewMemory()
		_, err := b.Get(ctx, "absent")
		require.ErrorIs(t, err, ErrMiss)
	})

	t.Run("expired entry returns ErrMiss", func(t *testing.T) {
		b := NewMemory()
		current := time.Now()
		b.now = func() time.Time { return current }

		require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))

		current = current.Add(2 * time.Minute)
		_, err := b.Get(ctx, "k")
		require.ErrorIs(t, err, ErrMiss)
	})

	t.Run("delete removes entry", func(t *testing.T) {
		b := NewMemory()
		require.NoError(t, b.Set(ctx, "k", []byte("v"), time.Minute))
		require.NoError(t, b.Delete(ctx, "k"))

		_, err := b.Get(ctx, "k")
		require.ErrorIs(t, err, ErrMiss)
	})

	t.Run("stored value is copied", func(t *testing.T) {
		b := NewMemory()
		payload := []byte("original")
		require.NoError(t, b.Set(ctx, "k", payload, time.Minute))
		payload[0] = 'X'

		got, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.Equal(t, []byte("original"), got)
	})
}
