package state

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idvgate/pkg/platform/sentinel"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("consume returns the saved token once", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		require.NoError(t, s.Save(ctx, "auth0|abc", "tok-1", time.Minute))

		got, err := s.Consume(ctx, "auth0|abc")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", got)

		_, err = s.Consume(ctx, "auth0|abc")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("a later redirect replaces the pending token", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		require.NoError(t, s.Save(ctx, "auth0|abc", "tok-1", time.Minute))
		require.NoError(t, s.Save(ctx, "auth0|abc", "tok-2", time.Minute))

		got, err := s.Consume(ctx, "auth0|abc")
		require.NoError(t, err)
		assert.Equal(t, "tok-2", got)
	})

	t.Run("expired entries are not found", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		require.NoError(t, s.Save(ctx, "auth0|abc", "tok-1", time.Millisecond))
		time.Sleep(5 * time.Millisecond)

		_, err := s.Consume(ctx, "auth0|abc")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("concurrent consumers bind a token at most once", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		for round := range 200 {
			require.NoError(t, s.Save(ctx, "auth0|abc", "tok-1", time.Minute))

			var bound atomic.Int32
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if _, err := s.Consume(ctx, "auth0|abc"); err == nil {
						bound.Add(1)
					}
				}()
			}
			wg.Wait()
			require.Equal(t, int32(1), bound.Load(), "round %d", round)
		}
	})

	t.Run("subjects are isolated", func(t *testing.T) {
		s := NewMemoryStore(time.Minute)
		require.NoError(t, s.Save(ctx, "auth0|abc", "tok-1", time.Minute))
		_, err := s.Consume(ctx, "auth0|xyz")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestNewToken(t *testing.T) {
	a, b := NewToken(), NewToken()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
