package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/furniro/storefront/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key is not found", func(t *testing.T) {
		s := NewMemoryStorage(0)
		payload, found, err := s.Get(ctx, "dev-1:cart")
		require.NoError(t, err)
		assert.False(t, found)
		assert.Nil(t, payload)
	})

	t.Run("set then get", func(t *testing.T) {
		s := NewMemoryStorage(0)
		require.NoError(t, s.Set(ctx, "dev-1:cart", []byte(`[]`)))

		payload, found, err := s.Get(ctx, "dev-1:cart")
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, `[]`, string(payload))
	})

	t.Run("stored payload is isolated from caller buffers", func(t *testing.T) {
		s := NewMemoryStorage(0)
		buf := []byte("abc")
		require.NoError(t, s.Set(ctx, "k", buf))
		buf[0] = 'x'

		got, _, _ := s.Get(ctx, "k")
		assert.Equal(t, "abc", string(got))
		got[1] = 'y'

		again, _, _ := s.Get(ctx, "k")
		assert.Equal(t, "abc", string(again))
	})

	t.Run("quota exceeded", func(t *testing.T) {
		s := NewMemoryStorage(4)
		err := s.Set(ctx, "k", []byte("12345"))
		assert.ErrorIs(t, err, shared.ErrQuotaExceeded)
		assert.Equal(t, 0, s.Size())
	})

	t.Run("delete and close", func(t *testing.T) {
		s := NewMemoryStorage(0)
		require.NoError(t, s.Set(ctx, "a", []byte("1")))
		require.NoError(t, s.Set(ctx, "b", []byte("2")))

		require.NoError(t, s.Delete(ctx, "a"))
		require.NoError(t, s.Delete(ctx, "a"))
		assert.Equal(t, 1, s.Size())

		require.NoError(t, s.Close())
		assert.Equal(t, 0, s.Size())
	})
}

func TestMemoryStorage_Concurrent(t *testing.T) {
	s := NewMemoryStorage(0)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("dev-%d:cart", i%5)
			_ = s.Set(ctx, key, []byte("x"))
			_, _, _ = s.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 5, s.Size())
}
