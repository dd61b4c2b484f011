package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryTokenBlacklist(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-1", time.Hour))

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestInMemoryTokenBlacklist_Expiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	blacklist := NewInMemoryTokenBlacklist()
	blacklist.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "short", time.Minute))
	require.NoError(t, blacklist.AddToBlacklist(ctx, "long", time.Hour))

	now = now.Add(2 * time.Minute)
	revoked, err := blacklist.IsBlacklisted(ctx, "short")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "long")
	require.NoError(t, err)
	assert.True(t, revoked)

	now = now.Add(time.Hour)
	require.NoError(t, blacklist.AddToBlacklist(ctx, "fresh", time.Hour))
	assert.Len(t, blacklist.revoked, 1, "expired entries are swept on add")
}

func TestInMemoryTokenBlacklist_ExpiredTokenNotStored(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), "gone", 0))
	assert.Empty(t, blacklist.revoked)
}

func TestInMemoryTokenBlacklist_Concurrent(t *testing.T) {
	blacklist := NewInMemoryTokenBlacklist()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = blacklist.AddToBlacklist(ctx, "shared", time.Hour)
			_, _ = blacklist.IsBlacklisted(ctx, "shared")
		}()
	}
	wg.Wait()

	revoked, err := blacklist.IsBlacklisted(ctx, "shared")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestRedisTokenBlacklist_ConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	blacklist := NewRedisTokenBlacklist(client, "furniro:")
	defer blacklist.Close()

	assert.Equal(t, "furniro:revoked:", blacklist.keyPrefix)

	ctx := context.Background()
	assert.Error(t, blacklist.AddToBlacklist(ctx, "jti", time.Minute))
	assert.NoError(t, blacklist.AddToBlacklist(ctx, "jti", 0), "expired tokens never reach redis")
	_, err := blacklist.IsBlacklisted(ctx, "jti")
	assert.Error(t, err)
}
