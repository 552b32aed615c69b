package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestTokenBlacklist(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	bl := NewRedisTokenBlacklist(client)

	revoked, err := bl.IsBlacklisted(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, bl.Add(ctx, "abc", time.Now().Add(time.Minute)))
	revoked, err = bl.IsBlacklisted(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = bl.IsBlacklisted(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	// expired tokens are not stored at all
	require.NoError(t, bl.Add(ctx, "old", time.Now().Add(-time.Minute)))
	assert.False(t, mr.Exists(blacklistKeyPrefix+"old"))
}

func TestRateLimiterFixedWindow(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	limiter := NewRateLimiter(client, 2, time.Minute)

	for i := 0; i < 2; i++ {
		ok, _, err := limiter.Allow(ctx, "create:1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := limiter.Allow(ctx, "create:1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, time.Minute)

	// other callers have their own window
	ok, _, err = limiter.Allow(ctx, "create:2")
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(time.Minute + time.Second)
	ok, _, err = limiter.Allow(ctx, "create:1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRateLimiterReportsRedisErrors(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := NewRateLimiter(client, 1, time.Minute)
	mr.Close()

	_, _, err := limiter.Allow(context.Background(), "create:1")
	assert.Error(t, err)
}
