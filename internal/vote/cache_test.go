package vote

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCountCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ConnectRedis(ctx, addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	cache := NewRedisCountCache(client, time.Minute)
	ids := []string{"it-vote-a", "it-vote-b"}
	require.NoError(t, cache.Invalidate(ctx, ids...))

	versions, err := cache.Versions(ctx, ids)
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, []Counts{{PostID: "it-vote-a", Upvotes: 4, Downvotes: 1}}, versions))

	hits, missing, err := cache.Get(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, Counts{PostID: "it-vote-a", Upvotes: 4, Downvotes: 1}, hits["it-vote-a"])
	assert.Equal(t, []string{"it-vote-b"}, missing)

	ttl, err := client.TTL(ctx, countKey("it-vote-a")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, cache.Invalidate(ctx, "it-vote-a"))
	_, missing, err = cache.Get(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, ids, missing)

	// a write-back read under the old version is dropped
	require.NoError(t, cache.Set(ctx, []Counts{{PostID: "it-vote-a", Upvotes: 4, Downvotes: 1}}, versions))
	_, missing, err = cache.Get(ctx, ids)
	require.NoError(t, err)
	assert.Equal(t, ids, missing)
}
