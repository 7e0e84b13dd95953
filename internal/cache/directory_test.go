package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vilatur/internal/cache"
	"vilatur/internal/model"
)

func setupTestRedis(t *testing.T) *redis.Client {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379"
	}

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)

	// Use DB 1 for testing to avoid conflicts with dev data
	opts.DB = 1
	client := redis.NewClient(opts)

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	client.FlushDB(ctx)

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestRedisDirectoryCache_SetGetInvalidate(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	c := cache.NewDirectoryCache(client, time.Minute, zap.NewNop())

	_, found, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	kw := "pão,bolo"
	listings := []model.Listing{{ID: 1, OwnerID: 7, Title: "Padaria Bom Pão", Keywords: &kw, Delivery: model.DeliveryNo}}
	gen, err := c.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, c.SetAll(ctx, listings, gen))

	got, found, err := c.GetAll(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, "Padaria Bom Pão", got[0].Title)
	assert.Equal(t, "pão,bolo", *got[0].Keywords)

	ttl := client.TTL(ctx, cache.DirectoryKey).Val()
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Invalidate(ctx))
	_, found, err = c.GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisDirectoryCache_InvalidateDuringLoadSkipsWrite(t *testing.T) {
	client := setupTestRedis(t)
	ctx := context.Background()
	c := cache.NewDirectoryCache(client, time.Minute, zap.NewNop())

	gen, err := c.Generation(ctx)
	require.NoError(t, err)

	// a listing write invalidates while the reader is still loading from Postgres
	require.NoError(t, c.Invalidate(ctx))

	require.NoError(t, c.SetAll(ctx, []model.Listing{{ID: 1, Title: "stale"}}, gen))
	_, found, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, found, "stale directory must not be cached")

	fresh, err := c.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, fresh)
	require.NoError(t, c.SetAll(ctx, []model.Listing{{ID: 1, Title: "fresh"}}, fresh))
	got, found, err := c.GetAll(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "fresh", got[0].Title)
}

func TestNoopDirectoryCache_AlwaysMisses(t *testing.T) {
	var c cache.DirectoryCache = cache.NoopDirectoryCache{}
	ctx := context.Background()

	require.NoError(t, c.SetAll(ctx, []model.Listing{{ID: 1}}, 0))
	_, found, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}
