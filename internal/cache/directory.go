package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vilatur/internal/model"
)

const (
	// DirectoryKey holds the JSON-encoded result of listing every listing.
	DirectoryKey = "directory:listings:all"

	// GenerationKey is bumped by every invalidation.
	GenerationKey = "directory:listings:generation"

	// DefaultDirectoryTTL bounds staleness if an invalidation is lost.
	DefaultDirectoryTTL = time.Minute
)

// DirectoryCache caches the full listing directory used by browse and search.
type DirectoryCache interface {
	// GetAll returns the cached directory. found=false on a miss.
	GetAll(ctx context.Context) (listings []model.Listing, found bool, err error)

	// Generation returns the current invalidation generation. Read it before
	// loading the directory from the database and pass it to SetAll.
	Generation(ctx context.Context) (int64, error)

	// SetAll stores the directory with the cache TTL, unless an invalidation
	// happened after gen was read. A skipped write is not an error.
	SetAll(ctx context.Context, listings []model.Listing, gen int64) error

	// Invalidate drops the cached directory and bumps the generation.
	// Called after every listing write.
	Invalidate(ctx context.Context) error
}

// RedisDirectoryCache implements DirectoryCache with a single Redis string key.
type RedisDirectoryCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewDirectoryCache creates a DirectoryCache backed by Redis.
func NewDirectoryCache(client *redis.Client, ttl time.Duration, log *zap.Logger) DirectoryCache {
	if ttl <= 0 {
		ttl = DefaultDirectoryTTL
	}
	return &RedisDirectoryCache{client: client, ttl: ttl, log: log.Named("directory_cache")}
}

func (c *RedisDirectoryCache) GetAll(ctx context.Context) ([]model.Listing, bool, error) {
	startTime := time.Now()

	data, err := c.client.Get(ctx, DirectoryKey).Bytes()
	if err == redis.Nil {
		c.log.Debug("directory miss")
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get directory: %w", err)
	}

	var listings []model.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, false, fmt.Errorf("decode directory: %w", err)
	}

	c.log.Debug("directory hit",
		zap.Int("count", len(listings)),
		zap.Duration("duration", time.Since(startTime)))
	return listings, true, nil
}

func (c *RedisDirectoryCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get directory generation: %w", err)
	}
	return gen, nil
}

// SetAll writes under WATCH on the generation key, so an Invalidate that lands
// between the database read and this write discards the write.
func (c *RedisDirectoryCache) SetAll(ctx context.Context, listings []model.Listing, gen int64) error {
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("encode directory: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, GenerationKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return errStaleDirectory
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, DirectoryKey, data, c.ttl)
			return nil
		})
		return err
	}, GenerationKey)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, errStaleDirectory), errors.Is(err, redis.TxFailedErr):
		c.log.Debug("directory changed while loading, cache write skipped", zap.Int64("generation", gen))
		return nil
	default:
		return fmt.Errorf("set directory: %w", err)
	}
}

var errStaleDirectory = errors.New("directory generation changed")

func (c *RedisDirectoryCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey)
		pipe.Del(ctx, DirectoryKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate directory: %w", err)
	}
	c.log.Debug("directory invalidated")
	return nil
}

// NoopDirectoryCache always misses. Used when Redis is not configured.
type NoopDirectoryCache struct{}

func (NoopDirectoryCache) GetAll(context.Context) ([]model.Listing, bool, error) { return nil, false, nil }
func (NoopDirectoryCache) Generation(context.Context) (int64, error)             { return 0, nil }
func (NoopDirectoryCache) SetAll(context.Context, []model.Listing, int64) error  { return nil }
func (NoopDirectoryCache) Invalidate(context.Context) error                      { return nil }
