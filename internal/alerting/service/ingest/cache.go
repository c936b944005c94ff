package ingest

import (
	"context"
	"time"

	"github.com/argussight/argus/internal/config"
	"github.com/redis/go-redis/v9"
)

// BatchCache deduplicates ingest batches across instances. TryMarkSeen returns
// true when the batch id was not seen before and is now claimed.
type BatchCache interface {
	TryMarkSeen(ctx context.Context, batchID string) (bool, error)
}

// NoopCache accepts every batch. Used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) TryMarkSeen(ctx context.Context, batchID string) (bool, error) { return true, nil }

const batchKeyTTL = 10 * time.Minute

// RedisCache claims batch ids with SETNX so that retried deliveries of the
// same batch evaluate only once.
type RedisCache struct {
	r *redis.Client
}

func NewCache(r *redis.Client) *RedisCache { return &RedisCache{r: r} }

func (c *RedisCache) TryMarkSeen(ctx context.Context, batchID string) (bool, error) {
	if c.r == nil {
		return true, nil
	}
	return c.r.SetNX(ctx, "ingest:batch:"+batchID, 1, batchKeyTTL).Result()
}

// NewRedisClientFromConfig constructs a redis client from app config.
func NewRedisClientFromConfig(c *config.RedisConfig) *redis.Client {
	if c == nil {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
}
