package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yigit/unisync/internal/app/models"
	"github.com/yigit/unisync/internal/app/projectors"
	"github.com/yigit/unisync/internal/config"
	"github.com/yigit/unisync/internal/pkg/apperrors"
	"github.com/yigit/unisync/internal/pkg/dberrors"
)

// RedisCache is the key-value store backed by Redis. Values never expire.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis. Client-side retries are disabled; store calls are
// retried by the pipeline's own policy.
func NewRedisCache(ctx context.Context, cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Cache.Addr,
		Password:   cfg.Cache.Password,
		DB:         cfg.Cache.DB,
		MaxRetries: -1,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to establish redis connection: %w", classifyCache("", err))
	}
	return &RedisCache{client: client}, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	return classifyCache(string(models.EntityStudent), r.client.Set(ctx, key, value, 0).Err())
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.NewResourceNotFoundError(fmt.Sprintf("key %s not found", key))
	}
	if err != nil {
		return nil, classifyCache(string(models.EntityStudent), err)
	}
	return v, nil
}

// Reset deletes every key written by the cache projector.
func (r *RedisCache) Reset(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, string(models.EntityStudent)+":*", 500).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", classifyCache("", err))
	}

	for start := 0; start < len(keys); start += 500 {
		end := min(start+500, len(keys))
		if err := r.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("failed to delete cache keys: %w", classifyCache("", err))
		}
	}
	return nil
}

func (r *RedisCache) Close(context.Context) error {
	return r.client.Close()
}

func classifyCache(entity string, err error) error {
	if err == nil {
		return nil
	}
	return dberrors.Classify(projectors.StoreCache, entity, err)
}
