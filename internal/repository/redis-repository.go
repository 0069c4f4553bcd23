package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisCmdable is the part of *redis.Client the repository needs
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisKVRepository keeps records as plain redis strings under a key prefix.
// Records never expire.
type RedisKVRepository struct {
	client redisCmdable
	prefix string
	logger *zap.Logger
}

func NewRedisKVRepository(client redisCmdable, prefix string, logger *zap.Logger) *RedisKVRepository {
	return &RedisKVRepository{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

func (r *RedisKVRepository) key(k string) string {
	return r.prefix + k
}

// Get retrieves the value stored under key
func (r *RedisKVRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		r.logger.Error("Failed to read key from redis", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes value under key without expiration
func (r *RedisKVRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		r.logger.Error("Failed to write key to redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

// Delete removes key
func (r *RedisKVRepository) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Error("Failed to delete key from redis", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}
