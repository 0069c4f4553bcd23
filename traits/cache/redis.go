package cache

import (
	"context"
	"fmt"
	"time"

	"alphaboutique/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// InitRedis connects to the redis instance used as shared durable storage
func InitRedis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	logger.Info("Redis initialized successfully",
		zap.String("addr", cfg.RedisAddr),
		zap.Int("db", cfg.RedisDB),
	)

	return client, nil
}
