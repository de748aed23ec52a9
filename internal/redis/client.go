package redisdb

import (
	"context"
	"fmt"
	"time"

	"fakenews/internal/config"

	"github.com/redis/go-redis/v9"
)

func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// Connect builds a client and checks the server answers within timeout.
// The client is closed when the ping fails.
func Connect(ctx context.Context, cfg *config.Config, timeout time.Duration) (*redis.Client, error) {
	rdb := NewClient(cfg)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	return rdb, nil
}
