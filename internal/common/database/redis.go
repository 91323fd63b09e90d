// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"studybuddy-payments/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// RedisClient backs the processed-reference ledger.
type RedisClient struct {
	Client *redis.Client
	ttl    time.Duration
}

// NewRedis builds a small pool; the ledger issues at most two commands per
// payment.
func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("redis address is not configured")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     5,
		MinIdleConns: 1,
	})

	return &RedisClient{
		Client: rdb,
		ttl:    time.Duration(cfg.ReferenceTTL) * time.Hour,
	}, nil
}

// ReferenceTTL is how long a claimed payment reference is remembered.
func (c *RedisClient) ReferenceTTL() time.Duration {
	return c.ttl
}

func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Client.Options().Addr, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
