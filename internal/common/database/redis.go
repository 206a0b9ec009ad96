// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pwd-access/internal/common/config"

	"github.com/redis/go-redis/v9"
)

// KeyNamespace prefixes every key this service writes so a shared Redis
// can host other tenants.
const KeyNamespace = "pwd"

// Key joins parts under the service namespace, e.g. Key("service", "12") -> "pwd:service:12".
func Key(parts ...string) string {
	return KeyNamespace + ":" + strings.Join(parts, ":")
}

// RedisClient holds the cache and lock backend.
type RedisClient struct {
	Client *redis.Client
}

func NewRedis(cfg config.RedisConfig) (*RedisClient, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is empty")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     poolSize,
		MinIdleConns: poolSize / 2,
	})

	return &RedisClient{Client: rdb}, nil
}

// Ping satisfies the readiness check.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
