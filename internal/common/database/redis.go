// internal/common/database/redis.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"directory-engine/internal/common/config"
)

// RedisClient holds the connection behind the directory schema cache.
type RedisClient struct {
	Client *redis.Client
}

// NewRedis builds a client from cfg. It does not dial; call Ping to check the
// server is reachable.
func NewRedis(cfg config.RedisConfig) *RedisClient {
	opts := &redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	return &RedisClient{Client: redis.NewClient(opts)}
}

// Ping satisfies the readiness check.
func (c *RedisClient) Ping(ctx context.Context) error {
	if err := c.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.Client.Options().Addr, err)
	}
	return nil
}

// Stats reports pool usage for the startup log.
func (c *RedisClient) Stats() map[string]interface{} {
	s := c.Client.PoolStats()
	return map[string]interface{}{
		"totalConns": s.TotalConns,
		"idleConns":  s.IdleConns,
		"timeouts":   s.Timeouts,
	}
}

func (c *RedisClient) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
