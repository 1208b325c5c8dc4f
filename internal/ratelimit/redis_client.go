package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the optional Redis backend for rate limit counters.
// When no address is configured, or the initial ping fails, the client
// stays disabled and the limiter runs on its in-memory fallback.
type RedisClient struct {
	client  *redis.Client
	enabled bool
	addr    string
}

// NewRedisClient connects to Redis at addr. An empty addr is not an
// error; it returns a disabled client. Redis here only holds rate
// limit counters for a single service instance, so the connection
// pool is kept small.
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	if addr == "" {
		slog.Warn("Redis address not configured, rate limiting will use in-memory fallback")
		return &RedisClient{enabled: false}, nil
	}

	slog.Info("Connecting to Redis for rate limit counters", "addr", addr, "db", db)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		// Rate limit checks are one INCR-style script per request, so
		// a few connections cover the whole service.
		PoolSize:     4,
		MinIdleConns: 1,
		PoolTimeout:  4 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Error("Redis ping failed, falling back to in-memory rate limiting", "addr", addr, "error", err)
		return &RedisClient{enabled: false, addr: addr}, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisClient{
		client:  client,
		enabled: true,
		addr:    addr,
	}, nil
}

// GetClient returns the underlying Redis client, nil when disabled
func (r *RedisClient) GetClient() *redis.Client {
	return r.client
}

// IsEnabled reports whether Redis connected at startup
func (r *RedisClient) IsEnabled() bool {
	return r.enabled
}

// HealthCheck pings Redis; disabled clients always report an error
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	if !r.enabled {
		return fmt.Errorf("redis is disabled")
	}
	return r.client.Ping(ctx).Err()
}

// Close shuts down the Redis connection pool
func (r *RedisClient) Close() error {
	if !r.enabled || r.client == nil {
		return nil
	}
	slog.Info("Closing Redis client")
	return r.client.Close()
}

// GetPoolStats returns Redis connection pool counters for the stats
// endpoint.
func (r *RedisClient) GetPoolStats() map[string]interface{} {
	if !r.enabled || r.client == nil {
		return map[string]interface{}{"enabled": false}
	}

	stats := r.client.PoolStats()
	return map[string]interface{}{
		"enabled":     true,
		"addr":        r.addr,
		"hits":        stats.Hits,
		"misses":      stats.Misses,
		"timeouts":    stats.Timeouts,
		"total_conns": stats.TotalConns,
		"idle_conns":  stats.IdleConns,
		"stale_conns": stats.StaleConns,
	}
}
