// Package cache implements the Redis-backed route cache: per-identity
// partitioned caching of GET responses with tag-based invalidation,
// write-stampede suppression, and pattern purges. It sits as transparent
// middleware over the gallery API — no cache failure ever reaches a client.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis creates a Redis client and verifies the connection with a ping.
func ConnectRedis(host, port, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	slog.Info("redis connected", "addr", fmt.Sprintf("%s:%s", host, port))
	return client, nil
}
