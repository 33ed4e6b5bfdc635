// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend is the key/value store the route cache runs against. The
// production implementation wraps Redis; tests use an in-memory one so
// call counts and stored values can be asserted without a server.
//
// Every method is best-effort from the middleware's point of view: a
// failing backend degrades the cache to a pass-through, never the request.
type Backend interface {
	// Get returns the stored value for key. The bool reports presence;
	// a missing key is not an error.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Scan walks the keyspace one page at a time. It returns the keys
	// matching pattern on this page and the cursor for the next call.
	// A returned cursor of 0 means the scan is complete.
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)

	// Unlink removes the given keys without blocking on reclamation and
	// returns how many existed.
	Unlink(ctx context.Context, keys ...string) (int64, error)

	// AddToSet adds members to the set stored at key, creating it if needed.
	AddToSet(ctx context.Context, key string, members ...string) error

	// SetMembers returns all members of the set stored at key.
	SetMembers(ctx context.Context, key string) ([]string, error)
}

// RedisBackend implements Backend on a go-redis client.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend wraps an already-connected Redis client.
func NewRedisBackend(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	return b.client.Scan(ctx, cursor, pattern, count).Result()
}

// Unlink issues the deletes through a pipeline so large batches go out in
// one round trip. UNLINK reclaims memory off the main thread.
func (b *RedisBackend) Unlink(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	cmd := b.client.Pipeline()
	res := cmd.Unlink(ctx, keys...)
	if _, err := cmd.Exec(ctx); err != nil {
		return 0, err
	}
	return res.Val(), nil
}

func (b *RedisBackend) AddToSet(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return b.client.SAdd(ctx, key, args...).Err()
}

func (b *RedisBackend) SetMembers(ctx context.Context, key string) ([]string, error) {
	return b.client.SMembers(ctx, key).Result()
}
