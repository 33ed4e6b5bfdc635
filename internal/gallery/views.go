// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package gallery

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// viewsKeyPrefix namespaces per-bucket view-count hashes in Redis.
const viewsKeyPrefix = "views:"

// Views tracks how often each identity bucket has opened each item. The
// counts feed the viewed_desc and smart listing orders — the reason cached
// listings are identity-partitioned at all.
type Views struct {
	client *redis.Client
}

// NewViews creates a view tracker on the given Redis client.
func NewViews(client *redis.Client) *Views {
	return &Views{client: client}
}

// Record counts one view of path by bucket. Best-effort: a failed
// increment is logged and forgotten.
func (v *Views) Record(ctx context.Context, bucket, path string) {
	if err := v.client.HIncrBy(ctx, viewsKeyPrefix+bucket, path, 1).Err(); err != nil {
		slog.Warn("view count increment failed", "bucket", bucket, "path", path, "error", err)
	}
}

// Counts returns every view count for bucket. On failure it returns nil —
// callers degrade to a view-independent ordering.
func (v *Views) Counts(ctx context.Context, bucket string) map[string]int64 {
	raw, err := v.client.HGetAll(ctx, viewsKeyPrefix+bucket).Result()
	if err != nil {
		slog.Warn("view counts fetch failed", "bucket", bucket, "error", err)
		return nil
	}
	if len(raw) == 0 {
		return nil
	}

	counts := make(map[string]int64, len(raw))
	for path, val := range raw {
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			continue
		}
		counts[path] = n
	}
	return counts
}
