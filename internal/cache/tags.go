// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// tags.go maintains the reverse index from invalidation tags to cache
// keys, so a mutation to one album or item can evict exactly the listings
// that depend on it instead of flushing the whole cache.
//
// Associations are best-effort: a tag may reference keys that already
// expired, and invalidating those is a harmless no-op. Failing to
// invalidate a live key would be a bug; invalidating too much is fine.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

// tagSetPrefix namespaces tag sets in the backend, apart from cache entries.
const tagSetPrefix = "route_tags:"

// invalidateBatchSize caps how many member keys go into one unlink call.
const invalidateBatchSize = 200

// TagIndex is the tag → cache-key reverse index stored in the backend.
type TagIndex struct {
	backend Backend
}

// NewTagIndex creates a tag index on the given backend.
func NewTagIndex(backend Backend) *TagIndex {
	return &TagIndex{backend: backend}
}

// AddTags associates key with each tag. Best-effort: failures are logged,
// never surfaced — a missing association only costs invalidation coverage
// until the entry's TTL expires.
func (t *TagIndex) AddTags(ctx context.Context, key string, tags []string) error {
	for _, tag := range tags {
		if err := t.backend.AddToSet(ctx, tagSetPrefix+tag, key); err != nil {
			return fmt.Errorf("tag %q: %w", tag, err)
		}
	}
	return nil
}

// InvalidateTag evicts every cache key ever associated with tag and drops
// the tag set itself. Returns how many live keys were removed.
func (t *TagIndex) InvalidateTag(ctx context.Context, tag string) (int64, error) {
	setKey := tagSetPrefix + tag

	members, err := t.backend.SetMembers(ctx, setKey)
	if err != nil {
		return 0, fmt.Errorf("tag members %q: %w", tag, err)
	}

	var removed int64
	for start := 0; start < len(members); start += invalidateBatchSize {
		end := min(start+invalidateBatchSize, len(members))
		n, err := t.backend.Unlink(ctx, members[start:end]...)
		if err != nil {
			return removed, fmt.Errorf("invalidate tag %q: %w", tag, err)
		}
		removed += n
	}

	if _, err := t.backend.Unlink(ctx, setKey); err != nil {
		return removed, fmt.Errorf("drop tag set %q: %w", tag, err)
	}

	slog.Debug("tag invalidated", "tag", tag, "removed", removed)
	return removed, nil
}

// DeriveTags computes the invalidation tags for a request from its route
// shape alone — a pure function, independent of the response body.
func DeriveTags(r *http.Request) []string {
	p := r.URL.Path

	switch {
	case strings.HasPrefix(p, "/api/settings"):
		return []string{"settings"}

	case strings.HasPrefix(p, "/api/thumbnail"):
		itemPath := r.URL.Query().Get("path")
		if itemPath == "" {
			return nil
		}
		return DeriveItemTags(itemPath)

	case strings.HasPrefix(p, browsePrefix):
		return deriveBrowseTags(p)
	}

	return nil
}

// DeriveItemTags returns the tags covering one media item: the item
// itself, its thumbnail, its containing album, and the root album. Both
// the item: and thumbnail: namespaces are kept — they overlap, but
// dropping either would narrow invalidation coverage.
func DeriveItemTags(itemPath string) []string {
	itemPath = normalizeAlbumPath(itemPath)
	return []string{
		"item:" + itemPath,
		"thumbnail:" + itemPath,
		"album:" + normalizeAlbumPath(path.Dir(itemPath)),
		"album:/",
	}
}

// deriveBrowseTags tags a listing with the root album plus every ancestor
// prefix, so renaming or deleting a parent directory can invalidate the
// cached listings of its descendants. Browsing /a/b/c yields album:/a,
// album:/a/b, album:/a/b/c and album:/.
func deriveBrowseTags(urlPath string) []string {
	tags := []string{"album:/"}

	rel := strings.Trim(strings.TrimPrefix(urlPath, browsePrefix), "/")
	if rel == "" {
		return tags
	}

	prefix := ""
	for _, seg := range strings.Split(rel, "/") {
		prefix += "/" + seg
		tags = append(tags, "album:"+prefix)
	}
	return tags
}

// normalizeAlbumPath anchors a path at the album root with no trailing slash.
func normalizeAlbumPath(p string) string {
	p = "/" + strings.Trim(p, "/")
	if p == "/." {
		return "/"
	}
	return p
}
