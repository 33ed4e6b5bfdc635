// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// key.go derives cache keys and identity buckets from incoming requests.
// Resolution is a pure function of the request — no I/O, no side effects —
// so the same request always maps to the same key.
package cache

import (
	"net/http"
	"strings"
)

const (
	// KeyPrefix namespaces all route-cache entries in Redis.
	KeyPrefix = "route_cache:"

	// BucketPublic is the shared partition for identity-independent
	// responses and for anonymous identity-dependent ones (collapsing
	// anonymous views into one bucket bounds key cardinality).
	BucketPublic = "public"

	// browsePrefix is the route whose listings can be identity-dependent.
	browsePrefix = "/api/browse"
)

// Resolution is the outcome of resolving a request against the cache.
type Resolution struct {
	Key       string // full backend key, route_cache:<bucket>:<originalURL>
	Bucket    string // "public" or "user:<id>"
	Cacheable bool   // false means the request bypasses the cache entirely
}

// Resolve computes the cache key and partition bucket for a request.
// userID is the authenticated identity, or empty for anonymous requests.
// Only GET requests are cacheable.
func Resolve(r *http.Request, userID string) Resolution {
	if r.Method != http.MethodGet {
		return Resolution{}
	}

	bucket := BucketPublic
	if identityDependent(r) && userID != "" {
		bucket = "user:" + userID
	}

	// The full original URL (path + query) is part of the key, so distinct
	// query combinations cache independently.
	return Resolution{
		Key:       KeyPrefix + bucket + ":" + r.URL.RequestURI(),
		Bucket:    bucket,
		Cacheable: true,
	}
}

// identityDependent reports whether the response content varies by user.
// Browse listings sorted by personal view counts always do; "smart" sort
// only does inside a subdirectory (the root listing is the same for all).
func identityDependent(r *http.Request) bool {
	if !strings.HasPrefix(r.URL.Path, browsePrefix) {
		return false
	}
	switch r.URL.Query().Get("sort") {
	case "viewed_desc":
		return true
	case "smart":
		return isBrowseSubdir(r.URL.Path)
	}
	return false
}

// isBrowseSubdir reports whether the browse path points below the root.
func isBrowseSubdir(urlPath string) bool {
	rest := strings.TrimPrefix(urlPath, browsePrefix)
	return strings.Trim(rest, "/") != ""
}
