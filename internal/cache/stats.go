// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import "sync/atomic"

// Stats holds the process-lifetime hit/miss counters. Monotonic, never
// persisted, safe for concurrent use.
type Stats struct {
	hits   atomic.Int64
	misses atomic.Int64
	total  atomic.Int64
}

// NewStats creates a zeroed counter set.
func NewStats() *Stats {
	return &Stats{}
}

// Request counts one request entering the middleware, cacheable or not.
func (s *Stats) Request() { s.total.Add(1) }

// Hit counts one served-from-cache response.
func (s *Stats) Hit() { s.hits.Add(1) }

// Miss counts one cacheable request that fell through to the handler.
func (s *Stats) Miss() { s.misses.Add(1) }

// Snapshot is a read-only view of the counters.
type Snapshot struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	TotalRequests int64 `json:"totalRequests"`
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Hits:          s.hits.Load(),
		Misses:        s.misses.Load(),
		TotalRequests: s.total.Load(),
	}
}
