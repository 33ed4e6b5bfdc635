// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryBackend is an in-process Backend used by tests and by development
// setups running without Redis. It honors TTLs lazily on read.
type MemoryBackend struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	sets    map[string]map[string]struct{}
}

type memoryEntry struct {
	value   string
	expires time.Time // zero means no expiry
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		entries: make(map[string]memoryEntry),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (m *MemoryBackend) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.expires.IsZero() && time.Now().After(e.expires) {
		delete(m.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (m *MemoryBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expires = time.Now().Add(ttl)
	}
	m.entries[key] = e
	return nil
}

// Scan pages through a sorted snapshot of the keyspace. The cursor is the
// offset of the next page; 0 on return means the scan is complete.
func (m *MemoryBackend) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]string, 0, len(m.entries)+len(m.sets))
	for k := range m.entries {
		all = append(all, k)
	}
	for k := range m.sets {
		all = append(all, k)
	}
	sort.Strings(all)

	if count <= 0 {
		count = 10
	}
	start := int(cursor)
	if start >= len(all) {
		return nil, 0, nil
	}
	end := min(start+int(count), len(all))

	var matched []string
	for _, k := range all[start:end] {
		if globMatch(pattern, k) {
			matched = append(matched, k)
		}
	}

	next := uint64(end)
	if end >= len(all) {
		next = 0
	}
	return matched, next, nil
}

func (m *MemoryBackend) Unlink(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for _, k := range keys {
		if _, ok := m.entries[k]; ok {
			delete(m.entries, k)
			removed++
			continue
		}
		if _, ok := m.sets[k]; ok {
			delete(m.sets, k)
			removed++
		}
	}
	return removed, nil
}

func (m *MemoryBackend) AddToSet(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		set = make(map[string]struct{})
		m.sets[key] = set
	}
	for _, member := range members {
		set[member] = struct{}{}
	}
	return nil
}

func (m *MemoryBackend) SetMembers(ctx context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	set, ok := m.sets[key]
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

// globMatch implements Redis-style glob matching: '*' matches any run of
// characters (slashes included, unlike path.Match), '?' matches one.
func globMatch(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			pattern = pattern[1:]
			if pattern == "" {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if globMatch(pattern, s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if s == "" {
				return false
			}
		default:
			if s == "" || s[0] != pattern[0] {
				return false
			}
		}
		pattern = pattern[1:]
		s = s[1:]
	}
	return s == ""
}

// Len reports how many live value entries exist. Used in tests.
func (m *MemoryBackend) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
