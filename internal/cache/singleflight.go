// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// singleflight.go suppresses write stampedes: of N concurrent misses for
// the same key, only the first attaches a response recorder and performs
// the eventual backend write. The others run their handlers normally and
// simply go uncached. This deliberately coordinates the *write*, not the
// computation — concurrent misses still each execute the handler. True
// request coalescing (all waiters replaying one shared result) would
// change observable behavior and is intentionally not implemented.
package cache

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

const (
	// settleTimeout bounds how long a registration may stay in flight
	// before it is force-released.
	settleTimeout = 8 * time.Second

	// sweepInterval is the leak backstop for entries whose release was
	// lost (the watchdog should normally get there first).
	sweepInterval = 5 * time.Minute
)

// ErrSettleTimeout marks a registration that was force-released because its
// settlement never arrived. It is logged at debug level and swallowed —
// the request it belonged to already completed uncached.
var ErrSettleTimeout = errors.New("singleflight: settle timeout")

// flight is one in-flight write registration.
type flight struct {
	createdAt time.Time
	watchdog  *time.Timer
}

// Coordinator tracks at most one in-flight cache write per key.
// Construct with NewCoordinator and call Start/Stop from the composition
// root so tests get isolated instances and shutdown is deterministic.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]*flight
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCoordinator creates a coordinator with the default timeout.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		inflight: make(map[string]*flight),
		timeout:  settleTimeout,
		stopCh:   make(chan struct{}),
	}
}

// Begin registers key as in flight. The bool is false when another
// registration already holds the key — the caller proceeds without
// attaching a recorder. On success the returned release func must be
// called exactly once when the write settles (stored, skipped, or failed);
// calling it more than once is harmless.
func (c *Coordinator) Begin(key string) (release func(), ok bool) {
	c.mu.Lock()
	if _, exists := c.inflight[key]; exists {
		c.mu.Unlock()
		return nil, false
	}
	f := &flight{createdAt: time.Now()}
	c.inflight[key] = f
	c.mu.Unlock()

	var once sync.Once
	release = func() {
		once.Do(func() {
			f.watchdog.Stop()
			c.remove(key, f)
		})
	}

	// Watchdog: a settlement that never arrives must not pin the key
	// forever. Never surfaced to the client.
	f.watchdog = time.AfterFunc(c.timeout, func() {
		slog.Debug("write coordination timed out", "key", key, "error", ErrSettleTimeout)
		release()
	})

	return release, true
}

// remove deletes the entry only if it is still the same registration.
func (c *Coordinator) remove(key string, f *flight) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, exists := c.inflight[key]; exists && cur == f {
		delete(c.inflight, key)
	}
}

// InFlight returns the number of registered keys.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Start launches the periodic sweep goroutine. The sweep only removes
// entries older than the timeout — anything the watchdogs missed.
func (c *Coordinator) Start() {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sweep()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop terminates the sweep goroutine.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

// sweep drops entries that outlived the timeout.
func (c *Coordinator) sweep() {
	cutoff := time.Now().Add(-c.timeout)

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, f := range c.inflight {
		if f.createdAt.Before(cutoff) {
			f.watchdog.Stop()
			delete(c.inflight, key)
			slog.Debug("swept stale write registration", "key", key)
		}
	}
}
