// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// middleware.go is the orchestrator: resolve the key, serve hits from the
// backend, and on a miss coordinate capture of the handler's response for
// an asynchronous write. The cache is purely an optimization over a
// correct, cache-agnostic handler path — it fails open at every step and
// never adds a user-visible error or delay.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// DefaultTTL is how long a cached response lives absent invalidation.
const DefaultTTL = 5 * time.Minute

// writeTimeout bounds the detached backend write for one response.
const writeTimeout = 5 * time.Second

// IdentityFunc extracts the authenticated user id from a request, or ""
// for anonymous. Wired by the composition root so this package stays
// independent of the session layer.
type IdentityFunc func(*http.Request) string

// State owns every moving part of the route cache: backend, tag index,
// write coordinator, counters, and the background task runner. One State
// is constructed at the composition root; Start and Stop bracket its
// sweep goroutine so tests get isolated instances and shutdown is
// deterministic.
type State struct {
	backend  Backend
	tags     *TagIndex
	coord    *Coordinator
	stats    *Stats
	tasks    *Tasks
	sweeper  *Sweeper
	ttl      time.Duration
	identity IdentityFunc
}

// NewState assembles a route cache on the given backend. identity may be
// nil, in which case every request is treated as anonymous.
func NewState(backend Backend, ttl time.Duration, identity IdentityFunc) *State {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if identity == nil {
		identity = func(*http.Request) string { return "" }
	}
	return &State{
		backend:  backend,
		tags:     NewTagIndex(backend),
		coord:    NewCoordinator(),
		stats:    NewStats(),
		tasks:    NewTasks(),
		sweeper:  NewSweeper(backend),
		ttl:      ttl,
		identity: identity,
	}
}

// Start launches the coordinator's sweep goroutine.
func (s *State) Start() { s.coord.Start() }

// Stop terminates background work. Pending fire-and-forget writes are
// allowed to settle.
func (s *State) Stop() {
	s.coord.Stop()
	s.tasks.Wait()
}

// Stats exposes the hit/miss counters.
func (s *State) Stats() *Stats { return s.stats }

// Tags exposes the tag index for invalidation by mutation handlers.
func (s *State) Tags() *TagIndex { return s.tags }

// Sweeper exposes the pattern purger for the admin endpoint.
func (s *State) Sweeper() *Sweeper { return s.sweeper }

// Tasks exposes the background runner so tests can await and observe the
// asynchronous write path.
func (s *State) Tasks() *Tasks { return s.tasks }

// Middleware returns the caching middleware. Apply it to GET routes whose
// responses are worth capturing; non-GET requests pass straight through.
func (s *State) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.stats.Request()

		res := Resolve(r, s.identity(r))
		if !res.Cacheable {
			next.ServeHTTP(w, r)
			return
		}

		// Backend trouble degrades to a miss — never to an error.
		stored, found, err := s.backend.Get(r.Context(), res.Key)
		if err != nil {
			slog.Warn("route cache get failed", "key", res.Key, "error", err)
			found = false
		}

		if found {
			s.stats.Hit()
			slog.Debug("route cache hit", "key", res.Key)
			DecodeEnvelope(stored).Replay(w, s.ttlSeconds())
			return
		}
		s.stats.Miss()

		h := w.Header()
		h.Set("X-Cache", "MISS")
		h.Set("Cache-Control", fmt.Sprintf("public, max-age=%d", s.ttlSeconds()))
		h.Set("Vary", "Authorization")

		// Only one concurrent miss per key gets to capture and write;
		// the rest execute the handler uncached.
		release, owner := s.coord.Begin("build:" + res.Key)
		if !owner {
			next.ServeHTTP(w, r)
			return
		}

		rec := NewRecorder(w)
		next.ServeHTTP(rec, r)

		if !rec.Capturable() {
			release()
			return
		}

		// Snapshot everything the detached write needs; the request and
		// its context are done once we return.
		var (
			key    = res.Key
			status = rec.Status()
			ctype  = rec.Header().Get("Content-Type")
			body   = rec.Body()
			tags   = DeriveTags(r)
		)

		s.tasks.Go("route cache write", func() error {
			defer release()

			encoded, ok := EncodeEnvelope(status, ctype, body)
			if !ok {
				// Oversized — served but never stored.
				return nil
			}

			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			defer cancel()

			if err := s.backend.Set(ctx, key, encoded, s.ttl); err != nil {
				return fmt.Errorf("store %q: %w", key, err)
			}
			if err := s.tags.AddTags(ctx, key, tags); err != nil {
				return fmt.Errorf("tag %q: %w", key, err)
			}
			return nil
		})
	})
}

func (s *State) ttlSeconds() int {
	return int(s.ttl.Seconds())
}
