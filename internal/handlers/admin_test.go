// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"galleryd/internal/cache"
	"galleryd/internal/store"
)

func TestCachePurge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM cache_purge_log WHERE kind = 'pattern'")
	})

	for i := 0; i < 25; i++ {
		key := fmt.Sprintf("route_cache:public:/api/browse/a%d", i)
		if err := env.Redis.Set(ctx, key, "x", time.Minute).Err(); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	// A key outside the requested pattern survives.
	if err := env.Redis.Set(ctx, "route_cache:user:7:/api/browse", "x", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	body := strings.NewReader(`{"pattern": "route_cache:public:*"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/cache/purge", body)
	req = req.WithContext(ctxWithSession(req.Context(), adminSession()))
	rr := httptest.NewRecorder()
	env.Admin.CachePurge(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200: %s", rr.Code, rr.Body.String())
	}

	var resp purgeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Success || resp.ClearedKeys != 25 {
		t.Errorf("response: got %+v, want success with 25 cleared keys", resp)
	}

	if n, _ := env.Redis.Exists(ctx, "route_cache:public:/api/browse/a0").Result(); n != 0 {
		t.Error("matched key should be gone")
	}
	if n, _ := env.Redis.Exists(ctx, "route_cache:user:7:/api/browse").Result(); n != 1 {
		t.Error("unmatched key should survive")
	}
}

func TestCachePurgeDefaultsToWholeCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM cache_purge_log WHERE kind = 'pattern'")
	})

	if err := env.Redis.Set(ctx, "route_cache:public:/api/settings", "x", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/admin/cache/purge", nil)
	rr := httptest.NewRecorder()
	env.Admin.CachePurge(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var resp purgeResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Pattern != "route_cache:*" {
		t.Errorf("pattern: got %q, want route_cache:*", resp.Pattern)
	}
	if n, _ := env.Redis.Exists(ctx, "route_cache:public:/api/settings").Result(); n != 0 {
		t.Error("cache entry should be gone")
	}
}

func TestCachePurgeRejectsForeignPattern(t *testing.T) {
	env := newTestEnv(t)

	body := strings.NewReader(`{"pattern": "session:*"}`)
	req := httptest.NewRequest(http.MethodPost, "/admin/cache/purge", body)
	rr := httptest.NewRecorder()
	env.Admin.CachePurge(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rr.Code)
	}
}

func TestCacheStats(t *testing.T) {
	env := newTestEnv(t)

	// Drive a miss and then a hit through the caching middleware.
	handler := env.Cache.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"entries":[]}`))
	}))

	for i := 0; i < 2; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/browse", nil))
		env.Cache.Tasks().Wait() // let the async write settle before the next pass
	}

	rr := httptest.NewRecorder()
	env.Admin.CacheStats(rr, httptest.NewRequest(http.MethodGet, "/admin/cache/stats", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var snap cache.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.TotalRequests != 2 || snap.Misses != 1 || snap.Hits != 1 {
		t.Errorf("snapshot: got %+v, want 2 total / 1 miss / 1 hit", snap)
	}
}

func TestCacheLog(t *testing.T) {
	env := newTestEnv(t)
	t.Cleanup(func() {
		env.DB.Exec("DELETE FROM cache_purge_log WHERE kind = 'pattern'")
	})

	sess := adminSession()
	req := httptest.NewRequest(http.MethodPost, "/admin/cache/purge", nil)
	req = req.WithContext(ctxWithSession(req.Context(), sess))
	env.Admin.CachePurge(httptest.NewRecorder(), req)

	rr := httptest.NewRecorder()
	env.Admin.CacheLog(rr, httptest.NewRequest(http.MethodGet, "/admin/cache/log", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var entries []store.PurgeLogEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}

	found := false
	for _, e := range entries {
		if e.Kind == "pattern" && e.Actor != nil && *e.Actor == sess.UserID {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("purge log missing the audit row for the test purge: %+v", entries)
	}
}
