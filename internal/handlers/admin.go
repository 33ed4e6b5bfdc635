// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"galleryd/internal/cache"
	"galleryd/internal/middleware"
	"galleryd/internal/store"
)

// purgeLogLimit is how many audit entries the admin log endpoint returns.
const purgeLogLimit = 50

// Admin groups the cache administration handlers.
type Admin struct {
	cache    *cache.State
	purgeLog *store.PurgeLogStore
}

// NewAdmin creates the admin handler group.
func NewAdmin(cacheState *cache.State, purgeLog *store.PurgeLogStore) *Admin {
	return &Admin{cache: cacheState, purgeLog: purgeLog}
}

// purgeRequest is the optional JSON body of a purge call.
type purgeRequest struct {
	Pattern string `json:"pattern"`
}

// purgeResponse reports the outcome of a purge.
type purgeResponse struct {
	Success     bool   `json:"success"`
	ClearedKeys int64  `json:"clearedKeys"`
	Pattern     string `json:"pattern"`
}

// CachePurge removes every cache entry matching the requested pattern. An
// empty body or pattern purges the whole route cache. Patterns are
// constrained to the cache namespace so an admin typo cannot unlink
// sessions or view counters.
func (a *Admin) CachePurge(w http.ResponseWriter, r *http.Request) {
	var req purgeRequest
	if r.Body != nil {
		// Ignore decode errors — an empty body means "purge everything".
		json.NewDecoder(r.Body).Decode(&req)
	}

	pattern := req.Pattern
	if pattern == "" {
		pattern = cache.KeyPrefix + "*"
	}
	if !strings.HasPrefix(pattern, cache.KeyPrefix) {
		http.Error(w, "Pattern must target the route cache", http.StatusBadRequest)
		return
	}

	removed, err := a.cache.Sweeper().Purge(r.Context(), pattern)
	if err != nil {
		slog.Error("cache purge failed", "pattern", pattern, "error", err)
		http.Error(w, "Purge failed", http.StatusInternalServerError)
		return
	}

	a.purgeLog.Log("pattern", pattern, removed, actorID(r))

	writeJSON(w, http.StatusOK, purgeResponse{
		Success:     true,
		ClearedKeys: removed,
		Pattern:     pattern,
	})
}

// CacheStats returns the process-lifetime hit/miss counters.
func (a *Admin) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cache.Stats().Snapshot())
}

// CacheLog returns the most recent purge and invalidation audit entries.
func (a *Admin) CacheLog(w http.ResponseWriter, r *http.Request) {
	entries, err := a.purgeLog.Recent(purgeLogLimit)
	if err != nil {
		slog.Error("failed to load purge log", "error", err)
		http.Error(w, "Failed to load purge log", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []store.PurgeLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// actorID returns the authenticated user's id for audit rows, or nil.
func actorID(r *http.Request) *uuid.UUID {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		return nil
	}
	id := sess.UserID
	return &id
}
