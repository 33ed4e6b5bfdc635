// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the HTTP handlers for the gallery server.
// Handlers are grouped by concern (public API, admin) and receive their
// dependencies through the handler struct.
package handlers

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"galleryd/internal/cache"
	"galleryd/internal/gallery"
	"galleryd/internal/middleware"
	"galleryd/internal/store"
)

// API groups the public gallery API handlers and their dependencies.
type API struct {
	library  *gallery.Library
	views    *gallery.Views
	thumbs   *gallery.Thumbnailer
	cache    *cache.State
	settings *store.SettingsStore
	purgeLog *store.PurgeLogStore
}

// NewAPI creates the API handler group.
func NewAPI(library *gallery.Library, views *gallery.Views, thumbs *gallery.Thumbnailer, cacheState *cache.State, settings *store.SettingsStore, purgeLog *store.PurgeLogStore) *API {
	return &API{
		library:  library,
		views:    views,
		thumbs:   thumbs,
		cache:    cacheState,
		settings: settings,
		purgeLog: purgeLog,
	}
}

// browseResponse is the JSON shape of a directory listing.
type browseResponse struct {
	Path    string          `json:"path"`
	Entries []gallery.Entry `json:"entries"`
}

// Browse lists one album directory. The sort parameter selects the order;
// viewed_desc and smart consult the requester's personal view counts, which
// is why those listings cache per identity bucket.
func (a *API) Browse(w http.ResponseWriter, r *http.Request) {
	rel := "/" + chi.URLParam(r, "*")
	order := r.URL.Query().Get("sort")

	var views map[string]int64
	if order == "viewed_desc" || order == "smart" {
		views = a.views.Counts(r.Context(), viewBucket(r))
	}

	entries, err := a.library.List(rel, order, views)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "Album not found", http.StatusNotFound)
			return
		}
		slog.Error("browse failed", "path", rel, "error", err)
		http.Error(w, "Failed to list album", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, browseResponse{Path: rel, Entries: entries})
}

// searchResponse is the JSON shape of a filename search.
type searchResponse struct {
	Query   string          `json:"query"`
	Entries []gallery.Entry `json:"entries"`
}

// Search returns library entries whose name contains q, case-insensitive.
func (a *API) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "Missing q parameter", http.StatusBadRequest)
		return
	}

	entries, err := a.library.Search(query)
	if err != nil {
		slog.Error("search failed", "query", query, "error", err)
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, searchResponse{Query: query, Entries: entries})
}

// Thumbnail renders a bounded JPEG thumbnail for one media item and counts
// the view for the requester's bucket. The response is binary, so cache
// hits replay it from a base64 envelope.
func (a *API) Thumbnail(w http.ResponseWriter, r *http.Request) {
	itemPath := r.URL.Query().Get("path")
	if itemPath == "" {
		http.Error(w, "Missing path parameter", http.StatusBadRequest)
		return
	}

	data, err := a.thumbs.Render(itemPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		slog.Warn("thumbnail render failed", "path", itemPath, "error", err)
		http.Error(w, "Cannot render thumbnail", http.StatusUnprocessableEntity)
		return
	}

	a.views.Record(r.Context(), viewBucket(r), itemPath)

	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// SettingsGet returns every gallery setting as a JSON object.
func (a *API) SettingsGet(w http.ResponseWriter, r *http.Request) {
	settings, err := a.settings.All()
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// SettingsPut upserts the posted settings and invalidates every cached
// response tagged "settings" so the next read reflects the change.
func (a *API) SettingsPut(w http.ResponseWriter, r *http.Request) {
	var updates map[string]string
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if len(updates) == 0 {
		http.Error(w, "No settings provided", http.StatusBadRequest)
		return
	}

	for key, value := range updates {
		if err := a.settings.Set(key, value); err != nil {
			slog.Error("failed to save setting", "key", key, "error", err)
			http.Error(w, "Failed to save settings", http.StatusInternalServerError)
			return
		}
	}

	removed, err := a.cache.Tags().InvalidateTag(r.Context(), "settings")
	if err != nil {
		// The write succeeded; entries age out on TTL. Report, don't fail.
		slog.Warn("settings tag invalidation failed", "error", err)
	}
	a.purgeLog.Log("tag", "settings", removed, actorID(r))

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "updated": len(updates)})
}

// ItemDelete removes one media file and invalidates every cached listing
// and thumbnail that depended on it.
func (a *API) ItemDelete(w http.ResponseWriter, r *http.Request) {
	itemPath := r.URL.Query().Get("path")
	if itemPath == "" {
		http.Error(w, "Missing path parameter", http.StatusBadRequest)
		return
	}

	if err := a.library.Remove(itemPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "Item not found", http.StatusNotFound)
			return
		}
		slog.Error("item delete failed", "path", itemPath, "error", err)
		http.Error(w, "Failed to delete item", http.StatusInternalServerError)
		return
	}

	var removed int64
	for _, tag := range cache.DeriveItemTags(itemPath) {
		n, err := a.cache.Tags().InvalidateTag(r.Context(), tag)
		if err != nil {
			slog.Warn("item tag invalidation failed", "tag", tag, "error", err)
			continue
		}
		removed += n
	}
	a.purgeLog.Log("item", itemPath, removed, actorID(r))

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "invalidated": removed})
}

// viewBucket names the per-identity view-count bucket for a request,
// mirroring the cache's partitioning: authenticated users get their own
// counts, everyone else shares the public bucket.
func viewBucket(r *http.Request) string {
	if uid := middleware.UserIDFromRequest(r); uid != "" {
		return "user:" + uid
	}
	return cache.BucketPublic
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
