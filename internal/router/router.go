// Package router sets up all HTTP routes and middleware chains for the
// gallery server. It organizes routes into the public API and the admin
// cache-control group with appropriate middleware stacks.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"galleryd/internal/cache"
	"galleryd/internal/handlers"
	"galleryd/internal/middleware"
)

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(sessions middleware.SessionReader, cacheState *cache.State, api *handlers.API, admin *handlers.Admin) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(sessions))

	// Health check — never cached, never authenticated.
	r.Get("/health", healthHandler)

	// Public API. The route cache wraps the whole group; non-GET requests
	// pass through it untouched.
	r.Route("/api", func(r chi.Router) {
		r.Use(cacheState.Middleware)

		r.Get("/browse", api.Browse)
		r.Get("/browse/*", api.Browse)
		r.Get("/search", api.Search)
		r.Get("/thumbnail", api.Thumbnail)
		r.Get("/settings", api.SettingsGet)

		// Mutations — admin only.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Put("/settings", api.SettingsPut)
			r.Delete("/items", api.ItemDelete)
		})
	})

	// Cache administration — admin only, never cached.
	r.Route("/admin/cache", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)

		r.Post("/purge", admin.CachePurge)
		r.Get("/stats", admin.CacheStats)
		r.Get("/log", admin.CacheLog)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
