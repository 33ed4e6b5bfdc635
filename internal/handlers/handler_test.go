// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL or Redis are unavailable.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"galleryd/internal/cache"
	"galleryd/internal/database"
	"galleryd/internal/gallery"
	"galleryd/internal/middleware"
	"galleryd/internal/session"
	"galleryd/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "galleryd")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "galleryd")
	dsn := "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Skipf("skipping: cannot open DB: %v", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("migrate: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// testRedisClient returns a Redis client for handler tests on DB 15.
func testRedisClient(t *testing.T) *redis.Client {
	t.Helper()

	host := envOr("REDIS_HOST", "localhost")
	port := envOr("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: password,
		DB:       15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("skipping: Redis not reachable: %v", err)
	}

	t.Cleanup(func() {
		for _, pattern := range []string{"route_cache:*", "route_tags:*", "views:*", "session:*"} {
			keys, _ := client.Keys(ctx, pattern).Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
		}
		client.Close()
	})

	return client
}

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB       *sql.DB
	Redis    *redis.Client
	Root     string
	Library  *gallery.Library
	Views    *gallery.Views
	Cache    *cache.State
	Settings *store.SettingsStore
	PurgeLog *store.PurgeLogStore
	API      *API
	Admin    *Admin
}

// newTestEnv creates a complete test environment: a temporary media tree,
// a Redis-backed route cache, and the Postgres stores.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	rc := testRedisClient(t)

	root := t.TempDir()
	writeTestPNG(t, filepath.Join(root, "alpha.png"), 8, 8)
	writeTestPNG(t, filepath.Join(root, "vacation", "boat.png"), 8, 8)
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not an image"), 0o644); err != nil {
		t.Fatalf("fixture: %v", err)
	}

	library, err := gallery.NewLibrary(root)
	if err != nil {
		t.Fatalf("NewLibrary: %v", err)
	}
	views := gallery.NewViews(rc)
	thumbs := gallery.NewThumbnailer(library, 64)

	state := cache.NewState(cache.NewRedisBackend(rc), time.Minute, middleware.UserIDFromRequest)
	state.Start()
	t.Cleanup(state.Stop)

	settings := store.NewSettingsStore(db)
	purgeLog := store.NewPurgeLogStore(db)

	return &testEnv{
		DB:       db,
		Redis:    rc,
		Root:     root,
		Library:  library,
		Views:    views,
		Cache:    state,
		Settings: settings,
		PurgeLog: purgeLog,
		API:      NewAPI(library, views, thumbs, state, settings, purgeLog),
		Admin:    NewAdmin(state, purgeLog),
	}
}

// writeTestPNG writes a solid-color PNG fixture, creating parent directories.
func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("fixture dir: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
}

// ctxWithSession adds session data to a context using the middleware key.
func ctxWithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, middleware.SessionKey, data)
}

// adminSession creates session data for an admin user.
func adminSession() *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		DisplayName: "Test Admin",
		Role:        "admin",
		CreatedAt:   time.Now(),
	}
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
