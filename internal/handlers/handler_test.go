// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler integration
// tests. Tests are skipped when PostgreSQL is unavailable; the listing cache
// runs on miniredis.
package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/redis/go-redis/v9"

	"csdoc/internal/cache"
	"csdoc/internal/catalog"
	"csdoc/internal/category"
	"csdoc/internal/content"
	"csdoc/internal/database"
	"csdoc/internal/ingest"
	"csdoc/internal/ledger"
	"csdoc/internal/listing"
	"csdoc/internal/store"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testDB opens a connection to the test PostgreSQL and runs migrations.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "csdoc")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "csdoc")
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

// testEnv holds all dependencies for handler integration tests.
type testEnv struct {
	DB         *sql.DB
	Tree       *category.Tree
	Catalog    *catalog.Catalog
	Listings   *listing.Engine
	Categories *Categories
	Posts      *Posts
}

// newTestEnv wires the services against the test database.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testDB(t)
	logger := discardLogger()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	bodies, err := content.New(t.TempDir())
	if err != nil {
		t.Fatalf("content.New: %v", err)
	}

	tx := store.NewTxManager(db)
	categoryStore := store.NewCategoryStore(db)
	postStore := store.NewPostStore(db)
	versionStore := store.NewVersionStore(db)

	tree := category.New(categoryStore, tx, logger, false)
	cat := catalog.New(postStore, bodies, ledger.New(versionStore), tree, tx, nil, logger)
	listings := listing.New(postStore, tree, versionStore,
		cache.NewListingCache(client, time.Minute, logger), logger)

	return &testEnv{
		DB:         db,
		Tree:       tree,
		Catalog:    cat,
		Listings:   listings,
		Categories: NewCategories(tree, listings, logger),
		Posts:      NewPosts(cat, listings, ingest.New(nil, logger), logger),
	}
}

// testCategoryID creates a root category and removes it, its posts and
// their versions when the test finishes.
func testCategoryID(t *testing.T, env *testEnv) int64 {
	t.Helper()
	c, err := env.Tree.Create(context.Background(), "handler-"+uuid.NewString()[:8], nil)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	t.Cleanup(func() {
		env.DB.Exec(`DELETE FROM post_versions WHERE post_id IN (SELECT id FROM posts WHERE category_id = $1)`, c.ID)
		env.DB.Exec(`DELETE FROM posts WHERE category_id = $1`, c.ID)
		env.DB.Exec(`DELETE FROM categories WHERE parent_id = $1`, c.ID)
		env.DB.Exec(`DELETE FROM categories WHERE id = $1`, c.ID)
	})
	return c.ID
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest builds a request with a JSON-encoded body.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeBody decodes a recorder's JSON body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}
