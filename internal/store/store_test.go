// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"csdoc/internal/database"
	"csdoc/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "csdoc")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "csdoc")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped. A cleanup
// function is registered to close the connection when the test finishes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	goose.SetBaseFS(nil)

	t.Cleanup(func() { db.Close() })
	return db
}

// uniqueLabel returns a label no other test run will use.
func uniqueLabel(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// testCategory inserts a root category and removes it (and its posts) when
// the test finishes.
func testCategory(t *testing.T, db *sql.DB, parentID *int64) *models.Category {
	t.Helper()
	s := NewCategoryStore(db)
	depth := 0
	if parentID != nil {
		parent, err := s.FindByID(context.Background(), *parentID)
		if err != nil || parent == nil {
			t.Fatalf("parent %d: %v", *parentID, err)
		}
		depth = parent.Depth + 1
	}
	c, err := s.Create(context.Background(), &models.Category{
		Label:    uniqueLabel("cat"),
		ParentID: parentID,
		Depth:    depth,
	})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM posts WHERE category_id = $1", c.ID)
		db.Exec("DELETE FROM categories WHERE id = $1", c.ID)
	})
	return c
}

// cleanPosts removes test posts and their versions. Call in t.Cleanup().
func cleanPosts(t *testing.T, db *sql.DB, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		db.Exec("DELETE FROM posts WHERE id = $1", id)
		db.Exec("DELETE FROM post_versions WHERE post_id = $1", id)
	}
}

func TestTxManager_RollbackOnError(t *testing.T) {
	db := testDB(t)
	tm := NewTxManager(db)
	cs := NewCategoryStore(db)
	ctx := context.Background()
	label := uniqueLabel("rollback")

	errBoom := sql.ErrConnDone
	err := tm.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := cs.Create(ctx, &models.Category{Label: label}); err != nil {
			return err
		}
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("ExecTx err = %v, want %v", err, errBoom)
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM categories WHERE label = $1", label).Scan(&n)
	if n != 0 {
		t.Errorf("category persisted despite rollback")
	}
}

func TestTxManager_NestedJoinsOuter(t *testing.T) {
	db := testDB(t)
	tm := NewTxManager(db)
	cs := NewCategoryStore(db)
	ctx := context.Background()
	label := uniqueLabel("nested")
	t.Cleanup(func() { db.Exec("DELETE FROM categories WHERE label = $1", label) })

	err := tm.ExecTx(ctx, func(ctx context.Context) error {
		return tm.ExecTx(ctx, func(ctx context.Context) error {
			_, err := cs.Create(ctx, &models.Category{Label: label})
			return err
		})
	})
	if err != nil {
		t.Fatalf("ExecTx: %v", err)
	}

	var n int
	db.QueryRow("SELECT COUNT(*) FROM categories WHERE label = $1", label).Scan(&n)
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
