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

	"presently/internal/database"
	"presently/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with defaults matching docker-compose.yml.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "presently")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "presently")
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

	if _, err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testUser inserts a throwaway user and removes it (with everything it
// owns) when the test finishes.
func testUser(t *testing.T, db *sql.DB, email string) *models.User {
	t.Helper()
	db.Exec("DELETE FROM content_items WHERE owner_id IN (SELECT id FROM users WHERE email = $1)", email)
	db.Exec("DELETE FROM users WHERE email = $1", email)

	u, err := NewUserStore(db).UpsertGoogle(context.Background(), "sub-"+email, email, "Test User", nil)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() { cleanUsers(t, db, email) })
	return u
}

// cleanUsers removes test users and their content by email. Call in t.Cleanup().
func cleanUsers(t *testing.T, db *sql.DB, emails ...string) {
	t.Helper()
	for _, email := range emails {
		db.Exec("DELETE FROM content_items WHERE owner_id IN (SELECT id FROM users WHERE email = $1)", email)
		db.Exec("DELETE FROM users WHERE email = $1", email)
	}
}

// newItem returns a fresh item at status new owned by owner.
func newItem(owner uuid.UUID) *models.ContentItem {
	now := fixedTime()
	return &models.ContentItem{
		ID:      uuid.New(),
		Title:   "Gifts for tea lovers",
		Status:  models.StatusNew,
		OwnerID: owner,
		Theme: models.Theme{
			Occasion: "birthday", Interest: "tea", AgeGroup: "adults",
			BudgetRange: "20-50", Style: "cozy",
		},
		AuditLog:  []models.AuditEntry{{Action: models.ActionCreated, Actor: owner.String(), Timestamp: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
