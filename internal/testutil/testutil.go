package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"studypilot/backend/internal/repository/postgres"
)

// NewTestDB opens an in-memory SQLite database with all migrations applied.
// The connection is closed when the test finishes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// A single connection keeps the in-memory database alive and
	// serializes writers, matching production SQLite settings.
	db.SetMaxOpenConns(1)

	if err := postgres.Migrate(db, "sqlite"); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}
