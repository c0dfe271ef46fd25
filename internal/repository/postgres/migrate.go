package postgres

import (
	"database/sql"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"studypilot/backend/migrations"
)

// Migrate applies the embedded SQL migrations in filename order. Applied
// migrations are tracked in a schema_migrations table and skipped on rerun.
func Migrate(db *sql.DB, driver string) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name VARCHAR(255) PRIMARY KEY,
			executed_at BIGINT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrations.GetFS(), ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var applied int
		err := db.QueryRow(
			rebind(driver, "SELECT COUNT(*) FROM schema_migrations WHERE name = ?"), name,
		).Scan(&applied)
		if err != nil {
			return fmt.Errorf("failed to check migration %s: %w", name, err)
		}
		if applied > 0 {
			continue
		}

		content, err := fs.ReadFile(migrations.GetFS(), name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}

		if _, err := db.Exec(
			rebind(driver, "INSERT INTO schema_migrations (name, executed_at) VALUES (?, ?)"),
			name, time.Now().UTC().Unix(),
		); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", name, err)
		}
	}

	return nil
}
