package postgres

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/asakaida/kazoku/internal/infrastructure/config"
	"github.com/asakaida/kazoku/internal/infrastructure/database"
	_ "github.com/lib/pq"
)

// SetupTestDB creates a test database connection and runs migrations.
// The test is skipped when no test database is configured or reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping PostgreSQL integration test in short mode")
	}

	// Initialize test config
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("PostgreSQL test config unavailable: %v", err)
	}

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("PostgreSQL test database unreachable: %v", err)
	}

	// Run migrations
	if err := pg.RunMigrations("../../../internal/infrastructure/database/migrations/postgres"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return pg.DB
}

// CleanupTestDB closes the database connection and cleans up test data
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	// Relationships first, they reference members
	tables := []string{"relationships", "members"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("Warning: Failed to clean up table %s: %v", table, err)
		}
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}

// seedMembers inserts members with fixed IDs for relationship tests
func seedMembers(t *testing.T, db *sql.DB, ids ...string) {
	t.Helper()

	for _, id := range ids {
		_, err := db.Exec(
			`INSERT INTO members (id, first_name, last_name) VALUES ($1, $2, $3) ON CONFLICT (id) DO NOTHING`,
			id, id, "Test",
		)
		if err != nil {
			t.Fatalf("Failed to seed member %s: %v", id, err)
		}
	}
}
