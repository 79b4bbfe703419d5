package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteSchema mirrors the PostgreSQL migrations for the embedded backend
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS members (
    id          TEXT PRIMARY KEY,
    first_name  TEXT NOT NULL DEFAULT '',
    last_name   TEXT NOT NULL DEFAULT '',
    birth_date  TEXT NULL,
    death_date  TEXT NULL,
    created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_members_name ON members (first_name, last_name);

CREATE TABLE IF NOT EXISTS relationships (
    id              TEXT PRIMARY KEY,
    from_member_id  TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    to_member_id    TEXT NOT NULL REFERENCES members(id) ON DELETE CASCADE,
    kind            TEXT NOT NULL CHECK (kind IN ('parent', 'child', 'spouse', 'sibling')),
    sibling_type    TEXT NULL CHECK (sibling_type IN ('full', 'half')),
    created_at      TEXT NOT NULL,
    CHECK (from_member_id <> to_member_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_relationships_unique
    ON relationships (from_member_id, to_member_id, kind);
CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships (to_member_id);
`

// SQLite represents an embedded SQLite connection
type SQLite struct {
	DB *sql.DB
}

// NewSQLite opens a SQLite database, configures it and creates the schema.
// Use ":memory:" for a throwaway database.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single connection also keeps
	// ":memory:" databases alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLite{DB: db}, nil
}

// HealthCheck pings the database and checks the schema is in place
func (s *SQLite) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	if err := checkStore(ctx, s.DB); err != nil {
		return fmt.Errorf("sqlite health check failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}
