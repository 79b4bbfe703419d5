package database

import (
	"context"
	"database/sql"
	"fmt"
)

// storeTables are the tables every store backend must provide
var storeTables = []string{"members", "relationships"}

// checkStore pings db and probes each store table with an empty read.
// The probe is plain SQL so it runs unchanged on PostgreSQL and SQLite.
func checkStore(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("database is not open")
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	for _, table := range storeTables {
		var n int
		if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE 1 = 0").Scan(&n); err != nil {
			return fmt.Errorf("table %s is not available (run migrations?): %w", table, err)
		}
	}
	return nil
}
