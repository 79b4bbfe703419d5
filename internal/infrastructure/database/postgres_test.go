package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/asakaida/kazoku/internal/infrastructure/config"
	"github.com/golang-migrate/migrate/v4"
)

func TestPostgres_Close(t *testing.T) {
	tests := []struct {
		name    string
		pg      *Postgres
		wantErr bool
	}{
		{
			name:    "nil DB",
			pg:      &Postgres{DB: nil},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.pg.Close()
			if (err != nil) != tt.wantErr {
				t.Errorf("Postgres.Close() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPostgres_InvalidConfig(t *testing.T) {
	// Test with invalid configuration that should fail to connect
	cfg := &config.DatabaseConfig{
		Host:     "invalid-host-that-does-not-exist",
		Port:     99999,
		User:     "invalid",
		Password: "invalid",
		Database: "invalid",
		SSLMode:  "disable",
	}

	pg, err := NewPostgres(cfg)
	if err == nil {
		if pg != nil && pg.DB != nil {
			pg.Close()
		}
		t.Error("NewPostgres() with invalid config should return error")
	}
}

func TestNewSQLite_InMemory(t *testing.T) {
	lite, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer lite.Close()

	for _, table := range []string{"members", "relationships"} {
		var name string
		err := lite.DB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("expected table %s to exist: %v", table, err)
		}
	}

	// Schema creation is idempotent
	if _, err := lite.DB.Exec(SQLiteSchema); err != nil {
		t.Errorf("re-applying schema failed: %v", err)
	}
}

func TestSQLite_Close(t *testing.T) {
	if err := (&SQLite{}).Close(); err != nil {
		t.Errorf("SQLite.Close() with nil DB error = %v", err)
	}
}

func TestPostgres_HealthCheck_NotOpen(t *testing.T) {
	err := (&Postgres{}).HealthCheck()
	if err == nil || !strings.Contains(err.Error(), "not open") {
		t.Errorf("HealthCheck() on a closed store error = %v", err)
	}
}

func TestMigrationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "dirty schema",
			err:  migrate.ErrDirty{Version: 2},
			want: "schema is dirty at version 2",
		},
		{
			name: "other failure",
			err:  errors.New("syntax error at or near"),
			want: "failed to run migrations: syntax error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := migrationError(tt.err)
			if !strings.Contains(got.Error(), tt.want) {
				t.Errorf("migrationError() = %q, want it to contain %q", got, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("migrationError() does not wrap %v", tt.err)
			}
		})
	}
}

func TestSQLite_HealthCheck(t *testing.T) {
	lite, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	defer lite.Close()

	if err := lite.HealthCheck(); err != nil {
		t.Fatalf("HealthCheck() on a fresh store error = %v", err)
	}

	if _, err := lite.DB.Exec(`DROP TABLE relationships`); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}
	err = lite.HealthCheck()
	if err == nil {
		t.Fatal("HealthCheck() without the relationships table should fail")
	}
	if !strings.Contains(err.Error(), "relationships") {
		t.Errorf("HealthCheck() error = %v, want it to name the missing table", err)
	}
}
