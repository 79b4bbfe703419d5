package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/kazoku/internal/infrastructure/config"
	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// MigrationsTable records the applied schema version of the kazoku tables
const MigrationsTable = "kazoku_schema_migrations"

// healthTimeout bounds one HealthCheck, ping and table probes together
const healthTimeout = 5 * time.Second

// Postgres represents PostgreSQL connection
type Postgres struct {
	DB     *sql.DB
	logger *zap.Logger
}

// Option configures a Postgres connection
type Option func(*Postgres)

// WithLogger sets the logger used for schema migrations
func WithLogger(l *zap.Logger) Option {
	return func(p *Postgres) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPostgres creates a new PostgreSQL connection
func NewPostgres(cfg *config.DatabaseConfig, opts ...Option) (*Postgres, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}

	p := &Postgres{DB: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewMigrateDriver wraps an open connection as a golang-migrate database driver
func NewMigrateDriver(db *sql.DB) (migratedb.Driver, error) {
	return postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
}

// RunMigrations applies every pending migration under migrationsPath and
// logs the schema version it moved from and to.
// The migrate instance is not closed: that would close p.DB with it.
func (p *Postgres) RunMigrations(migrationsPath string) error {
	driver, err := NewMigrateDriver(p.DB)
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	before, err := schemaVersion(m)
	if err != nil {
		return migrationError(err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			p.logger.Debug("schema is up to date", zap.Uint("version", before))
			return nil
		}
		return migrationError(err)
	}

	after, err := schemaVersion(m)
	if err != nil {
		return migrationError(err)
	}
	p.logger.Info("schema migrated",
		zap.String("path", migrationsPath),
		zap.Uint("from_version", before),
		zap.Uint("to_version", after),
	)
	return nil
}

// schemaVersion returns 0 for a database without any applied migration
func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if dirty {
		return 0, migrate.ErrDirty{Version: int(version)}
	}
	return version, nil
}

// migrationError points a dirty schema at the migrate command that repairs it
func migrationError(err error) error {
	var dirty migrate.ErrDirty
	if errors.As(err, &dirty) {
		return fmt.Errorf("schema is dirty at version %d, repair it by hand and run `migrate force`: %w",
			dirty.Version, err)
	}
	return fmt.Errorf("failed to run migrations: %w", err)
}

// HealthCheck pings the server and checks the members and relationships tables exist
func (p *Postgres) HealthCheck() error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	if err := checkStore(ctx, p.DB); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	if p.DB != nil {
		return p.DB.Close()
	}
	return nil
}
