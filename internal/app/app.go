// Package app assembles the relationship engine from configuration: the
// store backend, the member lookup cache, the graph store and the transfer
// service. Both the gRPC server and the operator CLI start from here.
package app

import (
	"fmt"
	"time"

	"github.com/asakaida/kazoku/internal/infrastructure/config"
	"github.com/asakaida/kazoku/internal/infrastructure/database"
	"github.com/asakaida/kazoku/internal/infrastructure/logger"
	"github.com/asakaida/kazoku/internal/infrastructure/metrics"
	"github.com/asakaida/kazoku/internal/repositories"
	"github.com/asakaida/kazoku/internal/repositories/cached"
	"github.com/asakaida/kazoku/internal/repositories/postgres"
	sqliterepo "github.com/asakaida/kazoku/internal/repositories/sqlite"
	"github.com/asakaida/kazoku/internal/services/relationship"
	"github.com/asakaida/kazoku/internal/services/transfer"
	"github.com/asakaida/kazoku/pkg/cache/memorycache"
	"go.uber.org/zap"
)

// App holds the wired engine
type App struct {
	Members   repositories.MemberDirectory
	Store     *relationship.GraphStore
	Transfer  *transfer.Service
	Collector *metrics.Collector

	healthCheck func() error
	closers     []func() error
	logger      *zap.Logger
}

// Option configures New
type Option func(*options)

type options struct {
	exporter *metrics.PrometheusExporter
	logger   *zap.Logger
}

// WithExporter also sends engine events to Prometheus
func WithExporter(e *metrics.PrometheusExporter) Option {
	return func(o *options) { o.exporter = e }
}

// WithLogger sets the logger handed to every component
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New opens the configured store and wires the engine on top of it.
// collector may be nil.
func New(cfg *config.Config, collector *metrics.Collector, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}

	a := &App{
		Collector: collector,
		logger:    logger.OrNop(o.logger),
	}

	relationships, members, err := a.openStore(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		ttl := time.Duration(cfg.Cache.TTLMinutes) * time.Minute
		memberCache, err := memorycache.New(&memorycache.Config{
			MaxEntries:    cfg.Cache.MaxEntries,
			DefaultTTL:    ttl,
			EnableMetrics: true,
		})
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to create member cache: %w", err)
		}
		a.closers = append(a.closers, memberCache.Close)
		collector.SetCache(memberCache)
		members = cached.NewMemberDirectory(members, memberCache, ttl)

		a.logger.Info("member cache enabled",
			zap.Int("max_entries", cfg.Cache.MaxEntries),
			zap.Duration("ttl", ttl),
		)
	}

	recorder := metrics.NewRecorder(collector, o.exporter)

	a.Members = members
	a.Store = relationship.NewGraphStore(relationships, members,
		relationship.WithLogger(a.logger),
		relationship.WithEventRecorder(recorder),
	)
	importer := transfer.NewImporter(a.Store, members,
		transfer.WithBirthDateCorrection(cfg.Import.CorrectBirthDates),
		transfer.WithLogger(a.logger),
		transfer.WithEventRecorder(recorder),
	)
	a.Transfer = transfer.NewService(importer, a.Store, members, a.logger)

	return a, nil
}

func (a *App) openStore(cfg *config.Config) (repositories.RelationshipRepository, repositories.MemberDirectory, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		lite, err := database.NewSQLite(cfg.Store.SQLiteDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, lite.Close)
		a.healthCheck = lite.HealthCheck
		a.logger.Info("using sqlite store", zap.String("dsn", cfg.Store.SQLiteDSN))
		return sqliterepo.NewRelationshipRepository(lite.DB), sqliterepo.NewMemberRepository(lite.DB), nil

	case config.DriverPostgres, "":
		pg, err := database.NewPostgres(&cfg.Database, database.WithLogger(a.logger))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		a.healthCheck = pg.HealthCheck
		a.logger.Info("connected to database",
			zap.String("user", cfg.Database.User),
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Database),
		)
		return postgres.NewPostgresRelationshipRepository(pg.DB), postgres.NewPostgresMemberRepository(pg.DB), nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// HealthCheck pings the store
func (a *App) HealthCheck() error {
	if a.healthCheck == nil {
		return fmt.Errorf("store is not open")
	}
	return a.healthCheck()
}

// Close releases the cache and the store, in reverse order of acquisition
func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
