package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/asakaida/kazoku/internal/app"
	"github.com/asakaida/kazoku/internal/handlers"
	"github.com/asakaida/kazoku/internal/infrastructure/config"
	"github.com/asakaida/kazoku/internal/infrastructure/database"
	"github.com/asakaida/kazoku/internal/infrastructure/metrics"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

// E2ETestServer is a full server stack served over an in-memory listener
type E2ETestServer struct {
	Server    *grpc.Server
	Client    *handlers.RelationshipServiceClient
	Health    healthpb.HealthClient
	Collector *metrics.Collector
	Engine    *app.App
	Conn      *grpc.ClientConn
	Listener  *bufconn.Listener
}

// SetupE2ETest wires the engine exactly as cmd/server does.
// It runs on an in-memory SQLite store unless E2E_STORE=postgres, in which
// case the "test" environment's database is migrated and emptied first.
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()

	cfg := &config.Config{
		Store: config.StoreConfig{Driver: config.DriverSQLite, SQLiteDSN: ":memory:"},
		Cache: config.CacheConfig{Enabled: true, MaxEntries: 1000, TTLMinutes: 5},
	}
	if os.Getenv("E2E_STORE") == config.DriverPostgres {
		cfg = setupPostgres(t)
	}

	collector := metrics.NewCollector()
	engine, err := app.New(cfg, collector, app.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err, "failed to initialize engine")

	handler := handlers.NewRelationshipHandler(engine.Store, engine.Transfer, engine.Members, zaptest.NewLogger(t))

	// Create in-memory gRPC server with bufconn
	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.UnaryInterceptor(metrics.UnaryServerInterceptor(collector, nil)))
	handlers.RegisterRelationshipServiceServer(server, handler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(handlers.ServiceName, healthpb.HealthCheckResponse_SERVING)

	// Start server in background
	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	// Create client connection
	bufDialer := func(ctx context.Context, _ string) (net.Conn, error) {
		return listener.DialContext(ctx)
	}
	conn, err := grpc.NewClient(
		"passthrough://bufconn",
		grpc.WithContextDialer(bufDialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		server.Stop()
		_ = engine.Close()
		t.Fatalf("failed to create client connection: %v", err)
	}

	return &E2ETestServer{
		Server:    server,
		Client:    handlers.NewRelationshipServiceClient(conn),
		Health:    healthpb.NewHealthClient(conn),
		Collector: collector,
		Engine:    engine,
		Conn:      conn,
		Listener:  listener,
	}
}

func setupPostgres(t *testing.T) *config.Config {
	t.Helper()

	require.NoError(t, config.InitConfig("test"))
	cfg, err := config.Load()
	if err != nil {
		t.Skipf("PostgreSQL test config unavailable: %v", err)
	}
	cfg.Store.Driver = config.DriverPostgres

	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("PostgreSQL test database unreachable: %v", err)
	}
	defer pg.Close()

	projectRoot, err := findProjectRoot()
	require.NoError(t, err)
	require.NoError(t, pg.RunMigrations(filepath.Join(projectRoot, "internal/infrastructure/database/migrations/postgres")))
	cleanupDatabase(t, pg.DB)

	return cfg
}

// Teardown cleans up the E2E test environment
func (e *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if e.Conn != nil {
		e.Conn.Close()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Listener != nil {
		e.Listener.Close()
	}
	if e.Engine != nil {
		if err := e.Engine.Close(); err != nil {
			t.Logf("warning: failed to close engine: %v", err)
		}
	}
}

// WaitForServer waits until the health service reports SERVING
func (e *E2ETestServer) WaitForServer(t *testing.T, timeout time.Duration) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		resp, err := e.Health.Check(ctx, &healthpb.HealthCheckRequest{Service: handlers.ServiceName})
		if err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING {
			return
		}
		select {
		case <-ctx.Done():
			t.Fatal("timeout waiting for server to be ready")
		case <-ticker.C:
		}
	}
}

// cleanupDatabase removes all data from test database
func cleanupDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Delete in correct order due to foreign key constraints
	tables := []string{"relationships", "members"}
	for _, table := range tables {
		query := fmt.Sprintf("DELETE FROM %s", table)
		if _, err := db.ExecContext(ctx, query); err != nil {
			t.Logf("warning: failed to clean up table %s: %v", table, err)
		}
	}
}

// findProjectRoot finds the project root directory by looking for go.mod
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("project root not found")
		}
		dir = parent
	}
}

func body(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}
