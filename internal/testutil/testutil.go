package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dom/tps-identity/internal/api"
	"github.com/dom/tps-identity/internal/config"
	"github.com/dom/tps-identity/internal/credential"
	"github.com/dom/tps-identity/internal/identity"
	"github.com/dom/tps-identity/internal/metrics"
	repoPostgres "github.com/dom/tps-identity/internal/repository/postgres"
	"github.com/dom/tps-identity/internal/service"
	"github.com/dom/tps-identity/internal/token"
	"github.com/dom/tps-identity/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// FastHashParams keeps Argon2 cheap enough for tests that hash in loops.
var FastHashParams = credential.Params{
	Memory:     1024,
	Iterations: 1,
	Threads:    1,
	SaltLength: 16,
	KeyLength:  32,
}

// NewHasher returns an Argon2 hasher using FastHashParams.
func NewHasher() *credential.Argon2 {
	return credential.NewArgon2(FastHashParams)
}

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a migrated
// connection. It skips in -short mode since it needs Docker.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_identity"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	if err := repoPostgres.Migrate(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"audit_events",
		"users",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:               "0", // Random port
		Environment:        "test",
		JWTSecret:          "test-jwt-secret-key-for-testing-only",
		JWTExpirationHours: 1,
		ResetTokenTTL:      time.Hour,
		MirrorBuffer:       16,
	}
}

// Clock is a settable time source shared by the issuer and the ledger.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server    *httptest.Server
	Directory *identity.Directory
	Ledger    *identity.Ledger
	Issuer    *token.Issuer
	Services  *service.Services
	Hub       *websocket.Hub
	Config    *config.Config
	Registry  *prometheus.Registry
	Logs      *observer.ObservedLogs
	Clock     *Clock
}

// NewTestServer creates a complete in-memory test server. Logs at info and
// above are captured in Logs, which is how tests read issued reset tokens.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	cfg := TestConfig()
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	clock := &Clock{now: time.Now()}
	reg := prometheus.NewRegistry()
	rec := metrics.NewCollector(reg)

	dir := identity.NewDirectory(NewHasher(), nil)
	ledger := identity.NewLedger(dir, cfg.ResetTokenTTL).WithClock(clock.Now)
	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL()).WithClock(clock.Now)

	hub := websocket.NewHub(log)
	go hub.Run()

	auditor := service.NewAuditor(hub, nil, log)
	services := service.NewServices(dir, ledger, issuer, auditor, rec, log)
	router := api.NewRouter(api.Deps{
		Services: services,
		Hub:      hub,
		Metrics:  rec,
		Gatherer: reg,
		Log:      log,
	})

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:    server,
		Directory: dir,
		Ledger:    ledger,
		Issuer:    issuer,
		Services:  services,
		Hub:       hub,
		Config:    cfg,
		Registry:  reg,
		Logs:      logs,
		Clock:     clock,
	}

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api/v1%s", ts.Server.URL, path)
}

// EventsURL returns the audit websocket URL with token
func (ts *TestServer) EventsURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	return fmt.Sprintf("%s/api/v1/admin/events?token=%s", wsURL, token)
}

// LastResetToken returns the most recent reset token written to the
// operator log, or "" if none was issued.
func (ts *TestServer) LastResetToken() string {
	entries := ts.Logs.FilterMessage("password reset token issued").All()
	if len(entries) == 0 {
		return ""
	}
	fields := entries[len(entries)-1].ContextMap()
	tok, _ := fields["reset_token"].(string)
	return tok
}
