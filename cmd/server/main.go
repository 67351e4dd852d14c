package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/tps-identity/internal/api"
	"github.com/dom/tps-identity/internal/api/handlers"
	"github.com/dom/tps-identity/internal/config"
	"github.com/dom/tps-identity/internal/credential"
	"github.com/dom/tps-identity/internal/identity"
	"github.com/dom/tps-identity/internal/logger"
	"github.com/dom/tps-identity/internal/metrics"
	"github.com/dom/tps-identity/internal/repository"
	"github.com/dom/tps-identity/internal/repository/postgres"
	"github.com/dom/tps-identity/internal/service"
	"github.com/dom/tps-identity/internal/token"
	"github.com/dom/tps-identity/internal/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(logger.Config{Level: cfg.LogLevel, Dev: cfg.LogDev})
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	hasher := credential.NewArgon2(credential.DefaultParams())

	// Optional database: hydrate the directory, then mirror every commit.
	var (
		repos    *repository.Repositories
		mirror   *service.Mirror
		hook     identity.CommitHook
		dbPing   handlers.DBPinger
		mirrorCx context.Context
		stopMir  context.CancelFunc
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.NewConnection(cfg.DatabaseURL)
		if err != nil {
			zl.Fatal("failed to connect to database", zap.Error(err))
		}
		repos = postgres.NewRepositories(db)
		mirror = service.NewMirror(repos.User, cfg.MirrorBuffer, zl.Named("mirror"))
		hook = mirror.Hook()
		dbPing = func(ctx context.Context) error { return postgres.Ping(ctx, db) }
	} else {
		zl.Warn("DATABASE_URL not set, users live in memory only")
	}

	dir := identity.NewDirectory(hasher, hook)
	if mirror != nil {
		n, err := mirror.Hydrate(context.Background(), dir)
		if err != nil {
			zl.Fatal("failed to load users", zap.Error(err))
		}
		zl.Info("directory hydrated", zap.Int("users", n))

		mirrorCx, stopMir = context.WithCancel(context.Background())
		go mirror.Run(mirrorCx)
	}
	rec.SetUsers(dir.Len())

	ledger := identity.NewLedger(dir, cfg.ResetTokenTTL)
	if cfg.ResetSweepInterval > 0 {
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		defer stopSweep()
		go service.RunSweeper(sweepCtx, ledger, cfg.ResetSweepInterval, zl.Named("ledger"))
	}
	issuer := token.NewIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL())

	hub := websocket.NewHub(zl.Named("hub"))
	go hub.Run()

	var auditRepo repository.AuditRepository
	if repos != nil {
		auditRepo = repos.Audit
	}
	auditor := service.NewAuditor(hub, auditRepo, zl.Named("audit"))
	services := service.NewServices(dir, ledger, issuer, auditor, rec, zl)

	if cfg.HasBootstrapAdmin() {
		err := services.Auth.BootstrapAdmin(context.Background(), service.RegisterInput{
			Email:    cfg.BootstrapAdminEmail,
			Name:     cfg.BootstrapAdminName,
			Password: cfg.BootstrapAdminPassword,
		})
		if err != nil {
			zl.Fatal("failed to create bootstrap admin", zap.Error(err))
		}
	}

	router := api.NewRouter(api.Deps{
		Services: services,
		Hub:      hub,
		Metrics:  rec,
		Gatherer: reg,
		DBPing:   dbPing,
		Log:      zl,
	})

	// Create server
	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		zl.Info("server starting", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zl.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()

	// No more commits can arrive; flush what is queued.
	if mirror != nil {
		stopMir()
		mirror.Wait()
	}

	zl.Info("server stopped")
}
