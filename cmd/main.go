package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
	"github.com/rs/zerolog"

	"cafe/internal/access"
	"cafe/internal/api"
	"cafe/internal/auth"
	"cafe/internal/cache"
	"cafe/internal/config"
	"cafe/internal/database"
	"cafe/internal/logger"
	"cafe/internal/monitoring"
	"cafe/internal/service"
)

var configFile = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("cafe", cfg.Log.Level, cfg.Log.Pretty)
	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("cafe stopped")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	// Initialize context
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize database
	db, err := initializeDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close()

	// Access policy
	policy, err := loadPolicy(cfg.Auth.PermissionsFile, log)
	if err != nil {
		return err
	}

	// Identity
	tokens, err := auth.NewTokenMaker(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(db, tokens, policy)
	created, err := authSvc.EnsureBootstrapUser(ctx, cfg.Auth.BootstrapUsername, cfg.Auth.BootstrapPassword)
	if err != nil {
		return fmt.Errorf("failed to create bootstrap user: %w", err)
	}
	if created {
		log.Warn().Str("username", cfg.Auth.BootstrapUsername).Msg("bootstrap admin created, change its password")
	}

	// Menu cache
	menuCache, closeCache := initializeCache(ctx, cfg.Redis, log)
	defer closeCache()

	// Initialize metrics collector
	metrics := monitoring.NewMetrics()

	deps := service.Deps{
		DB:      db,
		Gate:    access.NewGate(policy),
		Metrics: metrics,
		Log:     log,
	}

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize API server
	cafe := api.NewCafeAPI(api.Services{
		Catalog:      service.NewCatalog(deps, menuCache),
		Tables:       service.NewTables(deps),
		Reservations: service.NewReservations(deps),
		Orders:       service.NewOrders(deps),
		Payments:     service.NewPayments(deps),
		Auth:         authSvc,
	}, log, metrics)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: cafe.Router,
	}
	metricsServer := newMetricsServer(cfg.Server.MetricsPort, metrics)

	errs := make(chan error, 2)
	go serve(server, "api", log, errs)
	go serve(metricsServer, "metrics", log, errs)

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down servers")
	case err := <-errs:
		cancel()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("API server shutdown error")
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown error")
	}
	return nil
}

func serve(server *http.Server, name string, log zerolog.Logger, errs chan<- error) {
	log.Info().Str("server", name).Str("addr", server.Addr).Msg("starting server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs <- fmt.Errorf("%s server: %w", name, err)
	}
}

func initializeDB(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := database.Open(database.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		LogQueries:   cfg.Database.LogQueries,
	}, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := database.SeedStatuses(db, cfg.Statuses.Table, cfg.Statuses.Order); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func loadPolicy(path string, log zerolog.Logger) (*access.RolePolicy, error) {
	if path == "" {
		log.Info().Msg("no permissions file configured, using built-in roles")
		return access.DefaultPolicy(), nil
	}
	policy, err := access.LoadRolePolicy(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions from %s: %w", path, err)
	}
	return policy, nil
}

// initializeCache connects to redis when enabled. An unreachable server is
// logged and the catalog runs uncached.
func initializeCache(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (cache.Cache, func()) {
	if !cfg.Enabled {
		return cache.Nop{}, func() {}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	r, err := cache.NewRedis(pingCtx, cfg.Addr, cfg.TTL, cache.WithPassword(cfg.Password), cache.WithDB(cfg.DB))
	if err != nil {
		log.Warn().Err(err).Msg("menu cache disabled")
		return cache.Nop{}, func() {}
	}
	return r, func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
}

func newMetricsServer(port int, metrics *monitoring.Metrics) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET("/metrics", gin.WrapH(metrics.Handler()))

	return &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}
}
