package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/hondusoft/fieldsales-backend/api/routes"
	authsvc "github.com/hondusoft/fieldsales-backend/internal/auth"
	cartsvc "github.com/hondusoft/fieldsales-backend/internal/cart"
	catalogsvc "github.com/hondusoft/fieldsales-backend/internal/catalog"
	collectionsvc "github.com/hondusoft/fieldsales-backend/internal/collections"
	ordersvc "github.com/hondusoft/fieldsales-backend/internal/orders"
	"github.com/hondusoft/fieldsales-backend/pkg/auth/session"
	"github.com/hondusoft/fieldsales-backend/pkg/config"
	"github.com/hondusoft/fieldsales-backend/pkg/db"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
	"github.com/hondusoft/fieldsales-backend/pkg/metrics"
	"github.com/hondusoft/fieldsales-backend/pkg/redis"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}

	if cfg.FeatureFlags.AutoMigrate {
		if err := dbClient.AutoMigrate(); err != nil {
			return multierr.Append(err, dbClient.Close())
		}
		logg.Info(ctx, "schema migration applied")
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return multierr.Append(err, dbClient.Close())
	}

	closeAll := func() error {
		return multierr.Combine(dbClient.Close(), redisClient.Close())
	}

	sessions, err := session.NewManager(redisClient, cfg.JWT.SessionTTL())
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	sapClient, err := sap.NewClient(cfg.Upstream)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	cartRepo := cartsvc.NewRepository(dbClient.DB())
	cartService, err := cartsvc.NewService(cartRepo, dbClient, sapClient, cfg.Cart)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	ordersService, err := ordersvc.NewService(cartService, sapClient, logg, cfg.Orders)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	catalogService, err := catalogsvc.NewService(sapClient, redisClient, logg, cfg.Catalog.CacheTTL)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	authService, err := authsvc.NewService(sapClient, sessions, cfg.JWT)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	collectionsService, err := collectionsvc.NewService(sapClient)
	if err != nil {
		return multierr.Append(err, closeAll())
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	handler := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		redisClient,
		redisClient,
		sessions,
		httpMetrics,
		registry,
		authService,
		catalogService,
		cartService,
		ordersService,
		collectionsService,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	startCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(startCtx, "starting api server")

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return multierr.Append(err, closeAll())
		}
		return closeAll()
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	if err := server.Shutdown(shutdownCtx); err != nil {
		errs = multierr.Append(errs, err)
	}
	return multierr.Append(errs, closeAll())
}
