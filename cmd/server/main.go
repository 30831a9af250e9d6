/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load configuration (flags, environment, .env)
  2. Build the zap logger (development unless APP_ENV=production)
  3. Open the store (SQLite, or in-memory with -db=memory)
  4. Seed the configured scenario when the store has no accounts
  5. Configure the HTTP router
  6. Start the server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the database
  4. Exit

EXAMPLES:
  ./server -db=./data/portal.db
  ./server -db=memory -latency=300ms
  JWT_SECRET=... APP_ENV=production ./server -port=3000

SEE ALSO:
  - config/config.go: All settings
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/empowerflow/portal/api"
	"github.com/empowerflow/portal/config"
	"github.com/empowerflow/portal/store/memory"
	"github.com/empowerflow/portal/store/sqlite"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	handler := api.NewHandler(store, api.HandlerConfig{
		TokenSecret:  cfg.JWTSecret,
		TokenTTL:     cfg.TokenTTL,
		CancelPolicy: cfg.CancelPolicy,
		Logger:       logger,
	})

	seeded, err := handler.SeedIfEmpty(context.Background(), cfg.SeedScenario)
	if err != nil {
		return err
	}
	if seeded {
		logger.Info("seeded empty store", zap.String("scenario", cfg.SeedScenario))
	}

	routerCfg := api.DefaultRouterConfig()
	routerCfg.AllowedOrigins = cfg.AllowedOrigins
	routerCfg.Latency = cfg.Latency

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.NewRouter(handler, routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15*time.Second + cfg.Latency,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DBPath),
			zap.Stringer("cancel_policy", cfg.CancelPolicy),
			zap.Duration("latency", cfg.Latency),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func openStore(cfg *config.Config) (api.Store, func(), error) {
	if cfg.UsesMemoryStore() {
		s := memory.New()
		return s, func() { s.Close() }, nil
	}
	s, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return s, func() { s.Close() }, nil
}
