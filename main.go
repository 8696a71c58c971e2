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

	"go.uber.org/zap"

	"menu-service/api"
	"menu-service/bot"
	"menu-service/config"
	"menu-service/db"
	"menu-service/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := db.Open(ctx, cfg.DB.ConnString())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer d.Close()

	// AUTO_MIGRATE=1 applies the embedded schema on startup.
	if cfg.AutoMigrate {
		if err := applyMigrations(ctx, d, func(name string) {
			logger.Info("Migration applied", zap.String("file", name))
		}); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	notifier, err := bot.New(cfg.Telegram, logger)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}
	if c, ok := notifier.(interface{ Close() }); ok {
		defer c.Close()
	}

	store := services.NewMenuStore(d,
		services.WithNotifier(notifier),
		services.WithLogger(logger),
	)
	handler := api.NewRouter(store, store, logger, cfg.Server.CORSOrigins).Setup()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.String("environment", cfg.Environment),
			zap.String("dialect", d.Dialect()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

func runMigrate(cfg *config.Config) {
	ctx := context.Background()
	d, err := db.Open(ctx, cfg.DB.ConnString())
	if err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}

	err = applyMigrations(ctx, d, func(name string) {
		fmt.Println("Migration", name, "applied.")
	})
	d.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
