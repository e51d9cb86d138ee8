package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/config"
	apphttp "ledger/internal/http"
	"ledger/internal/identity"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var store services.AccountStore
	switch cfg.Backend {
	case "memory":
		store = storage.NewMemoryStore()
		logger.Info("Initialized memory backend", "backend", cfg.Backend)
	default:
		sqliteStore, err := storage.NewSQLiteStore(cfg.SQLiteDBPath, storage.WithTimeout(cfg.StoreTimeout))
		if err != nil {
			logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		store = sqliteStore
		logger.Info("Initialized SQLite backend", "backend", cfg.Backend, "path", cfg.SQLiteDBPath)
	}
	defer store.Close()

	ledgerOpts := []services.LedgerOption{
		services.WithInitialGrant(cfg.InitialGrant),
		services.WithLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentLedger)),
	}

	// Transfer events are optional: without a broker the ledger still runs,
	// it just keeps no audit trail.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		ledgerOpts = append(ledgerOpts, services.WithPublisher(amqpClient))
		logger.Info("Transfer event publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Transfer event publishing disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedger(store, ledgerOpts...)
	verifier := identity.NewTokenVerifier(cfg.AuthSecret)

	srv := apphttp.NewServer(":"+cfg.Port, ledger, verifier)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting ledger server", "port", cfg.Port, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
