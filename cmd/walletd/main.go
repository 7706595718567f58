package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/secure_wallet/internal/audit"
	"github.com/congo-pay/secure_wallet/internal/config"
	"github.com/congo-pay/secure_wallet/internal/infra"
	"github.com/congo-pay/secure_wallet/internal/logging"
	"github.com/congo-pay/secure_wallet/internal/server"
	"github.com/congo-pay/secure_wallet/internal/wallet"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("app", cfg.AppName, "env", cfg.AppEnv)

	// run returns instead of exiting so its deferred cleanup always executes.
	if err := run(cfg, logger); err != nil {
		logger.Error("walletd stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	backends, err := infra.Connect(ctx, cfg.DatabaseURL, cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect backends: %w", err)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Warn("close backends", "error", err)
		}
	}()

	journal := audit.Multi{audit.NewLoggerJournal(logging.Component(logger, "audit"))}
	if backends.DB != nil {
		pg := audit.NewPostgresJournal(backends.DB)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("prepare journal: %w", err)
		}
		journal = append(journal, pg)
	}

	component := wallet.NewComponent(
		wallet.WithLogger(logging.Component(logger, "wallet")),
		wallet.WithJournal(journal),
		wallet.WithInitialBalance(cfg.InitialBalance),
	)
	if err := component.Create(ctx); err != nil {
		return fmt.Errorf("create wallet component: %w", err)
	}

	srv, err := server.New(cfg, component, backends, logging.Component(logger, "http"))
	if err != nil {
		destroy(ctx, component, logger)
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Address())
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		destroy(ctx, component, logger)
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	destroy(shutdownCtx, component, logger)
	return nil
}

func destroy(ctx context.Context, component *wallet.Component, logger *slog.Logger) {
	if err := component.Destroy(ctx); err != nil {
		logger.Error("destroy wallet component", "error", err)
	}
}
