// trimd is the security-trimmed retrieval daemon: OIDC-authenticated ingest
// and query over a multi-tenant Astra DB document store.
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

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/securetrim/trimd/internal/astra"
	"github.com/securetrim/trimd/internal/config"
	"github.com/securetrim/trimd/internal/httpapi"
	"github.com/securetrim/trimd/internal/identity"
	"github.com/securetrim/trimd/internal/logging"
	"github.com/securetrim/trimd/internal/policy"
	"github.com/securetrim/trimd/internal/ratelimit"
	"github.com/securetrim/trimd/internal/retrieval"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "trimd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file (default ~/.config/trimd/config.yaml)")
	flag.Parse()

	// Development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logCfg := logging.NewDefaultConfig()
	logCfg.Format = cfg.Log.Format
	level, err := logging.LevelFromString(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logCfg.Level = level

	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := identity.NewOIDCVerifier(ctx, cfg.OIDC, logger)
	if err != nil {
		return fmt.Errorf("failed to create token verifier: %w", err)
	}

	store := astra.NewClient(cfg.Astra, logger)
	svc := retrieval.NewService(store, cfg, policy.UTCClock{}, logger)
	limiter := ratelimit.New(cfg.RateLimit.PerMinute)
	server := httpapi.NewServer(cfg, logger, svc, verifier, limiter, httpapi.NewMetrics())

	logger.Info(ctx, "trimd starting",
		zap.String("collection_mode", cfg.Collections.Mode),
		zap.Int("tenants", len(cfg.Astra.Tenants)))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
