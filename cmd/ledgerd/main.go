package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/corebank/ledger/infra/initializer"
	"github.com/corebank/ledger/pkg/config"
)

// flushInterval is how often the deferred audit queue is retried.
const flushInterval = 30 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	deps, err := initializer.InitializeDependencies(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	logger := deps.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("ledgerd started", "env", cfg.Env)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := deps.Auditor.FlushDeferred(ctx); n > 0 {
				logger.Info("flushed deferred audit entries", "count", n)
			}
		case <-ctx.Done():
			logger.Info("shutting down")
			return shutdown(deps)
		}
	}
}

// shutdown drains the deferred audit queue and closes the connection pool.
func shutdown(deps *initializer.Deps) error {
	drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if n := deps.Auditor.FlushDeferred(drainCtx); n > 0 {
		deps.Logger.Info("drained deferred audit entries", "count", n)
	}
	if remaining := deps.Auditor.DeferredCount(); remaining > 0 {
		deps.Logger.Warn("deferred audit entries lost on shutdown", "count", remaining)
	}

	sqlDB, err := deps.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
