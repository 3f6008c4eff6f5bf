// Package initializer wires the full dependency graph: logger, database,
// repositories, lock manager and the three core services.
package initializer

import (
	"fmt"
	"log/slog"

	"github.com/corebank/ledger/infra"
	infrarepo "github.com/corebank/ledger/infra/repository"
	"github.com/corebank/ledger/pkg/config"
	"github.com/corebank/ledger/pkg/locks"
	"github.com/corebank/ledger/pkg/service/auditlog"
	"github.com/corebank/ledger/pkg/service/ledger"
	"github.com/corebank/ledger/pkg/service/processor"
	"gorm.io/gorm"
)

// Deps bundles everything a binary needs to serve ledger operations.
type Deps struct {
	Logger    *slog.Logger
	DB        *gorm.DB
	Locks     *locks.Manager
	Auditor   *auditlog.Service
	Ledger    *ledger.Service
	Processor *processor.Service
}

// InitializeDependencies initializes all the application dependencies.
func InitializeDependencies(cfg *config.App) (*Deps, error) {
	logger := setupLogger(cfg.Log)

	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	uow := infrarepo.NewUoW(db)
	lockMgr := locks.NewManager()
	auditor := auditlog.NewService(uow, logger, cfg.Audit.DeferredQueueSize)
	ledgerSvc := ledger.NewService(uow, lockMgr, auditor,
		cfg.Ledger.AccountNumberPrefix, cfg.Ledger.MaxNumberRetries, logger)
	procSvc := processor.NewService(uow, lockMgr, ledgerSvc, auditor, logger)

	logger.Info("dependencies initialized", "env", cfg.Env)
	return &Deps{
		Logger:    logger,
		DB:        db,
		Locks:     lockMgr,
		Auditor:   auditor,
		Ledger:    ledgerSvc,
		Processor: procSvc,
	}, nil
}

// Migrate creates or updates the ledger schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&infrarepo.Account{},
		&infrarepo.Transaction{},
		&infrarepo.AuditEntry{},
	)
}
