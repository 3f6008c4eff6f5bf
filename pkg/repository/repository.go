// Package repository defines the data-access contracts of the ledger core.
// Implementations live under infra/repository; services depend only on these
// interfaces and on the UnitOfWork transaction boundary.
package repository

import (
	"context"
	"time"

	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/corebank/ledger/pkg/domain/ledgertx"
	"github.com/google/uuid"
)

// AccountRepository defines the interface for account data access operations.
type AccountRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetByNumber(ctx context.Context, number string) (*account.Account, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error)
	Create(ctx context.Context, a *account.Account) error
	Update(ctx context.Context, a *account.Account) error
	// Delete removes an account record. The zero-balance CLOSED precondition
	// is enforced by the ledger service, not here.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TransactionRepository defines the interface for transaction data access
// operations. ListByAccount returns rows in creation order so balanceAfter
// snapshots can be replayed against transaction history.
type TransactionRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*ledgertx.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*ledgertx.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*ledgertx.Transaction, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*ledgertx.Transaction, error)
	Create(ctx context.Context, tx *ledgertx.Transaction) error
	Update(ctx context.Context, tx *ledgertx.Transaction) error
}

// AuditRepository defines the append-only audit store. Entries are created
// exactly once and never updated or deleted; reads are pure queries returning
// newest-first.
type AuditRepository interface {
	Create(ctx context.Context, e *audit.Entry) error
	ByUser(ctx context.Context, userID uuid.UUID) ([]*audit.Entry, error)
	ByAction(ctx context.Context, action audit.Action) ([]*audit.Entry, error)
	ByEntity(ctx context.Context, entityType, entityID string) ([]*audit.Entry, error)
	BySeverity(ctx context.Context, severity audit.Severity) ([]*audit.Entry, error)
	ByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Entry, error)
	ByRiskThreshold(ctx context.Context, minScore int) ([]*audit.Entry, error)
	// CountFailuresByUser feeds the risk score: the number of failed events
	// already recorded for an actor.
	CountFailuresByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
