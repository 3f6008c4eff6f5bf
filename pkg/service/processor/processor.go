// Package processor implements the Transaction Processor: orchestration of
// deposits, withdrawals, transfers and adjustments. It owns the Transaction
// lifecycle, idempotency keys and lock ordering; balances themselves move
// only through the ledger store's delta primitive.
package processor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corebank/ledger/pkg/commands"
	"github.com/corebank/ledger/pkg/currency"
	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/corebank/ledger/pkg/domain/ledgertx"
	"github.com/corebank/ledger/pkg/dto"
	"github.com/corebank/ledger/pkg/locks"
	"github.com/corebank/ledger/pkg/money"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// createRetries bounds reference-collision retries on transaction insert.
const createRetries = 3

// BalanceApplier is the slice of the ledger store the processor needs: the
// single balance-mutation primitive, scoped to the caller's unit of work.
type BalanceApplier interface {
	ApplyDeltaIn(ctx context.Context, uow repository.UnitOfWork,
		accountID uuid.UUID, delta money.Money, floor money.Money) (*account.Account, error)
}

// Auditor records entries atomically with the processor's own unit of work.
type Auditor interface {
	RecordIn(ctx context.Context, uow repository.UnitOfWork, entry *audit.Entry) error
	PriorFailures(ctx context.Context, uow repository.UnitOfWork, userID *uuid.UUID) int
}

// Service orchestrates money movement between accounts.
type Service struct {
	uow     repository.UnitOfWork
	locks   *locks.Manager
	applier BalanceApplier
	auditor Auditor
	group   singleflight.Group
	logger  *slog.Logger
}

// NewService creates a transaction processor.
func NewService(uow repository.UnitOfWork, lockMgr *locks.Manager,
	applier BalanceApplier, auditor Auditor, logger *slog.Logger) *Service {
	return &Service{
		uow:     uow,
		locks:   lockMgr,
		applier: applier,
		auditor: auditor,
		logger:  logger,
	}
}

// Deposit credits a single account.
func (s *Service) Deposit(ctx context.Context, cmd commands.Deposit) (*dto.TransactionRead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return s.singleLeg(ctx, cmd.AccountID, ledgertx.TypeDeposit, cmd.Amount, cmd.Currency, cmd.ActorID)
}

// Withdraw debits a single account, bounded by its overdraft limit and
// minimum balance floor.
func (s *Service) Withdraw(ctx context.Context, cmd commands.Withdraw) (*dto.TransactionRead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return s.singleLeg(ctx, cmd.AccountID, ledgertx.TypeWithdrawal, cmd.Amount, cmd.Currency, cmd.ActorID)
}

// Adjust applies a fee, interest, refund or payment to a single account. The
// kind determines the direction: FEE and PAYMENT debit, INTEREST and REFUND
// credit.
func (s *Service) Adjust(ctx context.Context, cmd commands.Adjust) (*dto.TransactionRead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return s.singleLeg(ctx, cmd.AccountID, ledgertx.Type(cmd.Kind), cmd.Amount, cmd.Currency, cmd.ActorID)
}

// Transfer moves funds between two ACTIVE same-currency accounts. The whole
// pipeline — PENDING row, debit, credit, completion, audit — commits in one
// transaction boundary; any failure after the row exists leaves a FAILED row
// and untouched balances. An idempotency key makes retries safe.
func (s *Service) Transfer(ctx context.Context, cmd commands.Transfer) (*dto.TransactionRead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	amount, err := parseAmount(cmd.Amount, cmd.Currency)
	if err != nil {
		return nil, err
	}

	if cmd.IdempotencyKey == "" {
		return s.transfer(ctx, cmd, amount)
	}

	// Concurrent calls sharing a key collapse to one execution; later calls
	// with the same key replay the stored result unless it FAILED.
	v, err, _ := s.group.Do(cmd.IdempotencyKey, func() (any, error) {
		if existing := s.findByIdempotencyKey(ctx, cmd.IdempotencyKey); existing != nil &&
			existing.Status != ledgertx.StatusFailed {
			s.logger.Info("idempotent replay", "key", cmd.IdempotencyKey, "reference", existing.Reference)
			return dto.NewTransactionRead(existing), nil
		}
		return s.transfer(ctx, cmd, amount)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dto.TransactionRead), nil
}

func (s *Service) transfer(ctx context.Context, cmd commands.Transfer, amount money.Money) (*dto.TransactionRead, error) {
	release, err := s.locks.Acquire(ctx, cmd.FromAccountID, cmd.ToAccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		tx          *ledgertx.Transaction
		businessErr error
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accRepo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		from, err := accRepo.Get(ctx, cmd.FromAccountID)
		if err != nil {
			return fmt.Errorf("source account: %w", err)
		}
		to, err := accRepo.Get(ctx, cmd.ToAccountID)
		if err != nil {
			return fmt.Errorf("destination account: %w", err)
		}
		if err := requireActive(from); err != nil {
			return err
		}
		if err := requireActive(to); err != nil {
			return err
		}
		if from.Currency() != amount.Currency() || to.Currency() != amount.Currency() {
			return fmt.Errorf("%w: transfer between %s and %s in %s",
				money.ErrCurrencyMismatch, from.Currency(), to.Currency(), amount.Currency())
		}

		tx, err = ledgertx.New(ledgertx.TypeTransfer, amount)
		if err != nil {
			return err
		}
		tx.FromAccountID = &cmd.FromAccountID
		tx.ToAccountID = &cmd.ToAccountID
		tx.IdempotencyKey = cmd.IdempotencyKey
		if err := s.createTransaction(ctx, uow, tx); err != nil {
			return err
		}

		fromAcct, err := s.applier.ApplyDeltaIn(ctx, uow, cmd.FromAccountID, amount.Negate(), from.MinimumBalance)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			businessErr = err
			return s.failTransaction(ctx, uow, tx, cmd.ActorID, err)
		}
		if err != nil {
			return err
		}
		zero, _ := money.Zero(amount.Currency())
		toAcct, err := s.applier.ApplyDeltaIn(ctx, uow, cmd.ToAccountID, amount, zero)
		if err != nil {
			// Credit-leg failure rolls back the debit too.
			return err
		}

		if err := tx.Complete(&fromAcct.Balance, &toAcct.Balance); err != nil {
			return err
		}
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		if err := txRepo.Update(ctx, tx); err != nil {
			return err
		}
		return s.auditSuccess(ctx, uow, tx, cmd.ActorID)
	})
	if err != nil {
		return nil, err
	}
	if businessErr != nil {
		// The FAILED row and its audit entry committed; the business error
		// still surfaces to the caller.
		return nil, businessErr
	}
	s.logger.Info("transfer completed", "reference", tx.Reference,
		"from", cmd.FromAccountID, "to", cmd.ToAccountID, "amount", amount.StringFixed())
	return dto.NewTransactionRead(tx), nil
}

// singleLeg runs the deposit/withdraw/adjustment pipeline against one account.
func (s *Service) singleLeg(ctx context.Context, accountID uuid.UUID,
	txType ledgertx.Type, rawAmount, rawCurrency string, actorID *uuid.UUID) (*dto.TransactionRead, error) {
	amount, err := parseAmount(rawAmount, rawCurrency)
	if err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer release()

	var (
		tx          *ledgertx.Transaction
		businessErr error
	)
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accRepo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acct, err := accRepo.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if err := requireActive(acct); err != nil {
			return err
		}
		if acct.Currency() != amount.Currency() {
			return fmt.Errorf("%w: account holds %s, operation in %s",
				money.ErrCurrencyMismatch, acct.Currency(), amount.Currency())
		}

		tx, err = ledgertx.New(txType, amount)
		if err != nil {
			return err
		}
		delta := amount
		if txType.IsDebit() {
			delta = amount.Negate()
			tx.FromAccountID = &accountID
		} else {
			tx.ToAccountID = &accountID
		}
		if err := s.createTransaction(ctx, uow, tx); err != nil {
			return err
		}

		after, err := s.applier.ApplyDeltaIn(ctx, uow, accountID, delta, acct.MinimumBalance)
		if errors.Is(err, domain.ErrInsufficientFunds) {
			businessErr = err
			return s.failTransaction(ctx, uow, tx, actorID, err)
		}
		if err != nil {
			return err
		}

		if txType.IsDebit() {
			err = tx.Complete(&after.Balance, nil)
		} else {
			err = tx.Complete(nil, &after.Balance)
		}
		if err != nil {
			return err
		}
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		if err := txRepo.Update(ctx, tx); err != nil {
			return err
		}
		return s.auditSuccess(ctx, uow, tx, actorID)
	})
	if err != nil {
		return nil, err
	}
	if businessErr != nil {
		return nil, businessErr
	}
	s.logger.Info("transaction completed", "reference", tx.Reference,
		"type", tx.Type, "account", accountID, "amount", amount.StringFixed())
	return dto.NewTransactionRead(tx), nil
}

// Cancel aborts a PENDING transaction by reference. Transactions in a
// terminal status stay untouched.
func (s *Service) Cancel(ctx context.Context, cmd commands.CancelTransaction) (*dto.TransactionRead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	var tx *ledgertx.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		tx, err = txRepo.GetByReference(ctx, cmd.Reference)
		if err != nil {
			return err
		}
		if err := tx.Cancel(); err != nil {
			return err
		}
		if err := txRepo.Update(ctx, tx); err != nil {
			return err
		}
		entry, err := audit.NewEntry(cmd.ActorID, audit.ActionTransactionCancelled, audit.SeverityMedium,
			s.auditor.PriorFailures(ctx, uow, cmd.ActorID))
		if err != nil {
			return err
		}
		entry.WithEntity("transaction", tx.ID.String()).
			WithChange(string(ledgertx.StatusPending), string(ledgertx.StatusCancelled))
		return s.auditor.RecordIn(ctx, uow, entry)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction cancelled", "reference", tx.Reference)
	return dto.NewTransactionRead(tx), nil
}

// GetTransaction returns the transaction snapshot for a reference.
func (s *Service) GetTransaction(ctx context.Context, reference string) (*dto.TransactionRead, error) {
	var tx *ledgertx.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		tx, err = txRepo.GetByReference(ctx, reference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewTransactionRead(tx), nil
}

// ListByAccount returns every transaction touching an account, oldest first.
// Together with the per-leg balance snapshots this reconstructs the balance
// history without replaying deltas.
func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*dto.TransactionRead, error) {
	var txs []*ledgertx.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		txs, err = txRepo.ListByAccount(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	reads := make([]*dto.TransactionRead, 0, len(txs))
	for _, tx := range txs {
		reads = append(reads, dto.NewTransactionRead(tx))
	}
	return reads, nil
}

// createTransaction inserts the PENDING row, regenerating the reference on a
// collision.
func (s *Service) createTransaction(ctx context.Context, uow repository.UnitOfWork, tx *ledgertx.Transaction) error {
	txRepo, err := uow.TransactionRepository()
	if err != nil {
		return err
	}
	for attempt := 0; attempt < createRetries; attempt++ {
		err = txRepo.Create(ctx, tx)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return err
		}
		tx.Reference = ledgertx.GenerateReference()
	}
	return err
}

// failTransaction commits the FAILED row and its audit entry while the
// balances stay untouched. TRANSACTION_FAILED is HIGH severity: losing the
// audit entry aborts the whole commit.
func (s *Service) failTransaction(ctx context.Context, uow repository.UnitOfWork,
	tx *ledgertx.Transaction, actorID *uuid.UUID, cause error) error {
	if err := tx.Fail(cause.Error()); err != nil {
		return err
	}
	txRepo, err := uow.TransactionRepository()
	if err != nil {
		return err
	}
	if err := txRepo.Update(ctx, tx); err != nil {
		return err
	}
	entry, err := audit.NewEntry(actorID, audit.ActionTransactionFailed, audit.SeverityHigh,
		s.auditor.PriorFailures(ctx, uow, actorID))
	if err != nil {
		return err
	}
	entry.WithEntity("transaction", tx.ID.String()).
		WithChange("", cause.Error()).
		WithSuccess(false)
	if err := s.auditor.RecordIn(ctx, uow, entry); err != nil {
		return err
	}
	s.logger.Warn("transaction failed", "reference", tx.Reference,
		"type", tx.Type, "reason", tx.FailureReason)
	return nil
}

// auditSuccess records the MEDIUM operation entry for a completed transaction.
func (s *Service) auditSuccess(ctx context.Context, uow repository.UnitOfWork,
	tx *ledgertx.Transaction, actorID *uuid.UUID) error {
	entry, err := audit.NewEntry(actorID, audit.Action(tx.Type), audit.SeverityMedium,
		s.auditor.PriorFailures(ctx, uow, actorID))
	if err != nil {
		return err
	}
	entry.WithEntity("transaction", tx.ID.String()).
		WithChange("", tx.Amount.StringFixed())
	return s.auditor.RecordIn(ctx, uow, entry)
}

// findByIdempotencyKey looks up the latest transaction bound to a key.
// Returns nil when none exists.
func (s *Service) findByIdempotencyKey(ctx context.Context, key string) *ledgertx.Transaction {
	var tx *ledgertx.Transaction
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		tx, err = txRepo.GetByIdempotencyKey(ctx, key)
		return err
	})
	if err != nil {
		return nil
	}
	return tx
}

func requireActive(a *account.Account) error {
	if a.Status != account.StatusActive {
		return fmt.Errorf("%w: account %s is %s", account.ErrAccountNotActive, a.ID, a.Status)
	}
	return nil
}

// parseAmount converts a command's string amount into Money and enforces
// positivity. The sign is carried by the transaction type, never the amount.
func parseAmount(rawAmount, rawCurrency string) (money.Money, error) {
	amount, err := money.NewFromString(rawAmount, currency.Code(rawCurrency))
	if err != nil {
		return money.Money{}, domain.NewValidationError("amount", err.Error())
	}
	if !amount.IsPositive() {
		return money.Money{}, domain.NewValidationError("amount", "must be positive")
	}
	return amount, nil
}
