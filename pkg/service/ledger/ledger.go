// Package ledger implements the Ledger Store: the single source of truth for
// account existence, status and balance. It is the only component permitted
// to mutate balances, and it records an audit entry for every state change it
// makes, committed atomically with the change.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/corebank/ledger/pkg/commands"
	"github.com/corebank/ledger/pkg/currency"
	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/corebank/ledger/pkg/dto"
	"github.com/corebank/ledger/pkg/locks"
	"github.com/corebank/ledger/pkg/money"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/google/uuid"
)

// Service provides account lifecycle and balance-mutation primitives.
type Service struct {
	uow        repository.UnitOfWork
	locks      *locks.Manager
	auditor    Auditor
	numPrefix  string
	maxRetries int
	logger     *slog.Logger
}

// Auditor is the slice of the audit trail the ledger store needs: atomic
// entry writes inside the store's own unit of work.
type Auditor interface {
	RecordIn(ctx context.Context, uow repository.UnitOfWork, entry *audit.Entry) error
	PriorFailures(ctx context.Context, uow repository.UnitOfWork, userID *uuid.UUID) int
}

// NewService creates a ledger store service. numPrefix leads every generated
// account number; maxRetries bounds the collision retry loop.
func NewService(uow repository.UnitOfWork, lockMgr *locks.Manager, auditor Auditor,
	numPrefix string, maxRetries int, logger *slog.Logger) *Service {
	if maxRetries <= 0 {
		maxRetries = 5
	}
	return &Service{
		uow:        uow,
		locks:      lockMgr,
		auditor:    auditor,
		numPrefix:  numPrefix,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// OpenAccount creates a new account in PENDING_APPROVAL with a freshly
// generated, globally unique account number.
func (s *Service) OpenAccount(ctx context.Context, cmd commands.OpenAccount) (*dto.AccountRead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	logger := s.logger.With("owner_id", cmd.OwnerID, "type", cmd.Type, "currency", cmd.Currency)

	var acct *account.Account
	var err error
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		acct, err = account.New().
			WithOwner(cmd.OwnerID).
			WithNumber(generateAccountNumber(s.numPrefix)).
			WithName(cmd.Name).
			WithType(account.Type(cmd.Type)).
			WithInitialBalance(cmd.InitialBalance).
			WithCurrency(currency.Code(cmd.Currency)).
			Build()
		if err != nil {
			return nil, err
		}

		err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
			repo, err := uow.AccountRepository()
			if err != nil {
				return err
			}
			if err := repo.Create(ctx, acct); err != nil {
				return err
			}
			actor := cmd.ActorID
			if actor == nil {
				actor = &cmd.OwnerID
			}
			entry, err := audit.NewEntry(actor, audit.ActionAccountOpened, audit.SeverityLow,
				s.auditor.PriorFailures(ctx, uow, actor))
			if err != nil {
				return err
			}
			entry.WithEntity("account", acct.ID.String()).
				WithChange("", accountJSON(acct))
			return s.auditor.RecordIn(ctx, uow, entry)
		})
		if err == nil {
			logger.Info("account opened", "account_id", acct.ID, "number", acct.Number)
			return dto.NewAccountRead(acct), nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		logger.Warn("account number collision, retrying", "number", acct.Number, "attempt", attempt+1)
	}
	return nil, fmt.Errorf("%w: account number generation exhausted retries", domain.ErrConcurrencyConflict)
}

// ChangeStatus performs a legal status transition on an account. A change
// into CLOSED carries the zero-balance rule: it is routed through Close.
// Status changes take the account's mutation lock, so they are mutually
// exclusive with transfers touching the same account.
func (s *Service) ChangeStatus(ctx context.Context, cmd commands.ChangeAccountStatus) (*dto.AccountRead, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	newStatus := account.Status(cmd.NewStatus)

	release, err := s.locks.Acquire(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	defer release()

	var acct *account.Account
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acct, err = repo.Get(ctx, cmd.AccountID)
		if err != nil {
			return err
		}
		oldStatus := acct.Status

		if newStatus == account.StatusClosed {
			err = acct.Close()
		} else {
			err = acct.ChangeStatus(newStatus)
		}
		if err != nil {
			return err
		}
		if err := repo.Update(ctx, acct); err != nil {
			return err
		}

		action := audit.ActionAccountStatusChanged
		severity := audit.SeverityMedium
		if newStatus == account.StatusClosed {
			action = audit.ActionAccountClosed
			severity = audit.SeverityHigh
		}
		entry, err := audit.NewEntry(cmd.ActorID, action, severity,
			s.auditor.PriorFailures(ctx, uow, cmd.ActorID))
		if err != nil {
			return err
		}
		entry.WithEntity("account", acct.ID.String()).
			WithChange(string(oldStatus), string(acct.Status))
		return s.auditor.RecordIn(ctx, uow, entry)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("account status changed",
		"account_id", acct.ID, "status", acct.Status)
	return dto.NewAccountRead(acct), nil
}

// CloseAccount transitions an account to CLOSED. It fails with
// NonZeroBalance while any funds remain.
func (s *Service) CloseAccount(ctx context.Context, accountID uuid.UUID, actorID *uuid.UUID) (*dto.AccountRead, error) {
	return s.ChangeStatus(ctx, commands.ChangeAccountStatus{
		AccountID: accountID,
		NewStatus: string(account.StatusClosed),
		ActorID:   actorID,
	})
}

// DeleteAccount removes an account record. Deletion is permitted only for a
// zero-balance CLOSED account; anything else fails without side effect.
func (s *Service) DeleteAccount(ctx context.Context, accountID uuid.UUID, actorID *uuid.UUID) error {
	release, err := s.locks.Acquire(ctx, accountID)
	if err != nil {
		return err
	}
	defer release()

	return s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acct, err := repo.Get(ctx, accountID)
		if err != nil {
			return err
		}
		if !acct.Balance.IsZero() {
			return domain.ErrNonZeroBalance
		}
		if acct.Status != account.StatusClosed {
			return &domain.StateTransitionError{
				Entity: "account",
				From:   string(acct.Status),
				To:     "deleted",
			}
		}
		if err := repo.Delete(ctx, accountID); err != nil {
			return err
		}
		entry, err := audit.NewEntry(actorID, audit.ActionAccountClosed, audit.SeverityHigh,
			s.auditor.PriorFailures(ctx, uow, actorID))
		if err != nil {
			return err
		}
		entry.WithEntity("account", accountID.String()).
			WithChange(accountJSON(acct), "")
		return s.auditor.RecordIn(ctx, uow, entry)
	})
}

// ApplyDeltaIn applies a signed balance change to an account inside the
// caller's unit of work. The caller must already hold the account's mutation
// lock. This is the sole balance-mutation primitive; it performs no
// deduplication — idempotency belongs to the transaction processor.
func (s *Service) ApplyDeltaIn(ctx context.Context, uow repository.UnitOfWork,
	accountID uuid.UUID, delta money.Money, floor money.Money) (*account.Account, error) {
	repo, err := uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	acct, err := repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if _, err := acct.ApplyDelta(delta, floor); err != nil {
		return nil, err
	}
	if err := repo.Update(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// GetAccount returns the current account snapshot.
func (s *Service) GetAccount(ctx context.Context, accountID uuid.UUID) (*dto.AccountRead, error) {
	var acct *account.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acct, err = repo.Get(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewAccountRead(acct), nil
}

// GetAccountByNumber returns the account snapshot for an account number.
func (s *Service) GetAccountByNumber(ctx context.Context, number string) (*dto.AccountRead, error) {
	var acct *account.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acct, err = repo.GetByNumber(ctx, number)
		return err
	})
	if err != nil {
		return nil, err
	}
	return dto.NewAccountRead(acct), nil
}

// ListAccountsByOwner returns snapshots of all accounts held by an owner.
func (s *Service) ListAccountsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*dto.AccountRead, error) {
	var accts []*account.Account
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		accts, err = repo.ListByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	reads := make([]*dto.AccountRead, 0, len(accts))
	for _, a := range accts {
		reads = append(reads, dto.NewAccountRead(a))
	}
	return reads, nil
}

// generateAccountNumber produces a prefix + 10 random digits account number.
// Uniqueness is enforced by the store's unique index; collisions feed the
// retry loop in OpenAccount.
func generateAccountNumber(prefix string) string {
	max := big.NewInt(10_000_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failure means the process is in serious trouble.
		panic(fmt.Sprintf("account number generation: %v", err))
	}
	return prefix + fmt.Sprintf("%010d", n)
}

// accountJSON renders the account snapshot stored in audit old/new values.
func accountJSON(a *account.Account) string {
	raw, err := json.Marshal(dto.NewAccountRead(a))
	if err != nil {
		return ""
	}
	return string(raw)
}
