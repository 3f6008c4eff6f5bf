// Package account defines the Account aggregate: the single place where
// balance and status invariants are expressed. All state changes go through
// methods on Account so the rules cannot be bypassed by callers.
package account

import (
	"errors"
	"time"

	"github.com/corebank/ledger/pkg/currency"
	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/money"
	"github.com/google/uuid"
)

var (
	// ErrAccountClosed is returned when a balance mutation targets a CLOSED account.
	ErrAccountClosed = errors.New("account is closed")
	// ErrAccountNotActive is returned when a money-movement operation targets a non-ACTIVE account.
	ErrAccountNotActive = errors.New("account is not active")
)

// Type identifies the product an account belongs to. Fixed at creation.
type Type string

const (
	TypeChecking   Type = "CHECKING"
	TypeSavings    Type = "SAVINGS"
	TypeCredit     Type = "CREDIT"
	TypeInvestment Type = "INVESTMENT"
)

// IsValid reports whether t is a known account type.
func (t Type) IsValid() bool {
	switch t {
	case TypeChecking, TypeSavings, TypeCredit, TypeInvestment:
		return true
	}
	return false
}

// Account is the aggregate root for a ledger account.
//
// Invariants:
//   - Balance never drops below −OverdraftLimit after a committed operation.
//   - AvailableBalance equals Balance minus outstanding holds; with no holds
//     the two are always equal.
//   - Currency is fixed at creation; cross-currency deltas are rejected.
//   - A CLOSED account accepts no further mutation.
type Account struct {
	ID               uuid.UUID
	Number           string
	OwnerID          uuid.UUID
	Name             string
	Type             Type
	Status           Status
	Balance          money.Money
	AvailableBalance money.Money
	MinimumBalance   money.Money
	OverdraftLimit   money.Money
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// Currency returns the account's fixed currency code.
func (a *Account) Currency() currency.Code { return a.Balance.Currency() }

// ApplyDelta applies a signed balance change and returns the new balance.
// A positive delta credits the account, a negative delta debits it. The debit
// is rejected without mutation when the resulting balance would fall below
// −OverdraftLimit or below floor, whichever is higher. This is the sole
// balance-mutation primitive; deduplication belongs to the orchestration
// layer, not here.
func (a *Account) ApplyDelta(delta money.Money, floor money.Money) (money.Money, error) {
	if a.Status == StatusClosed {
		return money.Money{}, ErrAccountClosed
	}
	if !a.Balance.IsSameCurrency(delta) {
		return money.Money{}, money.ErrCurrencyMismatch
	}

	newBalance, err := a.Balance.Add(delta)
	if err != nil {
		return money.Money{}, err
	}

	limit := a.OverdraftLimit.Negate()
	if !floor.IsZero() {
		if higher, _ := floor.GreaterThan(limit); higher {
			limit = floor
		}
	}
	if below, err := newBalance.LessThan(limit); err != nil {
		return money.Money{}, err
	} else if below {
		available, _ := a.Balance.Subtract(limit)
		return money.Money{}, &domain.InsufficientFundsError{
			Available: available,
			Requested: delta.Abs(),
		}
	}

	a.Balance = newBalance
	a.recomputeAvailable()
	a.UpdatedAt = time.Now()
	return a.Balance, nil
}

// ChangeStatus moves the account to newStatus if the transition is legal.
// Entering CLOSED stamps ClosedAt.
func (a *Account) ChangeStatus(newStatus Status) error {
	if !CanTransition(a.Status, newStatus) {
		return &domain.StateTransitionError{
			Entity: "account",
			From:   string(a.Status),
			To:     string(newStatus),
		}
	}
	a.Status = newStatus
	a.UpdatedAt = time.Now()
	if newStatus == StatusClosed {
		now := time.Now()
		a.ClosedAt = &now
	}
	return nil
}

// Close transitions the account to CLOSED. It fails with ErrNonZeroBalance
// while any funds remain, and with a state-transition error when the current
// status has no edge to CLOSED.
func (a *Account) Close() error {
	if !a.Balance.IsZero() {
		return domain.ErrNonZeroBalance
	}
	return a.ChangeStatus(StatusClosed)
}

// recomputeAvailable keeps availableBalance consistent with balance. Holds
// are reserved by the field but not exercised yet, so available == balance.
func (a *Account) recomputeAvailable() {
	a.AvailableBalance = a.Balance
}
