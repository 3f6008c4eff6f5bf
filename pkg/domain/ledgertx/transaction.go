// Package ledgertx defines the Transaction entity: the record of one
// money-movement operation, its lifecycle state, and the balance snapshots
// that make account history reproducible without replay.
package ledgertx

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/money"
	"github.com/google/uuid"
)

// Type identifies the business operation a transaction records.
type Type string

const (
	TypeDeposit    Type = "DEPOSIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeTransfer   Type = "TRANSFER"
	TypePayment    Type = "PAYMENT"
	TypeFee        Type = "FEE"
	TypeInterest   Type = "INTEREST"
	TypeRefund     Type = "REFUND"
)

// IsValid reports whether t is a known transaction type.
func (t Type) IsValid() bool {
	switch t {
	case TypeDeposit, TypeWithdrawal, TypeTransfer, TypePayment, TypeFee, TypeInterest, TypeRefund:
		return true
	}
	return false
}

// IsCredit reports whether the type moves money into the single affected
// account. Transfers touch two accounts and are neither.
func (t Type) IsCredit() bool {
	switch t {
	case TypeDeposit, TypeInterest, TypeRefund:
		return true
	}
	return false
}

// IsDebit reports whether the type moves money out of the single affected account.
func (t Type) IsDebit() bool {
	switch t {
	case TypeWithdrawal, TypePayment, TypeFee:
		return true
	}
	return false
}

// Transaction records a single ledger operation. It references accounts by
// identifier, never by embedding.
//
// Invariants:
//   - Amount is strictly positive, Fee non-negative.
//   - BalanceAfter snapshots are set only when the transaction completes.
//   - Once in a terminal status the record never changes again.
type Transaction struct {
	ID             uuid.UUID
	Reference      string
	Type           Type
	Status         Status
	Amount         money.Money
	Fee            money.Money
	FromAccountID  *uuid.UUID
	ToAccountID    *uuid.UUID
	FromBalance    *money.Money // debit-leg balance after completion
	ToBalance      *money.Money // credit-leg balance after completion
	IdempotencyKey string
	FailureReason  string
	CreatedAt      time.Time
	ProcessedAt    *time.Time
}

// New creates a PENDING transaction with a freshly generated reference.
func New(txType Type, amount money.Money) (*Transaction, error) {
	if !txType.IsValid() {
		return nil, domain.NewValidationError("type", "unknown transaction type")
	}
	if !amount.IsPositive() {
		return nil, domain.NewValidationError("amount", "must be positive")
	}
	fee, err := money.Zero(amount.Currency())
	if err != nil {
		return nil, domain.NewValidationError("currency", err.Error())
	}
	return &Transaction{
		ID:        uuid.New(),
		Reference: GenerateReference(),
		Type:      txType,
		Status:    StatusPending,
		Amount:    amount,
		Fee:       fee,
		CreatedAt: time.Now(),
	}, nil
}

// Currency returns the transaction currency.
func (t *Transaction) Currency() string { return t.Amount.Currency().String() }

// markStatus moves the transaction to next, stamping ProcessedAt on entry
// into a terminal status.
func (t *Transaction) markStatus(next Status) error {
	if !CanTransition(t.Status, next) {
		return &domain.StateTransitionError{
			Entity: "transaction",
			From:   string(t.Status),
			To:     string(next),
		}
	}
	t.Status = next
	if next.IsTerminal() {
		now := time.Now()
		t.ProcessedAt = &now
	}
	return nil
}

// Complete marks the transaction COMPLETED and records the balance snapshot
// of each affected leg. Pass nil for the leg an operation does not touch.
func (t *Transaction) Complete(fromBalance, toBalance *money.Money) error {
	if err := t.markStatus(StatusCompleted); err != nil {
		return err
	}
	t.FromBalance = fromBalance
	t.ToBalance = toBalance
	return nil
}

// Fail marks the transaction FAILED with the given reason. Balance snapshots
// stay unset: a failed operation mutated nothing.
func (t *Transaction) Fail(reason string) error {
	if err := t.markStatus(StatusFailed); err != nil {
		return err
	}
	t.FailureReason = reason
	return nil
}

// Cancel marks the transaction CANCELLED. Only a PENDING transaction whose
// deltas have not committed may be cancelled.
func (t *Transaction) Cancel() error {
	return t.markStatus(StatusCancelled)
}

var referenceCounter uint32

// GenerateReference produces a 30-digit, time-ordered transaction reference.
// Uniqueness is ultimately enforced by the store's unique index; the
// timestamp + nanosecond + counter layout makes collisions rare enough that
// the retry loop around it almost never runs twice.
func GenerateReference() string {
	now := time.Now().UTC()
	base := now.Format("20060102150405") + fmt.Sprintf("%09d", now.Nanosecond())
	counter := atomic.AddUint32(&referenceCounter, 1) % 10000000
	return base + fmt.Sprintf("%07d", counter)
}
