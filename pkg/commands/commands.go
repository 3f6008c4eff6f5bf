// Package commands defines the inbound operation requests accepted by the
// ledger core. Monetary amounts arrive as exact decimal strings; validation
// runs before any state is touched, so a rejected command has no side effect.
package commands

import (
	"errors"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

func check(cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		var ferrs validator.ValidationErrors
		if errors.As(err, &ferrs) && len(ferrs) > 0 {
			fe := ferrs[0]
			return domain.NewValidationError(fe.Field(), "failed "+fe.Tag()+" validation")
		}
		return domain.NewValidationError("", err.Error())
	}
	return nil
}

// OpenAccount requests creation of a new account in PENDING_APPROVAL.
type OpenAccount struct {
	OwnerID        uuid.UUID `validate:"required"`
	Type           string    `validate:"required,oneof=CHECKING SAVINGS CREDIT INVESTMENT"`
	Name           string    `validate:"required,max=100"`
	InitialBalance string    `validate:"required,numeric"`
	Currency       string    `validate:"required,len=3,uppercase"`
	ActorID        *uuid.UUID
}

// Validate checks shape constraints; monetary semantics are enforced by the
// domain layer.
func (c OpenAccount) Validate() error { return check(c) }

// ChangeAccountStatus requests a status transition on an account.
type ChangeAccountStatus struct {
	AccountID uuid.UUID `validate:"required"`
	NewStatus string    `validate:"required,oneof=PENDING_APPROVAL ACTIVE INACTIVE FROZEN SUSPENDED CLOSED"`
	ActorID   *uuid.UUID
}

// Validate checks shape constraints.
func (c ChangeAccountStatus) Validate() error { return check(c) }

// Deposit credits a single account.
type Deposit struct {
	AccountID uuid.UUID `validate:"required"`
	Amount    string    `validate:"required,numeric"`
	Currency  string    `validate:"required,len=3,uppercase"`
	ActorID   *uuid.UUID
}

// Validate checks shape constraints.
func (c Deposit) Validate() error { return check(c) }

// Withdraw debits a single account.
type Withdraw struct {
	AccountID uuid.UUID `validate:"required"`
	Amount    string    `validate:"required,numeric"`
	Currency  string    `validate:"required,len=3,uppercase"`
	ActorID   *uuid.UUID
}

// Validate checks shape constraints.
func (c Withdraw) Validate() error { return check(c) }

// Transfer moves funds between two accounts of the same currency. The
// optional IdempotencyKey makes retries safe: a key already bound to a
// non-FAILED transaction returns the existing result.
type Transfer struct {
	FromAccountID  uuid.UUID `validate:"required"`
	ToAccountID    uuid.UUID `validate:"required"`
	Amount         string    `validate:"required,numeric"`
	Currency       string    `validate:"required,len=3,uppercase"`
	IdempotencyKey string    `validate:"omitempty,max=64"`
	ActorID        *uuid.UUID
}

// Validate checks shape constraints, including that both legs differ.
func (c Transfer) Validate() error {
	if err := check(c); err != nil {
		return err
	}
	if c.FromAccountID == c.ToAccountID {
		return domain.NewValidationError("toAccountId", "cannot transfer to the same account")
	}
	return nil
}

// Adjust applies a fee, interest or refund to a single account. The kind
// decides the direction: fees and payments debit, interest and refunds credit.
type Adjust struct {
	AccountID uuid.UUID `validate:"required"`
	Kind      string    `validate:"required,oneof=FEE INTEREST REFUND PAYMENT"`
	Amount    string    `validate:"required,numeric"`
	Currency  string    `validate:"required,len=3,uppercase"`
	ActorID   *uuid.UUID
}

// Validate checks shape constraints.
func (c Adjust) Validate() error { return check(c) }

// CancelTransaction aborts a PENDING transaction by reference.
type CancelTransaction struct {
	Reference string `validate:"required"`
	ActorID   *uuid.UUID
}

// Validate checks shape constraints.
func (c CancelTransaction) Validate() error { return check(c) }
