package account

import (
	"time"

	"github.com/corebank/ledger/pkg/currency"
	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/money"
	"github.com/google/uuid"
)

// Builder provides a fluent API for constructing Account instances. Only
// valid accounts leave Build: a malformed currency, unknown type, or negative
// opening balance is rejected there rather than surfacing later as a broken
// invariant.
type Builder struct {
	id             uuid.UUID
	number         string
	ownerID        uuid.UUID
	name           string
	accountType    Type
	status         Status
	initialBalance string
	minimumBalance string
	overdraftLimit string
	currency       currency.Code
	createdAt      time.Time
	updatedAt      time.Time
	closedAt       *time.Time
}

// New creates a Builder with sensible defaults: fresh UUID, PENDING_APPROVAL
// status, zero opening balance in the default currency.
func New() *Builder {
	return &Builder{
		id:             uuid.New(),
		status:         StatusPendingApproval,
		accountType:    TypeChecking,
		initialBalance: "0",
		minimumBalance: "0",
		overdraftLimit: "0",
		currency:       currency.DefaultCurrency,
		createdAt:      time.Now(),
	}
}

// WithID sets the ID for the account being built.
func (b *Builder) WithID(id uuid.UUID) *Builder {
	b.id = id
	return b
}

// WithNumber sets the globally unique account number.
func (b *Builder) WithNumber(number string) *Builder {
	b.number = number
	return b
}

// WithOwner sets the owning user. Mandatory.
func (b *Builder) WithOwner(ownerID uuid.UUID) *Builder {
	b.ownerID = ownerID
	return b
}

// WithName sets the display name of the account.
func (b *Builder) WithName(name string) *Builder {
	b.name = name
	return b
}

// WithType sets the account type. Fixed once the account is built.
func (b *Builder) WithType(t Type) *Builder {
	b.accountType = t
	return b
}

// WithStatus sets the status. Used when hydrating from a data store; new
// accounts start in PENDING_APPROVAL.
func (b *Builder) WithStatus(s Status) *Builder {
	b.status = s
	return b
}

// WithInitialBalance sets the opening balance from its exact decimal string.
func (b *Builder) WithInitialBalance(amount string) *Builder {
	b.initialBalance = amount
	return b
}

// WithMinimumBalance sets the minimum balance floor, for hydration from a store.
func (b *Builder) WithMinimumBalance(amount string) *Builder {
	b.minimumBalance = amount
	return b
}

// WithOverdraftLimit sets the overdraft limit, for hydration from a store.
func (b *Builder) WithOverdraftLimit(amount string) *Builder {
	b.overdraftLimit = amount
	return b
}

// WithCurrency sets the account currency.
func (b *Builder) WithCurrency(code currency.Code) *Builder {
	b.currency = code
	return b
}

// WithCreatedAt sets the creation timestamp, for hydration from a store.
func (b *Builder) WithCreatedAt(t time.Time) *Builder {
	b.createdAt = t
	return b
}

// WithUpdatedAt sets the last-updated timestamp, for hydration from a store.
func (b *Builder) WithUpdatedAt(t time.Time) *Builder {
	b.updatedAt = t
	return b
}

// WithClosedAt sets the closure timestamp, for hydration from a store.
func (b *Builder) WithClosedAt(t *time.Time) *Builder {
	b.closedAt = t
	return b
}

// Build validates all invariants and returns the Account.
func (b *Builder) Build() (*Account, error) {
	if b.ownerID == uuid.Nil {
		return nil, domain.NewValidationError("ownerId", "owner is required")
	}
	if !b.accountType.IsValid() {
		return nil, domain.NewValidationError("type", "unknown account type")
	}
	if !b.status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown account status")
	}

	balance, err := money.NewFromString(b.initialBalance, b.currency)
	if err != nil {
		return nil, domain.NewValidationError("initialBalance", err.Error())
	}
	if balance.IsNegative() {
		return nil, domain.NewValidationError("initialBalance", "must not be negative")
	}
	minBalance, err := money.NewFromString(b.minimumBalance, b.currency)
	if err != nil {
		return nil, domain.NewValidationError("minimumBalance", err.Error())
	}
	overdraft, err := money.NewFromString(b.overdraftLimit, b.currency)
	if err != nil {
		return nil, domain.NewValidationError("overdraftLimit", err.Error())
	}

	return &Account{
		ID:               b.id,
		Number:           b.number,
		OwnerID:          b.ownerID,
		Name:             b.name,
		Type:             b.accountType,
		Status:           b.status,
		Balance:          balance,
		AvailableBalance: balance,
		MinimumBalance:   minBalance,
		OverdraftLimit:   overdraft,
		CreatedAt:        b.createdAt,
		UpdatedAt:        b.updatedAt,
		ClosedAt:         b.closedAt,
	}, nil
}
