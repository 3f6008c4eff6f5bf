package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is the accounts table row. Balances are stored as exact numerics;
// a negative balance is legal down to the overdraft limit.
type Account struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Number           string          `gorm:"uniqueIndex;not null;size:20"`
	OwnerID          uuid.UUID       `gorm:"type:uuid;index;not null"`
	Name             string          `gorm:"size:100"`
	Type             string          `gorm:"size:20;not null"`
	Status           string          `gorm:"size:20;not null;index"`
	Balance          decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	AvailableBalance decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	MinimumBalance   decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	OverdraftLimit   decimal.Decimal `gorm:"type:numeric(20,4);not null"`
	Currency         string          `gorm:"type:varchar(3);not null;default:'USD'"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// TableName specifies the table name for the Account model.
func (Account) TableName() string {
	return "accounts"
}

// Transaction is the transactions table row. Terminal rows never change;
// the balance snapshot columns are set only on completion.
type Transaction struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	Reference      string           `gorm:"uniqueIndex;not null;size:30"`
	Type           string           `gorm:"size:20;not null"`
	Status         string           `gorm:"size:20;not null;index"`
	Amount         decimal.Decimal  `gorm:"type:numeric(20,4);not null"`
	Fee            decimal.Decimal  `gorm:"type:numeric(20,4);not null"`
	Currency       string           `gorm:"type:varchar(3);not null"`
	FromAccountID  *uuid.UUID       `gorm:"type:uuid;index"`
	ToAccountID    *uuid.UUID       `gorm:"type:uuid;index"`
	FromBalance    *decimal.Decimal `gorm:"type:numeric(20,4)"`
	ToBalance      *decimal.Decimal `gorm:"type:numeric(20,4)"`
	IdempotencyKey string           `gorm:"index;size:64"`
	FailureReason  string
	CreatedAt      time.Time `gorm:"index"`
	ProcessedAt    *time.Time
}

// TableName specifies the table name for the Transaction model.
func (Transaction) TableName() string {
	return "transactions"
}

// AuditEntry is the audit_entries table row. Append-only: rows are inserted
// once and never updated or deleted.
type AuditEntry struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID     *uuid.UUID `gorm:"type:uuid;index"`
	Action     string     `gorm:"size:40;not null;index"`
	Severity   string     `gorm:"size:10;not null;index"`
	EntityType string     `gorm:"size:20;index:idx_audit_entity"`
	EntityID   string     `gorm:"size:40;index:idx_audit_entity"`
	OldValue   string     `gorm:"type:text"`
	NewValue   string     `gorm:"type:text"`
	Success    bool       `gorm:"not null"`
	RiskScore  int        `gorm:"not null;index"`
	Timestamp  time.Time  `gorm:"not null;index"`
}

// TableName specifies the table name for the AuditEntry model.
func (AuditEntry) TableName() string {
	return "audit_entries"
}
