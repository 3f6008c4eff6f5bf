package dto

import (
	"time"

	"github.com/corebank/ledger/pkg/domain/ledgertx"
	"github.com/google/uuid"
)

// TransactionRead is the outbound transaction snapshot.
type TransactionRead struct {
	ID            uuid.UUID
	Reference     string
	Type          string
	Status        string
	Amount        string // exact decimal string
	Fee           string
	Currency      string
	FromAccountID *uuid.UUID
	ToAccountID   *uuid.UUID
	FromBalance   *string // debit-leg balance after completion
	ToBalance     *string // credit-leg balance after completion
	FailureReason string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// NewTransactionRead maps a Transaction entity to its outbound snapshot.
func NewTransactionRead(tx *ledgertx.Transaction) *TransactionRead {
	read := &TransactionRead{
		ID:            tx.ID,
		Reference:     tx.Reference,
		Type:          string(tx.Type),
		Status:        string(tx.Status),
		Amount:        tx.Amount.StringFixed(),
		Fee:           tx.Fee.StringFixed(),
		Currency:      tx.Currency(),
		FromAccountID: tx.FromAccountID,
		ToAccountID:   tx.ToAccountID,
		FailureReason: tx.FailureReason,
		CreatedAt:     tx.CreatedAt,
		ProcessedAt:   tx.ProcessedAt,
	}
	if tx.FromBalance != nil {
		s := tx.FromBalance.StringFixed()
		read.FromBalance = &s
	}
	if tx.ToBalance != nil {
		s := tx.ToBalance.StringFixed()
		read.ToBalance = &s
	}
	return read
}
