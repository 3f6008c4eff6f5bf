// Package dto defines the boundary snapshots returned to external callers.
// Monetary amounts are serialized as exact decimal strings, never floats.
package dto

import (
	"time"

	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/google/uuid"
)

// AccountRead is the outbound account snapshot for queries and reporting.
type AccountRead struct {
	ID               uuid.UUID
	Number           string
	OwnerID          uuid.UUID
	Name             string
	Type             string
	Status           string
	Balance          string // exact decimal string, e.g. "150.00"
	AvailableBalance string
	MinimumBalance   string
	OverdraftLimit   string
	Currency         string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ClosedAt         *time.Time
}

// NewAccountRead maps an Account aggregate to its outbound snapshot.
func NewAccountRead(a *account.Account) *AccountRead {
	return &AccountRead{
		ID:               a.ID,
		Number:           a.Number,
		OwnerID:          a.OwnerID,
		Name:             a.Name,
		Type:             string(a.Type),
		Status:           string(a.Status),
		Balance:          a.Balance.StringFixed(),
		AvailableBalance: a.AvailableBalance.StringFixed(),
		MinimumBalance:   a.MinimumBalance.StringFixed(),
		OverdraftLimit:   a.OverdraftLimit.StringFixed(),
		Currency:         a.Currency().String(),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		ClosedAt:         a.ClosedAt,
	}
}
