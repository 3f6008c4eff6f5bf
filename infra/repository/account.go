package repository

import (
	"context"

	"github.com/corebank/ledger/pkg/currency"
	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/corebank/ledger/pkg/money"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates an account repository bound to the given
// session.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	var row Account
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapAccountRowToDomain(&row)
}

func (r *accountRepository) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	var row Account
	if err := r.db.WithContext(ctx).First(&row, "number = ?", number).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapAccountRowToDomain(&row)
}

func (r *accountRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	var rows []Account
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	result := make([]*account.Account, 0, len(rows))
	for i := range rows {
		acct, err := mapAccountRowToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, acct)
	}
	return result, nil
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	row := mapAccountDomainToRow(a)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&row).Error
	})
}

func (r *accountRepository) Update(ctx context.Context, a *account.Account) error {
	row := mapAccountDomainToRow(a)
	return WrapError(func() error {
		res := r.db.WithContext(ctx).Model(&Account{}).Where("id = ?", a.ID).Updates(map[string]any{
			"status":            row.Status,
			"name":              row.Name,
			"balance":           row.Balance,
			"available_balance": row.AvailableBalance,
			"minimum_balance":   row.MinimumBalance,
			"overdraft_limit":   row.OverdraftLimit,
			"updated_at":        row.UpdatedAt,
			"closed_at":         row.ClosedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return WrapError(func() error {
		res := r.db.WithContext(ctx).Delete(&Account{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func mapAccountDomainToRow(a *account.Account) Account {
	return Account{
		ID:               a.ID,
		Number:           a.Number,
		OwnerID:          a.OwnerID,
		Name:             a.Name,
		Type:             string(a.Type),
		Status:           string(a.Status),
		Balance:          a.Balance.Amount(),
		AvailableBalance: a.AvailableBalance.Amount(),
		MinimumBalance:   a.MinimumBalance.Amount(),
		OverdraftLimit:   a.OverdraftLimit.Amount(),
		Currency:         a.Currency().String(),
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		ClosedAt:         a.ClosedAt,
	}
}

// mapAccountRowToDomain hydrates the aggregate directly: the builder rejects
// negative opening balances, but a stored account may legally sit inside its
// overdraft.
func mapAccountRowToDomain(row *Account) (*account.Account, error) {
	code := currency.Code(row.Currency)
	balance, err := money.New(row.Balance, code)
	if err != nil {
		return nil, err
	}
	available, err := money.New(row.AvailableBalance, code)
	if err != nil {
		return nil, err
	}
	minBalance, err := money.New(row.MinimumBalance, code)
	if err != nil {
		return nil, err
	}
	overdraft, err := money.New(row.OverdraftLimit, code)
	if err != nil {
		return nil, err
	}
	return &account.Account{
		ID:               row.ID,
		Number:           row.Number,
		OwnerID:          row.OwnerID,
		Name:             row.Name,
		Type:             account.Type(row.Type),
		Status:           account.Status(row.Status),
		Balance:          balance,
		AvailableBalance: available,
		MinimumBalance:   minBalance,
		OverdraftLimit:   overdraft,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		ClosedAt:         row.ClosedAt,
	}, nil
}
