package repository

import (
	"context"

	"github.com/corebank/ledger/pkg/currency"
	"github.com/corebank/ledger/pkg/domain/ledgertx"
	"github.com/corebank/ledger/pkg/money"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a transaction repository bound to the
// given session.
func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Get(ctx context.Context, id uuid.UUID) (*ledgertx.Transaction, error) {
	var row Transaction
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapTransactionRowToDomain(&row)
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*ledgertx.Transaction, error) {
	var row Transaction
	if err := r.db.WithContext(ctx).First(&row, "reference = ?", reference).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapTransactionRowToDomain(&row)
}

func (r *transactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*ledgertx.Transaction, error) {
	var row Transaction
	if err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", key).
		Order("created_at DESC").
		First(&row).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	return mapTransactionRowToDomain(&row)
}

func (r *transactionRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*ledgertx.Transaction, error) {
	var rows []Transaction
	if err := r.db.WithContext(ctx).
		Where("from_account_id = ? OR to_account_id = ?", accountID, accountID).
		Order("created_at").
		Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	result := make([]*ledgertx.Transaction, 0, len(rows))
	for i := range rows {
		tx, err := mapTransactionRowToDomain(&rows[i])
		if err != nil {
			return nil, err
		}
		result = append(result, tx)
	}
	return result, nil
}

func (r *transactionRepository) Create(ctx context.Context, tx *ledgertx.Transaction) error {
	row := mapTransactionDomainToRow(tx)
	return WrapError(func() error {
		return r.db.WithContext(ctx).Create(&row).Error
	})
}

func (r *transactionRepository) Update(ctx context.Context, tx *ledgertx.Transaction) error {
	row := mapTransactionDomainToRow(tx)
	return WrapError(func() error {
		res := r.db.WithContext(ctx).Model(&Transaction{}).Where("id = ?", tx.ID).Updates(map[string]any{
			"status":         row.Status,
			"from_balance":   row.FromBalance,
			"to_balance":     row.ToBalance,
			"failure_reason": row.FailureReason,
			"processed_at":   row.ProcessedAt,
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

func mapTransactionDomainToRow(tx *ledgertx.Transaction) Transaction {
	row := Transaction{
		ID:             tx.ID,
		Reference:      tx.Reference,
		Type:           string(tx.Type),
		Status:         string(tx.Status),
		Amount:         tx.Amount.Amount(),
		Fee:            tx.Fee.Amount(),
		Currency:       tx.Currency(),
		FromAccountID:  tx.FromAccountID,
		ToAccountID:    tx.ToAccountID,
		IdempotencyKey: tx.IdempotencyKey,
		FailureReason:  tx.FailureReason,
		CreatedAt:      tx.CreatedAt,
		ProcessedAt:    tx.ProcessedAt,
	}
	if tx.FromBalance != nil {
		d := tx.FromBalance.Amount()
		row.FromBalance = &d
	}
	if tx.ToBalance != nil {
		d := tx.ToBalance.Amount()
		row.ToBalance = &d
	}
	return row
}

func mapTransactionRowToDomain(row *Transaction) (*ledgertx.Transaction, error) {
	code := currency.Code(row.Currency)
	amount, err := money.New(row.Amount, code)
	if err != nil {
		return nil, err
	}
	fee, err := money.New(row.Fee, code)
	if err != nil {
		return nil, err
	}
	tx := &ledgertx.Transaction{
		ID:             row.ID,
		Reference:      row.Reference,
		Type:           ledgertx.Type(row.Type),
		Status:         ledgertx.Status(row.Status),
		Amount:         amount,
		Fee:            fee,
		FromAccountID:  row.FromAccountID,
		ToAccountID:    row.ToAccountID,
		IdempotencyKey: row.IdempotencyKey,
		FailureReason:  row.FailureReason,
		CreatedAt:      row.CreatedAt,
		ProcessedAt:    row.ProcessedAt,
	}
	if tx.FromBalance, err = mapBalanceSnapshot(row.FromBalance, code); err != nil {
		return nil, err
	}
	if tx.ToBalance, err = mapBalanceSnapshot(row.ToBalance, code); err != nil {
		return nil, err
	}
	return tx, nil
}

func mapBalanceSnapshot(d *decimal.Decimal, code currency.Code) (*money.Money, error) {
	if d == nil {
		return nil, nil
	}
	m, err := money.New(*d, code)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
