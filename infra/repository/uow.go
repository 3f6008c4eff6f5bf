package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/corebank/ledger/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
//
// Why is GetRepository part of UoW?
// - Ensures all repositories use the same DB session/transaction for true atomicity.
// - Keeps service code clean and focused on business logic.
// - Centralizes repository wiring and registry for maintainability.
// - Prevents accidental use of the wrong DB session (which would break transactionality).
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			reflect.TypeOf((*repository.AccountRepository)(nil)).Elem():     func(db *gorm.DB) any { return NewAccountRepository(db) },
			reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem(): func(db *gorm.DB) any { return NewTransactionRepository(db) },
			reflect.TypeOf((*repository.AuditRepository)(nil)).Elem():       func(db *gorm.DB) any { return NewAuditRepository(db) },
		},
	}
}

// Do runs the given function in a transaction boundary, providing a UoW with
// repository access bound to that transaction. A nested Do joins the
// enclosing transaction rather than opening a second one.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.tx != nil {
		return fn(u)
	}
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnUow := &UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry}
		return fn(txnUow)
	})
}

// GetRepository provides generic, type-safe access to repositories using the
// transaction session.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", repoType)
	}
	return constructor(u.session()), nil
}

// AccountRepository returns the account repository bound to the current session.
func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	repo, err := u.GetRepository(reflect.TypeOf((*repository.AccountRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repo.(repository.AccountRepository), nil
}

// TransactionRepository returns the transaction repository bound to the current session.
func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	repo, err := u.GetRepository(reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repo.(repository.TransactionRepository), nil
}

// AuditRepository returns the audit repository bound to the current session.
func (u *UoW) AuditRepository() (repository.AuditRepository, error) {
	repo, err := u.GetRepository(reflect.TypeOf((*repository.AuditRepository)(nil)).Elem())
	if err != nil {
		return nil, err
	}
	return repo.(repository.AuditRepository), nil
}

// session returns the transaction when inside Do, the root session otherwise.
func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}
