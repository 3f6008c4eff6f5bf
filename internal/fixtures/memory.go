// Package fixtures provides in-memory repository and unit-of-work fakes with
// real transaction semantics: a Do body that returns an error rolls the store
// back to its pre-transaction snapshot. Service tests share these fakes.
package fixtures

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/corebank/ledger/pkg/domain/ledgertx"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/google/uuid"
)

// MemoryStore backs the fake repositories. Test hooks allow injecting store
// failures for specific paths.
type MemoryStore struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]*account.Account
	transactions map[uuid.UUID]*ledgertx.Transaction
	auditEntries []*audit.Entry

	// Test hooks.
	FailAuditWrites  bool
	AccountCreateErr error
	TxCreateErr      error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[uuid.UUID]*account.Account),
		transactions: make(map[uuid.UUID]*ledgertx.Transaction),
	}
}

type snapshot struct {
	accounts     map[uuid.UUID]*account.Account
	transactions map[uuid.UUID]*ledgertx.Transaction
	auditLen     int
}

func cloneAccount(a *account.Account) *account.Account {
	c := *a
	if a.ClosedAt != nil {
		t := *a.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

func cloneTransaction(tx *ledgertx.Transaction) *ledgertx.Transaction {
	c := *tx
	if tx.FromAccountID != nil {
		id := *tx.FromAccountID
		c.FromAccountID = &id
	}
	if tx.ToAccountID != nil {
		id := *tx.ToAccountID
		c.ToAccountID = &id
	}
	if tx.FromBalance != nil {
		b := *tx.FromBalance
		c.FromBalance = &b
	}
	if tx.ToBalance != nil {
		b := *tx.ToBalance
		c.ToBalance = &b
	}
	if tx.ProcessedAt != nil {
		t := *tx.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

func (s *MemoryStore) take() snapshot {
	accounts := make(map[uuid.UUID]*account.Account, len(s.accounts))
	for id, a := range s.accounts {
		accounts[id] = cloneAccount(a)
	}
	transactions := make(map[uuid.UUID]*ledgertx.Transaction, len(s.transactions))
	for id, tx := range s.transactions {
		transactions[id] = cloneTransaction(tx)
	}
	return snapshot{accounts: accounts, transactions: transactions, auditLen: len(s.auditEntries)}
}

func (s *MemoryStore) restore(snap snapshot) {
	s.accounts = snap.accounts
	s.transactions = snap.transactions
	s.auditEntries = s.auditEntries[:snap.auditLen]
}

// Accounts returns a cloned view of all stored accounts, for assertions.
func (s *MemoryStore) Accounts() []*account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*account.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, cloneAccount(a))
	}
	return out
}

// Transactions returns a cloned view of all stored transactions, for assertions.
func (s *MemoryStore) Transactions() []*ledgertx.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ledgertx.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, cloneTransaction(tx))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// AuditEntries returns the recorded audit entries in append order.
func (s *MemoryStore) AuditEntries() []*audit.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*audit.Entry, len(s.auditEntries))
	copy(out, s.auditEntries)
	return out
}

// MemoryUoW is a UnitOfWork over a MemoryStore. Do serializes transactions
// on the store mutex and restores the snapshot when the body errors.
type MemoryUoW struct {
	store *MemoryStore
	inTx  bool
}

// NewMemoryUoW creates a UnitOfWork over store.
func NewMemoryUoW(store *MemoryStore) *MemoryUoW {
	return &MemoryUoW{store: store}
}

// Do implements repository.UnitOfWork.
func (u *MemoryUoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if u.inTx {
		return fn(u)
	}
	u.store.mu.Lock()
	defer u.store.mu.Unlock()
	snap := u.store.take()
	txUow := &MemoryUoW{store: u.store, inTx: true}
	if err := fn(txUow); err != nil {
		u.store.restore(snap)
		return err
	}
	return nil
}

// GetRepository implements repository.UnitOfWork.
func (u *MemoryUoW) GetRepository(repoType reflect.Type) (any, error) {
	switch repoType {
	case reflect.TypeOf((*repository.AccountRepository)(nil)).Elem():
		return &memoryAccountRepo{store: u.store}, nil
	case reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem():
		return &memoryTransactionRepo{store: u.store}, nil
	case reflect.TypeOf((*repository.AuditRepository)(nil)).Elem():
		return &memoryAuditRepo{store: u.store}, nil
	}
	return nil, domain.ErrNotFound
}

// AccountRepository implements repository.UnitOfWork.
func (u *MemoryUoW) AccountRepository() (repository.AccountRepository, error) {
	return &memoryAccountRepo{store: u.store}, nil
}

// TransactionRepository implements repository.UnitOfWork.
func (u *MemoryUoW) TransactionRepository() (repository.TransactionRepository, error) {
	return &memoryTransactionRepo{store: u.store}, nil
}

// AuditRepository implements repository.UnitOfWork.
func (u *MemoryUoW) AuditRepository() (repository.AuditRepository, error) {
	return &memoryAuditRepo{store: u.store}, nil
}

type memoryAccountRepo struct {
	store *MemoryStore
}

func (r *memoryAccountRepo) Get(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	a, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(a), nil
}

func (r *memoryAccountRepo) GetByNumber(ctx context.Context, number string) (*account.Account, error) {
	for _, a := range r.store.accounts {
		if a.Number == number {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryAccountRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*account.Account, error) {
	var out []*account.Account
	for _, a := range r.store.accounts {
		if a.OwnerID == ownerID {
			out = append(out, cloneAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryAccountRepo) Create(ctx context.Context, a *account.Account) error {
	if r.store.AccountCreateErr != nil {
		return r.store.AccountCreateErr
	}
	for _, existing := range r.store.accounts {
		if existing.Number == a.Number {
			return domain.ErrAlreadyExists
		}
	}
	r.store.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *memoryAccountRepo) Update(ctx context.Context, a *account.Account) error {
	if _, ok := r.store.accounts[a.ID]; !ok {
		return domain.ErrNotFound
	}
	r.store.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (r *memoryAccountRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.store.accounts[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.store.accounts, id)
	return nil
}

type memoryTransactionRepo struct {
	store *MemoryStore
}

func (r *memoryTransactionRepo) Get(ctx context.Context, id uuid.UUID) (*ledgertx.Transaction, error) {
	tx, ok := r.store.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (r *memoryTransactionRepo) GetByReference(ctx context.Context, reference string) (*ledgertx.Transaction, error) {
	for _, tx := range r.store.transactions {
		if tx.Reference == reference {
			return cloneTransaction(tx), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *memoryTransactionRepo) GetByIdempotencyKey(ctx context.Context, key string) (*ledgertx.Transaction, error) {
	var latest *ledgertx.Transaction
	for _, tx := range r.store.transactions {
		if tx.IdempotencyKey != key {
			continue
		}
		if latest == nil || tx.CreatedAt.After(latest.CreatedAt) {
			latest = tx
		}
	}
	if latest == nil {
		return nil, domain.ErrNotFound
	}
	return cloneTransaction(latest), nil
}

func (r *memoryTransactionRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*ledgertx.Transaction, error) {
	var out []*ledgertx.Transaction
	for _, tx := range r.store.transactions {
		fromMatch := tx.FromAccountID != nil && *tx.FromAccountID == accountID
		toMatch := tx.ToAccountID != nil && *tx.ToAccountID == accountID
		if fromMatch || toMatch {
			out = append(out, cloneTransaction(tx))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryTransactionRepo) Create(ctx context.Context, tx *ledgertx.Transaction) error {
	if r.store.TxCreateErr != nil {
		return r.store.TxCreateErr
	}
	for _, existing := range r.store.transactions {
		if existing.Reference == tx.Reference {
			return domain.ErrAlreadyExists
		}
	}
	r.store.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

func (r *memoryTransactionRepo) Update(ctx context.Context, tx *ledgertx.Transaction) error {
	if _, ok := r.store.transactions[tx.ID]; !ok {
		return domain.ErrNotFound
	}
	r.store.transactions[tx.ID] = cloneTransaction(tx)
	return nil
}

type memoryAuditRepo struct {
	store *MemoryStore
}

func (r *memoryAuditRepo) Create(ctx context.Context, e *audit.Entry) error {
	if r.store.FailAuditWrites {
		return domain.ErrAuditWriteFailure
	}
	clone := *e
	r.store.auditEntries = append(r.store.auditEntries, &clone)
	return nil
}

func (r *memoryAuditRepo) filter(keep func(*audit.Entry) bool) []*audit.Entry {
	var out []*audit.Entry
	for _, e := range r.store.auditEntries {
		if keep(e) {
			clone := *e
			out = append(out, &clone)
		}
	}
	// Newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (r *memoryAuditRepo) ByUser(ctx context.Context, userID uuid.UUID) ([]*audit.Entry, error) {
	return r.filter(func(e *audit.Entry) bool {
		return e.UserID != nil && *e.UserID == userID
	}), nil
}

func (r *memoryAuditRepo) ByAction(ctx context.Context, action audit.Action) ([]*audit.Entry, error) {
	return r.filter(func(e *audit.Entry) bool { return e.Action == action }), nil
}

func (r *memoryAuditRepo) ByEntity(ctx context.Context, entityType, entityID string) ([]*audit.Entry, error) {
	return r.filter(func(e *audit.Entry) bool {
		return e.EntityType == entityType && e.EntityID == entityID
	}), nil
}

func (r *memoryAuditRepo) BySeverity(ctx context.Context, severity audit.Severity) ([]*audit.Entry, error) {
	return r.filter(func(e *audit.Entry) bool { return e.Severity == severity }), nil
}

func (r *memoryAuditRepo) ByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Entry, error) {
	return r.filter(func(e *audit.Entry) bool {
		return !e.Timestamp.Before(from) && !e.Timestamp.After(to)
	}), nil
}

func (r *memoryAuditRepo) ByRiskThreshold(ctx context.Context, minScore int) ([]*audit.Entry, error) {
	return r.filter(func(e *audit.Entry) bool { return e.RiskScore >= minScore }), nil
}

func (r *memoryAuditRepo) CountFailuresByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, e := range r.store.auditEntries {
		if e.UserID != nil && *e.UserID == userID && !e.Success {
			count++
		}
	}
	return count, nil
}
