package processor_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/corebank/ledger/internal/fixtures"
	"github.com/corebank/ledger/pkg/commands"
	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/corebank/ledger/pkg/domain/audit"
	"github.com/corebank/ledger/pkg/domain/ledgertx"
	"github.com/corebank/ledger/pkg/locks"
	"github.com/corebank/ledger/pkg/money"
	"github.com/corebank/ledger/pkg/repository"
	"github.com/corebank/ledger/pkg/service/auditlog"
	"github.com/corebank/ledger/pkg/service/ledger"
	"github.com/corebank/ledger/pkg/service/processor"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type stack struct {
	store     *fixtures.MemoryStore
	uow       *fixtures.MemoryUoW
	ledger    *ledger.Service
	processor *processor.Service
	auditor   *auditlog.Service
}

func newStack(t *testing.T) *stack {
	t.Helper()
	store := fixtures.NewMemoryStore()
	uow := fixtures.NewMemoryUoW(store)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	lockMgr := locks.NewManager()
	auditor := auditlog.NewService(uow, logger, 16)
	ledgerSvc := ledger.NewService(uow, lockMgr, auditor, "10", 5, logger)
	procSvc := processor.NewService(uow, lockMgr, ledgerSvc, auditor, logger)
	return &stack{store: store, uow: uow, ledger: ledgerSvc, processor: procSvc, auditor: auditor}
}

// activeAccount opens an account with the given balance and activates it.
func (s *stack) activeAccount(t *testing.T, balance, currencyCode string) uuid.UUID {
	t.Helper()
	read, err := s.ledger.OpenAccount(context.Background(), commands.OpenAccount{
		OwnerID:        uuid.New(),
		Type:           "CHECKING",
		Name:           "Main",
		InitialBalance: balance,
		Currency:       currencyCode,
	})
	require.NoError(t, err)
	_, err = s.ledger.ChangeStatus(context.Background(), commands.ChangeAccountStatus{
		AccountID: read.ID,
		NewStatus: string(account.StatusActive),
	})
	require.NoError(t, err)
	return read.ID
}

func (s *stack) balance(t *testing.T, id uuid.UUID) string {
	t.Helper()
	read, err := s.ledger.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return read.Balance
}

func TestDeposit(t *testing.T) {
	s := newStack(t)
	id := s.activeAccount(t, "100.00", "USD")

	read, err := s.processor.Deposit(context.Background(), commands.Deposit{
		AccountID: id,
		Amount:    "50.00",
		Currency:  "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, string(ledgertx.StatusCompleted), read.Status)
	assert.Equal(t, string(ledgertx.TypeDeposit), read.Type)
	require.NotNil(t, read.ToBalance)
	assert.Equal(t, "150.00", *read.ToBalance)
	assert.Nil(t, read.FromBalance)
	assert.NotNil(t, read.ProcessedAt)
	assert.Equal(t, "150.00", s.balance(t, id))

	last := lastEntry(t, s.store)
	assert.Equal(t, audit.ActionDeposit, last.Action)
	assert.Equal(t, audit.SeverityMedium, last.Severity)
	assert.True(t, last.Success)
}

func TestWithdraw(t *testing.T) {
	s := newStack(t)
	id := s.activeAccount(t, "100.00", "USD")

	read, err := s.processor.Withdraw(context.Background(), commands.Withdraw{
		AccountID: id,
		Amount:    "40.00",
		Currency:  "USD",
	})
	require.NoError(t, err)
	require.NotNil(t, read.FromBalance)
	assert.Equal(t, "60.00", *read.FromBalance)
	assert.Equal(t, "60.00", s.balance(t, id))
}

func TestWithdrawInsufficientFunds(t *testing.T) {
	s := newStack(t)
	id := s.activeAccount(t, "100.00", "USD")

	_, err := s.processor.Withdraw(context.Background(), commands.Withdraw{
		AccountID: id,
		Amount:    "150.00",
		Currency:  "USD",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	var ifErr *domain.InsufficientFundsError
	require.ErrorAs(t, err, &ifErr)
	assert.Equal(t, "100.00", ifErr.Available.StringFixed())
	assert.Equal(t, "150.00", ifErr.Requested.StringFixed())

	// Balance untouched, but the FAILED row and its audit entry committed.
	assert.Equal(t, "100.00", s.balance(t, id))

	txs := s.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, ledgertx.StatusFailed, txs[0].Status)
	assert.NotEmpty(t, txs[0].FailureReason)
	assert.Nil(t, txs[0].FromBalance)

	last := lastEntry(t, s.store)
	assert.Equal(t, audit.ActionTransactionFailed, last.Action)
	assert.Equal(t, audit.SeverityHigh, last.Severity)
	assert.False(t, last.Success)
}

func TestAdjustDirections(t *testing.T) {
	s := newStack(t)

	cases := []struct {
		kind string
		want string
	}{
		{"FEE", "95.00"},
		{"PAYMENT", "95.00"},
		{"INTEREST", "105.00"},
		{"REFUND", "105.00"},
	}
	for _, tc := range cases {
		t.Run(tc.kind, func(t *testing.T) {
			id := s.activeAccount(t, "100.00", "USD")
			_, err := s.processor.Adjust(context.Background(), commands.Adjust{
				AccountID: id,
				Kind:      tc.kind,
				Amount:    "5.00",
				Currency:  "USD",
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, s.balance(t, id))
		})
	}
}

func TestDepositRejectsInactiveAccount(t *testing.T) {
	s := newStack(t)
	read, err := s.ledger.OpenAccount(context.Background(), commands.OpenAccount{
		OwnerID:        uuid.New(),
		Type:           "CHECKING",
		Name:           "Main",
		InitialBalance: "0",
		Currency:       "USD",
	})
	require.NoError(t, err)

	_, err = s.processor.Deposit(context.Background(), commands.Deposit{
		AccountID: read.ID,
		Amount:    "10.00",
		Currency:  "USD",
	})
	assert.ErrorIs(t, err, account.ErrAccountNotActive)
	assert.Empty(t, s.store.Transactions())
}

func TestTransfer(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "100.00", "USD")
	y := s.activeAccount(t, "20.00", "USD")

	read, err := s.processor.Transfer(context.Background(), commands.Transfer{
		FromAccountID: x,
		ToAccountID:   y,
		Amount:        "30.00",
		Currency:      "USD",
	})
	require.NoError(t, err)

	assert.Equal(t, string(ledgertx.StatusCompleted), read.Status)
	require.NotNil(t, read.FromAccountID)
	require.NotNil(t, read.ToAccountID)
	assert.Equal(t, x, *read.FromAccountID)
	assert.Equal(t, y, *read.ToAccountID)
	require.NotNil(t, read.FromBalance)
	require.NotNil(t, read.ToBalance)
	assert.Equal(t, "70.00", *read.FromBalance)
	assert.Equal(t, "50.00", *read.ToBalance)

	assert.Equal(t, "70.00", s.balance(t, x))
	assert.Equal(t, "50.00", s.balance(t, y))

	last := lastEntry(t, s.store)
	assert.Equal(t, audit.ActionTransfer, last.Action)
	assert.Equal(t, read.ID.String(), last.EntityID)
}

func TestTransferValidation(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "100.00", "USD")

	t.Run("same account", func(t *testing.T) {
		_, err := s.processor.Transfer(context.Background(), commands.Transfer{
			FromAccountID: x,
			ToAccountID:   x,
			Amount:        "10.00",
			Currency:      "USD",
		})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown destination", func(t *testing.T) {
		_, err := s.processor.Transfer(context.Background(), commands.Transfer{
			FromAccountID: x,
			ToAccountID:   uuid.New(),
			Amount:        "10.00",
			Currency:      "USD",
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		eur := s.activeAccount(t, "0", "EUR")
		_, err := s.processor.Transfer(context.Background(), commands.Transfer{
			FromAccountID: x,
			ToAccountID:   eur,
			Amount:        "10.00",
			Currency:      "USD",
		})
		assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	})

	t.Run("frozen destination", func(t *testing.T) {
		y := s.activeAccount(t, "0", "USD")
		_, err := s.ledger.ChangeStatus(context.Background(), commands.ChangeAccountStatus{
			AccountID: y,
			NewStatus: string(account.StatusFrozen),
		})
		require.NoError(t, err)

		_, err = s.processor.Transfer(context.Background(), commands.Transfer{
			FromAccountID: x,
			ToAccountID:   y,
			Amount:        "10.00",
			Currency:      "USD",
		})
		assert.ErrorIs(t, err, account.ErrAccountNotActive)
	})

	// None of the rejected transfers left a transaction row.
	assert.Empty(t, s.store.Transactions())
	assert.Equal(t, "100.00", s.balance(t, x))
}

func TestTransferInsufficientFunds(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "20.00", "USD")
	y := s.activeAccount(t, "0", "USD")

	_, err := s.processor.Transfer(context.Background(), commands.Transfer{
		FromAccountID: x,
		ToAccountID:   y,
		Amount:        "30.00",
		Currency:      "USD",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	assert.Equal(t, "20.00", s.balance(t, x))
	assert.Equal(t, "0.00", s.balance(t, y))

	txs := s.store.Transactions()
	require.Len(t, txs, 1)
	assert.Equal(t, ledgertx.StatusFailed, txs[0].Status)
}

func TestTransferIdempotency(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "100.00", "USD")
	y := s.activeAccount(t, "0", "USD")

	cmd := commands.Transfer{
		FromAccountID:  x,
		ToAccountID:    y,
		Amount:         "25.00",
		Currency:       "USD",
		IdempotencyKey: "order-42",
	}
	first, err := s.processor.Transfer(context.Background(), cmd)
	require.NoError(t, err)

	second, err := s.processor.Transfer(context.Background(), cmd)
	require.NoError(t, err)

	// The retry replays the stored result: one balance change, same reference.
	assert.Equal(t, first.Reference, second.Reference)
	assert.Equal(t, "75.00", s.balance(t, x))
	assert.Equal(t, "25.00", s.balance(t, y))
	assert.Len(t, s.store.Transactions(), 1)
}

func TestTransferIdempotencyRetriesAfterFailure(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "10.00", "USD")
	y := s.activeAccount(t, "0", "USD")

	cmd := commands.Transfer{
		FromAccountID:  x,
		ToAccountID:    y,
		Amount:         "25.00",
		Currency:       "USD",
		IdempotencyKey: "order-43",
	}
	_, err := s.processor.Transfer(context.Background(), cmd)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Fund the source; a FAILED key does not pin the failure.
	_, err = s.processor.Deposit(context.Background(), commands.Deposit{
		AccountID: x,
		Amount:    "50.00",
		Currency:  "USD",
	})
	require.NoError(t, err)

	read, err := s.processor.Transfer(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, string(ledgertx.StatusCompleted), read.Status)
	assert.Equal(t, "35.00", s.balance(t, x))
	assert.Equal(t, "25.00", s.balance(t, y))
}

func TestTransferConservesTotal(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "100.00", "USD")
	y := s.activeAccount(t, "100.00", "USD")

	// Opposite-direction transfers interleaved: the lock ordering must not
	// deadlock and the combined balance must be conserved.
	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := s.processor.Transfer(context.Background(), commands.Transfer{
				FromAccountID: x,
				ToAccountID:   y,
				Amount:        "1.00",
				Currency:      "USD",
			})
			return err
		})
		g.Go(func() error {
			_, err := s.processor.Transfer(context.Background(), commands.Transfer{
				FromAccountID: y,
				ToAccountID:   x,
				Amount:        "1.00",
				Currency:      "USD",
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	xBal := money.MustParse(s.balance(t, x), "USD")
	yBal := money.MustParse(s.balance(t, y), "USD")
	total, err := xBal.Add(yBal)
	require.NoError(t, err)
	assert.Equal(t, "200.00", total.StringFixed())
	assert.Len(t, s.store.Transactions(), 50)
}

func TestCancel(t *testing.T) {
	s := newStack(t)
	id := s.activeAccount(t, "0", "USD")

	// A PENDING row whose deltas never committed, as a crash would leave.
	pending, err := ledgertx.New(ledgertx.TypeDeposit, money.MustParse("10.00", "USD"))
	require.NoError(t, err)
	pending.ToAccountID = &id
	require.NoError(t, s.uow.Do(context.Background(), func(uow repository.UnitOfWork) error {
		txRepo, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		return txRepo.Create(context.Background(), pending)
	}))

	read, err := s.processor.Cancel(context.Background(), commands.CancelTransaction{
		Reference: pending.Reference,
	})
	require.NoError(t, err)
	assert.Equal(t, string(ledgertx.StatusCancelled), read.Status)
	assert.NotNil(t, read.ProcessedAt)

	last := lastEntry(t, s.store)
	assert.Equal(t, audit.ActionTransactionCancelled, last.Action)
}

func TestCancelRejectsTerminal(t *testing.T) {
	s := newStack(t)
	id := s.activeAccount(t, "100.00", "USD")

	read, err := s.processor.Withdraw(context.Background(), commands.Withdraw{
		AccountID: id,
		Amount:    "10.00",
		Currency:  "USD",
	})
	require.NoError(t, err)

	_, err = s.processor.Cancel(context.Background(), commands.CancelTransaction{
		Reference: read.Reference,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestGetTransactionAndHistory(t *testing.T) {
	s := newStack(t)
	id := s.activeAccount(t, "100.00", "USD")

	dep, err := s.processor.Deposit(context.Background(), commands.Deposit{
		AccountID: id, Amount: "50.00", Currency: "USD",
	})
	require.NoError(t, err)
	_, err = s.processor.Withdraw(context.Background(), commands.Withdraw{
		AccountID: id, Amount: "30.00", Currency: "USD",
	})
	require.NoError(t, err)

	got, err := s.processor.GetTransaction(context.Background(), dep.Reference)
	require.NoError(t, err)
	assert.Equal(t, dep.ID, got.ID)

	history, err := s.processor.ListByAccount(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, string(ledgertx.TypeDeposit), history[0].Type)
	assert.Equal(t, string(ledgertx.TypeWithdrawal), history[1].Type)

	// Balance history reconstructs from the per-leg snapshots alone.
	require.NotNil(t, history[0].ToBalance)
	require.NotNil(t, history[1].FromBalance)
	assert.Equal(t, "150.00", *history[0].ToBalance)
	assert.Equal(t, "120.00", *history[1].FromBalance)

	_, err = s.processor.GetTransaction(context.Background(), "000000000000000000000000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTransferProceedsWhenSuccessAuditDeferred(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "100.00", "USD")
	y := s.activeAccount(t, "0", "USD")

	// The success entry is MEDIUM: a failed write defers it, the transfer
	// still commits.
	s.store.FailAuditWrites = true
	_, err := s.processor.Transfer(context.Background(), commands.Transfer{
		FromAccountID: x,
		ToAccountID:   y,
		Amount:        "10.00",
		Currency:      "USD",
	})
	require.NoError(t, err)
	assert.Equal(t, "90.00", s.balance(t, x))
	assert.Equal(t, 1, s.auditor.DeferredCount())

	// Once the store recovers the deferred entry flushes.
	s.store.FailAuditWrites = false
	assert.Equal(t, 1, s.auditor.FlushDeferred(context.Background()))
	assert.Equal(t, 0, s.auditor.DeferredCount())
}

func TestFailedTransactionAuditMustCommit(t *testing.T) {
	s := newStack(t)
	x := s.activeAccount(t, "10.00", "USD")
	y := s.activeAccount(t, "0", "USD")

	// TRANSACTION_FAILED is HIGH: if its audit write fails, the whole
	// pipeline rolls back and not even the FAILED row survives.
	s.store.FailAuditWrites = true
	_, err := s.processor.Transfer(context.Background(), commands.Transfer{
		FromAccountID: x,
		ToAccountID:   y,
		Amount:        "25.00",
		Currency:      "USD",
	})
	require.ErrorIs(t, err, domain.ErrAuditWriteFailure)
	assert.Empty(t, s.store.Transactions())
	assert.Equal(t, "10.00", s.balance(t, x))
}

func lastEntry(t *testing.T, store *fixtures.MemoryStore) *audit.Entry {
	t.Helper()
	entries := store.AuditEntries()
	require.NotEmpty(t, entries)
	return entries[len(entries)-1]
}
