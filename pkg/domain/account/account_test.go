package account_test

import (
	"testing"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/corebank/ledger/pkg/money"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newActiveAccount(t *testing.T, balance string) *account.Account {
	t.Helper()
	a, err := account.New().
		WithOwner(uuid.New()).
		WithNumber("1000000001").
		WithType(account.TypeChecking).
		WithStatus(account.StatusActive).
		WithInitialBalance(balance).
		WithCurrency("USD").
		Build()
	require.NoError(t, err)
	return a
}

func TestBuilder_Defaults(t *testing.T) {
	a, err := account.New().WithOwner(uuid.New()).Build()
	require.NoError(t, err)

	assert.Equal(t, account.StatusPendingApproval, a.Status)
	assert.Equal(t, account.TypeChecking, a.Type)
	assert.True(t, a.Balance.IsZero())
	assert.True(t, a.Balance.Equals(a.AvailableBalance))
	assert.True(t, a.OverdraftLimit.IsZero())
	assert.Nil(t, a.ClosedAt)
}

func TestBuilder_Validation(t *testing.T) {
	_, err := account.New().Build()
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = account.New().WithOwner(uuid.New()).WithInitialBalance("-1.00").Build()
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = account.New().WithOwner(uuid.New()).WithCurrency("nope").Build()
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = account.New().WithOwner(uuid.New()).WithType("PLATINUM").Build()
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestApplyDelta_CreditAndDebit(t *testing.T) {
	a := newActiveAccount(t, "100.00")

	got, err := a.ApplyDelta(money.MustParse("50.00", "USD"), money.Money{})
	require.NoError(t, err)
	assert.Equal(t, "150.00", got.StringFixed())
	assert.True(t, a.AvailableBalance.Equals(a.Balance))

	got, err = a.ApplyDelta(money.MustParse("-150.00", "USD"), money.Money{})
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.StringFixed())
}

func TestApplyDelta_InsufficientFunds(t *testing.T) {
	a := newActiveAccount(t, "100.00")

	_, err := a.ApplyDelta(money.MustParse("-150.00", "USD"), money.Money{})
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	var ife *domain.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "100.00", ife.Available.StringFixed())
	assert.Equal(t, "150.00", ife.Requested.StringFixed())

	// No mutation on failure.
	assert.Equal(t, "100.00", a.Balance.StringFixed())
	assert.Equal(t, "100.00", a.AvailableBalance.StringFixed())
}

func TestApplyDelta_OverdraftLimit(t *testing.T) {
	a := newActiveAccount(t, "100.00")
	a.OverdraftLimit = money.MustParse("50.00", "USD")

	_, err := a.ApplyDelta(money.MustParse("-150.00", "USD"), money.Money{})
	require.NoError(t, err)
	assert.Equal(t, "-50.00", a.Balance.StringFixed())

	_, err = a.ApplyDelta(money.MustParse("-0.01", "USD"), money.Money{})
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestApplyDelta_Floor(t *testing.T) {
	a := newActiveAccount(t, "100.00")

	// A floor above the overdraft limit wins.
	_, err := a.ApplyDelta(money.MustParse("-80.00", "USD"), money.MustParse("50.00", "USD"))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	_, err = a.ApplyDelta(money.MustParse("-50.00", "USD"), money.MustParse("50.00", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "50.00", a.Balance.StringFixed())
}

func TestApplyDelta_CurrencyMismatch(t *testing.T) {
	a := newActiveAccount(t, "100.00")
	_, err := a.ApplyDelta(money.MustParse("10.00", "EUR"), money.Money{})
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
	assert.Equal(t, "100.00", a.Balance.StringFixed())
}

func TestApplyDelta_ClosedAccount(t *testing.T) {
	a := newActiveAccount(t, "0.00")
	require.NoError(t, a.Close())

	_, err := a.ApplyDelta(money.MustParse("10.00", "USD"), money.Money{})
	assert.ErrorIs(t, err, account.ErrAccountClosed)
	assert.True(t, a.Balance.IsZero())
}

func TestClose(t *testing.T) {
	a := newActiveAccount(t, "100.00")
	assert.ErrorIs(t, a.Close(), domain.ErrNonZeroBalance)
	assert.Equal(t, account.StatusActive, a.Status)

	_, err := a.ApplyDelta(money.MustParse("-100.00", "USD"), money.Money{})
	require.NoError(t, err)

	require.NoError(t, a.Close())
	assert.Equal(t, account.StatusClosed, a.Status)
	require.NotNil(t, a.ClosedAt)
}

func TestChangeStatus_StampsClosedAt(t *testing.T) {
	a := newActiveAccount(t, "0.00")
	require.NoError(t, a.ChangeStatus(account.StatusFrozen))
	assert.Nil(t, a.ClosedAt)

	require.NoError(t, a.ChangeStatus(account.StatusClosed))
	assert.NotNil(t, a.ClosedAt)
}

func TestChangeStatus_Illegal(t *testing.T) {
	a := newActiveAccount(t, "0.00")
	err := a.ChangeStatus(account.StatusPendingApproval)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	var ste *domain.StateTransitionError
	require.ErrorAs(t, err, &ste)
	assert.Equal(t, "ACTIVE", ste.From)
	assert.Equal(t, "PENDING_APPROVAL", ste.To)
}
