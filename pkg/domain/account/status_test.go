package account_test

import (
	"testing"

	"github.com/corebank/ledger/pkg/domain/account"
	"github.com/stretchr/testify/assert"
)

var allStatuses = []account.Status{
	account.StatusPendingApproval,
	account.StatusActive,
	account.StatusInactive,
	account.StatusFrozen,
	account.StatusSuspended,
	account.StatusClosed,
}

func TestCanTransition_FullGraph(t *testing.T) {
	legal := map[account.Status][]account.Status{
		account.StatusPendingApproval: {account.StatusActive},
		account.StatusActive: {
			account.StatusFrozen, account.StatusSuspended,
			account.StatusInactive, account.StatusClosed,
		},
		account.StatusFrozen:    {account.StatusActive, account.StatusClosed},
		account.StatusSuspended: {account.StatusActive, account.StatusClosed},
		account.StatusInactive:  {account.StatusActive, account.StatusClosed},
		account.StatusClosed:    {},
	}

	for _, from := range allStatuses {
		allowed := map[account.Status]bool{}
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range allStatuses {
			got := account.CanTransition(from, to)
			assert.Equal(t, allowed[to], got, "%s -> %s", from, to)
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	assert.True(t, account.StatusClosed.IsTerminal())
	for _, s := range allStatuses {
		if s == account.StatusClosed {
			continue
		}
		assert.False(t, s.IsTerminal(), s)
	}
}

func TestStatus_IsValid(t *testing.T) {
	for _, s := range allStatuses {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, account.Status("ARCHIVED").IsValid())
}

func TestType_IsValid(t *testing.T) {
	for _, typ := range []account.Type{
		account.TypeChecking, account.TypeSavings,
		account.TypeCredit, account.TypeInvestment,
	} {
		assert.True(t, typ.IsValid(), typ)
	}
	assert.False(t, account.Type("PLATINUM").IsValid())
}
