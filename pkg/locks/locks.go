// Package locks provides the per-account mutation locks used to serialize
// operations that touch the same accounts. The manager is an injectable,
// explicitly-scoped shared map, never a process-wide singleton: each ledger
// core instance owns one.
//
// Multi-account acquisition always happens in ascending account-id order.
// That total order is the sole deadlock-prevention mechanism, and it is
// applied identically regardless of which account is the "from" and which is
// the "to" side of an operation.
package locks

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/corebank/ledger/pkg/domain"
	"github.com/google/uuid"
)

// Manager hands out one lock per account id. Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	locks map[uuid.UUID]chan struct{}
}

// NewManager creates an empty lock manager.
func NewManager() *Manager {
	return &Manager{locks: make(map[uuid.UUID]chan struct{})}
}

// lockFor returns the lock channel for id, creating it on first use. The
// channel holds one token; owning the token means owning the lock.
func (m *Manager) lockFor(id uuid.UUID) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		m.locks[id] = ch
	}
	return ch
}

// Acquire takes the locks for every given account id in ascending id order
// and returns a release function. Duplicate ids are collapsed. If ctx is
// cancelled mid-acquisition, every lock taken so far is released and a
// ConcurrencyConflict error is returned; the caller may safely retry.
func (m *Manager) Acquire(ctx context.Context, ids ...uuid.UUID) (func(), error) {
	ordered := sortedUnique(ids)

	held := make([]chan struct{}, 0, len(ordered))
	releaseHeld := func() {
		// Reverse order, symmetrical with acquisition.
		for i := len(held) - 1; i >= 0; i-- {
			held[i] <- struct{}{}
		}
	}

	for _, id := range ordered {
		ch := m.lockFor(id)
		select {
		case <-ch:
			held = append(held, ch)
		case <-ctx.Done():
			releaseHeld()
			return nil, fmt.Errorf("%w: lock acquisition interrupted: %v",
				domain.ErrConcurrencyConflict, ctx.Err())
		}
	}
	return releaseHeld, nil
}

// sortedUnique returns ids in ascending byte order with duplicates removed.
func sortedUnique(ids []uuid.UUID) []uuid.UUID {
	ordered := make([]uuid.UUID, len(ids))
	copy(ordered, ids)
	sort.Slice(ordered, func(i, j int) bool {
		return bytes.Compare(ordered[i][:], ordered[j][:]) < 0
	})
	unique := ordered[:0]
	for i, id := range ordered {
		if i == 0 || id != ordered[i-1] {
			unique = append(unique, id)
		}
	}
	return unique
}
