// Package locking provides per-stock mutual exclusion for trade operations.
//
// Every trade is a read-modify-write of a single position row: read current
// quantity and average cost, append the ledger entry, write the new position
// state. Two concurrent trades on the same stock must not interleave that
// sequence, so the accounting service holds the stock's lock for its full
// duration. Trades on different stocks proceed in parallel.
package locking

import "sync"

// Manager hands out one mutex per stock ID
type Manager struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// NewManager creates a new lock manager
func NewManager() *Manager {
	return &Manager{}
}

// Lock acquires the mutex for the given stock ID and returns its release
// function. Locks are created on first use and never removed; the universe
// of stocks is small and bounded.
func (m *Manager) Lock(stockID int64) func() {
	val, _ := m.locks.LoadOrStore(stockID, &sync.Mutex{})
	mu := val.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
