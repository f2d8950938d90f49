// Package memory provides in-memory implementations of the storage
// interfaces, used for tests and for running the trawler without a
// database.
package memory

import (
	"context"
	"sync"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/storage"
)

// OrderStore is an in-memory implementation of storage.OrderStore.
// Pages accumulate in a pending map and become visible only at
// CommitRegion, mirroring the transactional store.
type OrderStore struct {
	mu        sync.RWMutex
	committed map[int64]domain.MarketOrder
	pending   map[int64]domain.MarketOrder // nil between regions
}

// NewOrderStore creates a new in-memory order store.
func NewOrderStore() *OrderStore {
	return &OrderStore{
		committed: make(map[int64]domain.MarketOrder),
	}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

// BeginRegion opens the write window, discarding any pending orders a
// previous aborted cycle left behind.
func (s *OrderStore) BeginRegion(_ context.Context, _ int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = make(map[int64]domain.MarketOrder)
	return nil
}

// UpsertBatch stages one page. Later writes to an order id win.
func (s *OrderStore) UpsertBatch(_ context.Context, orders []domain.MarketOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return storage.ErrNoRegion
	}
	for _, o := range orders {
		s.pending[o.OrderID] = o
	}
	return nil
}

// CommitRegion makes the staged pages visible and closes the window.
func (s *OrderStore) CommitRegion(_ context.Context, _ int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return storage.ErrNoRegion
	}
	for id, o := range s.pending {
		s.committed[id] = o
	}
	s.pending = nil
	return nil
}

// Rollback discards any staged pages. Safe to call when no window is open.
func (s *OrderStore) Rollback(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = nil
	return nil
}

// Get returns a committed order by id.
func (s *OrderStore) Get(orderID int64) (domain.MarketOrder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.committed[orderID]
	return o, ok
}

// Len returns the number of committed orders.
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.committed)
}
