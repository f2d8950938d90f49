package memory

import (
	"context"
	"sync"
	"time"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/storage"
)

// OrderArchive is an in-memory implementation of storage.OrderArchive.
type OrderArchive struct {
	mu   sync.RWMutex
	data map[time.Time][]domain.MarketOrder // keyed by cycle start
}

// NewOrderArchive creates a new in-memory order archive.
func NewOrderArchive() *OrderArchive {
	return &OrderArchive{
		data: make(map[time.Time][]domain.MarketOrder),
	}
}

// Compile-time interface check.
var _ storage.OrderArchive = (*OrderArchive)(nil)

// AppendBatch appends one page of orders under the cycle start time.
func (a *OrderArchive) AppendBatch(_ context.Context, cycleStart time.Time, orders []domain.MarketOrder) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.data[cycleStart] = append(a.data[cycleStart], orders...)
	return nil
}

// ForCycle returns all orders archived for a cycle.
func (a *OrderArchive) ForCycle(cycleStart time.Time) []domain.MarketOrder {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]domain.MarketOrder(nil), a.data[cycleStart]...)
}
