package memory

import (
	"context"
	"sync"
	"time"

	"esi-market-trawler/internal/storage"
)

// StatsStore is an in-memory implementation of storage.StatsStore.
type StatsStore struct {
	mu      sync.RWMutex
	payload []byte
	at      time.Time
}

// NewStatsStore creates a new in-memory stats store.
func NewStatsStore() *StatsStore {
	return &StatsStore{}
}

// Compile-time interface check.
var _ storage.StatsStore = (*StatsStore)(nil)

// Replace overwrites the stored snapshot.
func (s *StatsStore) Replace(_ context.Context, payload []byte, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to prevent external mutation
	s.payload = append([]byte(nil), payload...)
	s.at = at
	return nil
}

// Latest returns the stored snapshot. Returns ErrNotFound if none was written.
func (s *StatsStore) Latest(_ context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.payload == nil {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), s.payload...), nil
}

// At returns the time of the stored snapshot.
func (s *StatsStore) At() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.at
}
