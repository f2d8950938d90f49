package postgres

import (
	"context"
	"fmt"
	"time"

	"esi-market-trawler/internal/storage"
)

// StatsStore implements storage.StatsStore on the single-row
// trawler_stats table. Replace truncates and inserts in one transaction
// so readers always see exactly one snapshot.
type StatsStore struct {
	pool *Pool
}

// NewStatsStore creates a StatsStore.
func NewStatsStore(pool *Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StatsStore = (*StatsStore)(nil)

// Replace overwrites the stored snapshot with payload.
func (s *StatsStore) Replace(ctx context.Context, payload []byte, at time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin stats replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE TABLE trawler_stats`); err != nil {
		return fmt.Errorf("truncate trawler_stats: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO trawler_stats (stats, time) VALUES ($1, $2)`,
		payload, at,
	); err != nil {
		return fmt.Errorf("insert trawler_stats: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit stats replace: %w", err)
	}
	return nil
}

// Latest returns the stored snapshot document.
func (s *StatsStore) Latest(ctx context.Context) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT stats FROM trawler_stats ORDER BY time DESC LIMIT 1`,
	).Scan(&payload)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("select trawler_stats: %w", err)
	}
	return payload, nil
}
