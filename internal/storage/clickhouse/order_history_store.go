package clickhouse

import (
	"context"
	"fmt"
	"time"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/storage"
)

// OrderHistoryStore implements storage.OrderArchive using ClickHouse.
// Each trawled page is appended as-is; the MergeTree keeps every
// snapshot so a cycle's rows reconstruct the market at cycle start.
type OrderHistoryStore struct {
	conn *Conn
}

// NewOrderHistoryStore creates a new OrderHistoryStore.
func NewOrderHistoryStore(conn *Conn) *OrderHistoryStore {
	return &OrderHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OrderArchive = (*OrderHistoryStore)(nil)

// AppendBatch appends one page of orders stamped with the cycle start time.
func (s *OrderHistoryStore) AppendBatch(ctx context.Context, cycleStart time.Time, orders []domain.MarketOrder) error {
	if len(orders) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO order_history (
			cycle_start, orderid, typeid, regionid, price, volremaining,
			order_range, volentered, minvolume, isbid, issuedate,
			duration, locationid
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range orders {
		err = batch.Append(
			cycleStart, o.OrderID, o.TypeID, o.RegionID, o.Price,
			o.VolRemaining, o.Range, o.VolEntered, o.MinVolume, o.IsBid,
			o.IssueDate, o.Duration, o.LocationID,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// CountForCycle returns how many rows a cycle archived.
func (s *OrderHistoryStore) CountForCycle(ctx context.Context, cycleStart time.Time) (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM order_history WHERE cycle_start = ?`, cycleStart,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cycle rows: %w", err)
	}
	return count, nil
}
