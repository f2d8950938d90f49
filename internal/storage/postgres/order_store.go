package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/storage"
)

// liveOrderColumns is the column set of live_orders, key first.
var liveOrderColumns = []string{
	"orderid", "typeid", "regionid", "price", "volremaining", "range",
	"volentered", "minvolume", "isbid", "issuedate", "duration",
	"locationid", "expiry",
}

// OrderStore implements storage.OrderStore with a stage-then-merge
// upsert: each page is bulk-loaded into a temp staging table via the
// COPY protocol and merged into live_orders with a single INSERT … ON
// CONFLICT statement, so a page lands atomically. One region's pages
// share a transaction committed at CommitRegion.
type OrderStore struct {
	pool *Pool
	tx   pgx.Tx // open write window, nil between regions
}

// NewOrderStore creates an OrderStore.
func NewOrderStore(pool *Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OrderStore = (*OrderStore)(nil)

// BeginRegion opens the write window for a region, discarding any window
// a previous aborted cycle left open.
func (s *OrderStore) BeginRegion(ctx context.Context, region int32) error {
	if err := s.Rollback(ctx); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin region %d: %w", region, err)
	}

	_, err = tx.Exec(ctx, `
		CREATE TEMP TABLE live_orders_staging (
			seq          bigserial,
			orderid      bigint,
			typeid       integer,
			regionid     integer,
			price        double precision,
			volremaining bigint,
			range        integer,
			volentered   bigint,
			minvolume    bigint,
			isbid        boolean,
			issuedate    timestamptz,
			duration     integer,
			locationid   bigint,
			expiry       timestamptz
		) ON COMMIT DROP
	`)
	if err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("create staging table: %w", err)
	}

	s.tx = tx
	return nil
}

// UpsertBatch stages one page and merges it into live_orders. Order ids
// repeated within the page resolve last-write-wins via the staging
// sequence; the merge statement is the page's atomicity boundary.
func (s *OrderStore) UpsertBatch(ctx context.Context, orders []domain.MarketOrder) error {
	if s.tx == nil {
		return storage.ErrNoRegion
	}
	if len(orders) == 0 {
		return nil
	}

	if _, err := s.tx.Exec(ctx, `TRUNCATE live_orders_staging`); err != nil {
		return fmt.Errorf("truncate staging table: %w", err)
	}

	_, err := s.tx.CopyFrom(ctx,
		pgx.Identifier{"live_orders_staging"},
		liveOrderColumns,
		pgx.CopyFromSlice(len(orders), func(i int) ([]any, error) {
			o := orders[i]
			return []any{
				o.OrderID, o.TypeID, o.RegionID, o.Price, o.VolRemaining,
				o.Range, o.VolEntered, o.MinVolume, o.IsBid, o.IssueDate,
				o.Duration, o.LocationID, o.Expiry,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy orders to staging: %w", err)
	}

	_, err = s.tx.Exec(ctx, `
		INSERT INTO live_orders
			(orderid, typeid, regionid, price, volremaining, range,
			 volentered, minvolume, isbid, issuedate, duration,
			 locationid, expiry)
		SELECT DISTINCT ON (orderid)
			orderid, typeid, regionid, price, volremaining, range,
			volentered, minvolume, isbid, issuedate, duration,
			locationid, expiry
		FROM live_orders_staging
		ORDER BY orderid, seq DESC
		ON CONFLICT (orderid) DO UPDATE SET
			typeid       = EXCLUDED.typeid,
			regionid     = EXCLUDED.regionid,
			price        = EXCLUDED.price,
			volremaining = EXCLUDED.volremaining,
			range        = EXCLUDED.range,
			volentered   = EXCLUDED.volentered,
			minvolume    = EXCLUDED.minvolume,
			isbid        = EXCLUDED.isbid,
			issuedate    = EXCLUDED.issuedate,
			duration     = EXCLUDED.duration,
			locationid   = EXCLUDED.locationid,
			expiry       = EXCLUDED.expiry
	`)
	if err != nil {
		return fmt.Errorf("merge staged orders: %w", err)
	}

	return nil
}

// CommitRegion makes the region's pages durable and closes the window.
func (s *OrderStore) CommitRegion(ctx context.Context, region int32) error {
	if s.tx == nil {
		return storage.ErrNoRegion
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit region %d: %w", region, err)
	}
	return nil
}

// Rollback discards any open write window. Safe to call when none is open.
func (s *OrderStore) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	tx := s.tx
	s.tx = nil
	if err := tx.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback region window: %w", err)
	}
	return nil
}
