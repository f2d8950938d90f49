package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"esi-market-trawler/internal/storage"
)

// MarketReader implements storage.MarketReader against the live_prices
// and regional_prices views maintained by the migrations.
type MarketReader struct {
	pool *Pool
}

// NewMarketReader creates a MarketReader.
func NewMarketReader(pool *Pool) *MarketReader {
	return &MarketReader{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketReader = (*MarketReader)(nil)

const priceColumns = `typeid, buy_price, buy_volume, buy_min, buy_max, buy_sd,
	sell_price, sell_volume, sell_min, sell_max, sell_sd, median_price, time`

// Prices returns market-wide aggregates for every traded type.
func (r *MarketReader) Prices(ctx context.Context) ([]storage.PriceSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+priceColumns+` FROM live_prices ORDER BY typeid`)
	if err != nil {
		return nil, fmt.Errorf("query live_prices: %w", err)
	}
	defer rows.Close()

	var out []storage.PriceSummary
	for rows.Next() {
		var p storage.PriceSummary
		if err := scanPrice(rows, nil, &p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate live_prices: %w", err)
	}
	return out, nil
}

// RegionalPrices returns aggregates for one region.
func (r *MarketReader) RegionalPrices(ctx context.Context, region int32) ([]storage.RegionalPriceSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT regionid, `+priceColumns+` FROM regional_prices WHERE regionid = $1 ORDER BY typeid`,
		region)
	if err != nil {
		return nil, fmt.Errorf("query regional_prices: %w", err)
	}
	defer rows.Close()

	return scanRegionalPrices(rows)
}

// AllRegionalPrices returns aggregates for every region.
func (r *MarketReader) AllRegionalPrices(ctx context.Context) ([]storage.RegionalPriceSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT regionid, `+priceColumns+` FROM regional_prices ORDER BY regionid, typeid`)
	if err != nil {
		return nil, fmt.Errorf("query regional_prices: %w", err)
	}
	defer rows.Close()

	return scanRegionalPrices(rows)
}

// DeleteExpired removes orders whose expiry precedes now.
func (r *MarketReader) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM live_orders WHERE expiry < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired orders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanRegionalPrices(rows pgx.Rows) ([]storage.RegionalPriceSummary, error) {
	var out []storage.RegionalPriceSummary
	for rows.Next() {
		var p storage.RegionalPriceSummary
		if err := scanPrice(rows, &p.RegionID, &p.PriceSummary); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate regional_prices: %w", err)
	}
	return out, nil
}

// scanPrice scans one price row; region is nil for the market-wide view.
func scanPrice(rows pgx.Rows, region *int32, p *storage.PriceSummary) error {
	dest := []any{
		&p.TypeID, &p.BuyPrice, &p.BuyVolume, &p.BuyMin, &p.BuyMax, &p.BuySD,
		&p.SellPrice, &p.SellVolume, &p.SellMin, &p.SellMax, &p.SellSD,
		&p.MedianPrice, &p.Time,
	}
	if region != nil {
		dest = append([]any{region}, dest...)
	}
	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan price row: %w", err)
	}
	return nil
}
