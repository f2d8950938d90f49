// Package storage defines the persistence interfaces for live orders,
// the order history archive and the stats snapshot.
package storage

import (
	"context"
	"time"

	"esi-market-trawler/internal/domain"
)

// OrderStore absorbs pages of market orders into the live_orders table
// with upsert semantics, keyed by order id. Writes for one region happen
// inside a BeginRegion/CommitRegion window; CommitRegion is the durable
// checkpoint. Each page must land atomically: a crash mid-merge never
// leaves the destination half-updated relative to that page.
type OrderStore interface {
	// BeginRegion opens the write window for a region. Any window left
	// open by an aborted cycle is rolled back first.
	BeginRegion(ctx context.Context, region int32) error

	// UpsertBatch merges one page: new order ids insert, existing ids
	// have every non-key column overwritten. Duplicate ids within the
	// page resolve last-write-wins and never error.
	UpsertBatch(ctx context.Context, orders []domain.MarketOrder) error

	// CommitRegion makes the region's accumulated pages durable.
	CommitRegion(ctx context.Context, region int32) error

	// Rollback discards any open write window.
	Rollback(ctx context.Context) error
}

// OrderArchive appends pages to the order history for offline analysis.
// Append-only; duplicates across cycles are expected and kept.
type OrderArchive interface {
	AppendBatch(ctx context.Context, at time.Time, orders []domain.MarketOrder) error
}

// StatsStore persists the single current stats snapshot, fully replacing
// the previous one; no snapshot history is retained.
type StatsStore interface {
	// Replace overwrites the stored snapshot with payload (a JSON
	// document) recorded at the given time.
	Replace(ctx context.Context, payload []byte, at time.Time) error

	// Latest returns the stored snapshot, or ErrNotFound if none exists.
	Latest(ctx context.Context) ([]byte, error)
}

// PriceSummary is one row of the live_prices view: market-wide buy/sell
// aggregates per item type.
type PriceSummary struct {
	TypeID      int32     `json:"typeid"`
	BuyPrice    *float64  `json:"buy_price"`
	BuyVolume   int64     `json:"buy_volume"`
	BuyMin      *float64  `json:"buy_min"`
	BuyMax      *float64  `json:"buy_max"`
	BuySD       *float64  `json:"buy_sd"`
	SellPrice   *float64  `json:"sell_price"`
	SellVolume  int64     `json:"sell_volume"`
	SellMin     *float64  `json:"sell_min"`
	SellMax     *float64  `json:"sell_max"`
	SellSD      *float64  `json:"sell_sd"`
	MedianPrice *float64  `json:"median_price"`
	Time        time.Time `json:"time"`
}

// RegionalPriceSummary is one row of the regional_prices view.
type RegionalPriceSummary struct {
	RegionID int32 `json:"regionid"`
	PriceSummary
}

// MarketReader serves the read-only query service.
type MarketReader interface {
	// Prices returns market-wide aggregates for every traded type.
	Prices(ctx context.Context) ([]PriceSummary, error)

	// RegionalPrices returns aggregates for one region.
	RegionalPrices(ctx context.Context, region int32) ([]RegionalPriceSummary, error)

	// AllRegionalPrices returns aggregates for every region.
	AllRegionalPrices(ctx context.Context) ([]RegionalPriceSummary, error)

	// DeleteExpired removes orders whose expiry precedes now and
	// reports how many rows went away.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
