package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esi-market-trawler/internal/domain"
)

// seedOrders commits one region's worth of orders through the order store.
func seedOrders(t *testing.T, pool *Pool, region int32, orders []domain.MarketOrder) {
	t.Helper()
	ctx := context.Background()
	store := NewOrderStore(pool)
	require.NoError(t, store.BeginRegion(ctx, region))
	require.NoError(t, store.UpsertBatch(ctx, orders))
	require.NoError(t, store.CommitRegion(ctx, region))
}

func marketOrder(orderID int64, typeID, region int32, price float64, volume int64, isBid bool) domain.MarketOrder {
	issued := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return domain.MarketOrder{
		OrderID:      orderID,
		TypeID:       typeID,
		RegionID:     region,
		Price:        price,
		VolRemaining: volume,
		Range:        domain.RangeStation,
		VolEntered:   volume,
		MinVolume:    1,
		IsBid:        isBid,
		IssueDate:    issued,
		Duration:     90,
		LocationID:   60003760,
		Expiry:       domain.Expire(issued, 90),
	}
}

func TestMarketReader_Prices(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedOrders(t, pool, 10000002, []domain.MarketOrder{
		marketOrder(1, 34, 10000002, 5.0, 100, true),
		marketOrder(2, 34, 10000002, 4.0, 200, true),
		marketOrder(3, 34, 10000002, 6.5, 300, false),
		marketOrder(4, 34, 10000002, 7.0, 400, false),
		marketOrder(5, 35, 10000002, 12.0, 50, false),
	})

	reader := NewMarketReader(pool)
	prices, err := reader.Prices(context.Background())
	require.NoError(t, err)
	require.Len(t, prices, 2)

	tritanium := prices[0]
	assert.Equal(t, int32(34), tritanium.TypeID)
	require.NotNil(t, tritanium.BuyPrice)
	assert.Equal(t, 5.0, *tritanium.BuyPrice) // highest bid
	assert.Equal(t, int64(300), tritanium.BuyVolume)
	require.NotNil(t, tritanium.SellPrice)
	assert.Equal(t, 6.5, *tritanium.SellPrice) // lowest ask
	assert.Equal(t, int64(700), tritanium.SellVolume)
	require.NotNil(t, tritanium.SellMax)
	assert.Equal(t, 7.0, *tritanium.SellMax)
	require.NotNil(t, tritanium.MedianPrice)
	assert.Equal(t, 5.75, *tritanium.MedianPrice)

	// A type with no buy orders has null buy aggregates and zero volume.
	pyerite := prices[1]
	assert.Equal(t, int32(35), pyerite.TypeID)
	assert.Nil(t, pyerite.BuyPrice)
	assert.Nil(t, pyerite.BuySD)
	assert.Equal(t, int64(0), pyerite.BuyVolume)
	require.NotNil(t, pyerite.SellPrice)
	assert.Equal(t, 12.0, *pyerite.SellPrice)
}

func TestMarketReader_RegionalPrices(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	seedOrders(t, pool, 10000002, []domain.MarketOrder{
		marketOrder(1, 34, 10000002, 5.0, 100, false),
	})
	seedOrders(t, pool, 10000043, []domain.MarketOrder{
		marketOrder(2, 34, 10000043, 8.0, 100, false),
	})

	reader := NewMarketReader(pool)

	forge, err := reader.RegionalPrices(context.Background(), 10000002)
	require.NoError(t, err)
	require.Len(t, forge, 1)
	assert.Equal(t, int32(10000002), forge[0].RegionID)
	require.NotNil(t, forge[0].SellPrice)
	assert.Equal(t, 5.0, *forge[0].SellPrice)

	all, err := reader.AllRegionalPrices(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)

	missing, err := reader.RegionalPrices(context.Background(), 10000030)
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestMarketReader_DeleteExpired(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	fresh := marketOrder(1, 34, 10000002, 5.0, 100, false)
	stale := marketOrder(2, 34, 10000002, 5.0, 100, false)
	stale.IssueDate = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	stale.Expiry = domain.Expire(stale.IssueDate, 30)

	seedOrders(t, pool, 10000002, []domain.MarketOrder{fresh, stale})

	reader := NewMarketReader(pool)
	removed, err := reader.DeleteExpired(context.Background(), time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, countLiveOrders(t, pool))
}
