package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/storage"
)

func testOrder(orderID int64, price float64) domain.MarketOrder {
	issued := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	return domain.MarketOrder{
		OrderID:      orderID,
		TypeID:       34,
		RegionID:     10000002,
		Price:        price,
		VolRemaining: 1000,
		Range:        domain.RangeRegion,
		VolEntered:   2000,
		MinVolume:    1,
		IsBid:        false,
		IssueDate:    issued,
		Duration:     90,
		LocationID:   60003760,
		Expiry:       domain.Expire(issued, 90),
	}
}

func countLiveOrders(t *testing.T, pool *Pool) int {
	t.Helper()
	var n int
	err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM live_orders`).Scan(&n)
	require.NoError(t, err)
	return n
}

func livePrice(t *testing.T, pool *Pool, orderID int64) float64 {
	t.Helper()
	var price float64
	err := pool.QueryRow(context.Background(),
		`SELECT price FROM live_orders WHERE orderid = $1`, orderID).Scan(&price)
	require.NoError(t, err)
	return price
}

func TestOrderStore_UpsertRequiresRegion(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewOrderStore(pool)
	err := store.UpsertBatch(context.Background(), []domain.MarketOrder{testOrder(1, 5.0)})
	assert.ErrorIs(t, err, storage.ErrNoRegion)
}

func TestOrderStore_InsertAndUpdate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOrderStore(pool)

	require.NoError(t, store.BeginRegion(ctx, 10000002))
	require.NoError(t, store.UpsertBatch(ctx, []domain.MarketOrder{
		testOrder(1, 5.0),
		testOrder(2, 6.0),
	}))
	require.NoError(t, store.CommitRegion(ctx, 10000002))

	assert.Equal(t, 2, countLiveOrders(t, pool))
	assert.Equal(t, 5.0, livePrice(t, pool, 1))

	// A later page updates the existing row instead of inserting.
	require.NoError(t, store.BeginRegion(ctx, 10000002))
	require.NoError(t, store.UpsertBatch(ctx, []domain.MarketOrder{testOrder(1, 7.5)}))
	require.NoError(t, store.CommitRegion(ctx, 10000002))

	assert.Equal(t, 2, countLiveOrders(t, pool))
	assert.Equal(t, 7.5, livePrice(t, pool, 1))
}

func TestOrderStore_IntraBatchDuplicateLastWins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOrderStore(pool)

	require.NoError(t, store.BeginRegion(ctx, 10000002))
	require.NoError(t, store.UpsertBatch(ctx, []domain.MarketOrder{
		testOrder(1, 5.0),
		testOrder(1, 9.0),
	}))
	require.NoError(t, store.CommitRegion(ctx, 10000002))

	assert.Equal(t, 1, countLiveOrders(t, pool))
	assert.Equal(t, 9.0, livePrice(t, pool, 1))
}

func TestOrderStore_CommitIsRegionBoundary(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOrderStore(pool)

	require.NoError(t, store.BeginRegion(ctx, 10000002))
	require.NoError(t, store.UpsertBatch(ctx, []domain.MarketOrder{testOrder(1, 5.0)}))

	// Uncommitted pages are invisible to other connections.
	assert.Equal(t, 0, countLiveOrders(t, pool))

	require.NoError(t, store.CommitRegion(ctx, 10000002))
	assert.Equal(t, 1, countLiveOrders(t, pool))
}

func TestOrderStore_RollbackDiscardsWindow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOrderStore(pool)

	require.NoError(t, store.BeginRegion(ctx, 10000002))
	require.NoError(t, store.UpsertBatch(ctx, []domain.MarketOrder{testOrder(1, 5.0)}))
	require.NoError(t, store.Rollback(ctx))

	assert.Equal(t, 0, countLiveOrders(t, pool))

	// Rollback with no open window is a no-op.
	require.NoError(t, store.Rollback(ctx))

	err := store.CommitRegion(ctx, 10000002)
	assert.ErrorIs(t, err, storage.ErrNoRegion)
}

func TestOrderStore_BeginRegionDiscardsLeftoverWindow(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOrderStore(pool)

	require.NoError(t, store.BeginRegion(ctx, 10000002))
	require.NoError(t, store.UpsertBatch(ctx, []domain.MarketOrder{testOrder(1, 5.0)}))

	// An aborted cycle leaves the window open; the next region replaces it.
	require.NoError(t, store.BeginRegion(ctx, 10000043))
	require.NoError(t, store.UpsertBatch(ctx, []domain.MarketOrder{testOrder(2, 6.0)}))
	require.NoError(t, store.CommitRegion(ctx, 10000043))

	assert.Equal(t, 1, countLiveOrders(t, pool))
	assert.Equal(t, 6.0, livePrice(t, pool, 2))
}

func TestOrderStore_EmptyBatchIsNoop(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewOrderStore(pool)

	require.NoError(t, store.BeginRegion(ctx, 10000002))
	require.NoError(t, store.UpsertBatch(ctx, nil))
	require.NoError(t, store.CommitRegion(ctx, 10000002))

	assert.Equal(t, 0, countLiveOrders(t, pool))
}
