package trawler

import (
	"context"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/storage"
)

// StoreHandler persists trawled pages through an OrderStore. Each region
// is one write window opened at StartRegion and committed at EndRegion,
// so the region boundary is the durable checkpoint; an aborted cycle
// leaves an open window that the next StartTrawl rolls back.
type StoreHandler struct {
	BaseHandler
	store storage.OrderStore
}

// NewStoreHandler creates a handler writing into store.
func NewStoreHandler(store storage.OrderStore) *StoreHandler {
	return &StoreHandler{store: store}
}

// Compile-time interface check.
var _ Handler = (*StoreHandler)(nil)

func (h *StoreHandler) StartTrawl(ctx context.Context) error {
	return h.store.Rollback(ctx)
}

func (h *StoreHandler) StartRegion(ctx context.Context, region int32) error {
	return h.store.BeginRegion(ctx, region)
}

func (h *StoreHandler) Orders(ctx context.Context, orders []domain.MarketOrder) error {
	return h.store.UpsertBatch(ctx, orders)
}

func (h *StoreHandler) EndRegion(ctx context.Context, region int32) error {
	return h.store.CommitRegion(ctx, region)
}
