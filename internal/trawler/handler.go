package trawler

import (
	"context"

	"esi-market-trawler/internal/domain"
)

// Handler receives trawl lifecycle notifications. Pages stream to Orders
// as they are fetched; a region is fully drained before EndRegion fires.
// Any error aborts the current cycle for every handler.
//
// Embed BaseHandler to implement only the notifications you care about.
type Handler interface {
	StartTrawl(ctx context.Context) error
	StartRegion(ctx context.Context, region int32) error
	Orders(ctx context.Context, orders []domain.MarketOrder) error
	EndRegion(ctx context.Context, region int32) error
	FinishTrawl(ctx context.Context) error
}

// BaseHandler is a no-op Handler for embedding.
type BaseHandler struct{}

func (BaseHandler) StartTrawl(context.Context) error                   { return nil }
func (BaseHandler) StartRegion(context.Context, int32) error           { return nil }
func (BaseHandler) Orders(context.Context, []domain.MarketOrder) error { return nil }
func (BaseHandler) EndRegion(context.Context, int32) error             { return nil }
func (BaseHandler) FinishTrawl(context.Context) error                  { return nil }

// Compile-time interface check.
var _ Handler = BaseHandler{}
