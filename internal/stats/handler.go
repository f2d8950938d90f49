package stats

import (
	"context"
	"time"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/trawler"
)

// Counter and gauge keys reported by Handler.
const (
	KeyOrdersReceived      = "orders_received"
	KeyRegionsProcessed    = "regions_processed"
	KeyCurrentRegion       = "current_region"
	KeyDatabaseLastUpdated = "database_last_updated"
)

// Handler feeds trawl progress into a Collector. orders_received counts
// individual orders, not pages; the current_region and
// database_last_updated gauges are written on every region boundary,
// including regions that yielded no pages.
type Handler struct {
	trawler.BaseHandler
	collector *Collector
	now       func() time.Time
}

// NewHandler creates a stats handler backed by collector.
func NewHandler(collector *Collector) *Handler {
	return &Handler{collector: collector, now: time.Now}
}

// Compile-time interface check.
var _ trawler.Handler = (*Handler)(nil)

func (h *Handler) StartRegion(_ context.Context, region int32) error {
	h.collector.Datapoint(KeyCurrentRegion, int64(region))
	return nil
}

func (h *Handler) Orders(_ context.Context, orders []domain.MarketOrder) error {
	h.collector.Tally(KeyOrdersReceived, int64(len(orders)))
	return nil
}

func (h *Handler) EndRegion(_ context.Context, _ int32) error {
	h.collector.Tally(KeyRegionsProcessed, 1)
	h.collector.Datapoint(KeyDatabaseLastUpdated, h.now().UTC().Format(time.RFC3339))
	return nil
}
