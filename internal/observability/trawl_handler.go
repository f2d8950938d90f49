package observability

import (
	"context"
	"time"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/trawler"
)

// TrawlHandler exports trawl progress as Prometheus metrics.
type TrawlHandler struct {
	trawler.BaseHandler
	metrics    *Metrics
	now        func() time.Time
	cycleStart time.Time
}

// NewTrawlHandler creates a handler recording to metrics.
func NewTrawlHandler(metrics *Metrics) *TrawlHandler {
	return &TrawlHandler{metrics: metrics, now: time.Now}
}

// Compile-time interface check.
var _ trawler.Handler = (*TrawlHandler)(nil)

func (h *TrawlHandler) StartTrawl(context.Context) error {
	h.cycleStart = h.now()
	h.metrics.LastCycleStart.Set(float64(h.cycleStart.Unix()))
	return nil
}

func (h *TrawlHandler) StartRegion(_ context.Context, region int32) error {
	h.metrics.CurrentRegion.Set(float64(region))
	return nil
}

func (h *TrawlHandler) Orders(_ context.Context, orders []domain.MarketOrder) error {
	h.metrics.PagesFetched.Inc()
	h.metrics.OrdersReceived.Add(float64(len(orders)))
	return nil
}

func (h *TrawlHandler) EndRegion(_ context.Context, _ int32) error {
	h.metrics.RegionsProcessed.Inc()
	return nil
}

func (h *TrawlHandler) FinishTrawl(context.Context) error {
	h.metrics.TrawlCyclesTotal.WithLabelValues("completed").Inc()
	h.metrics.TrawlCycleDuration.Observe(h.now().Sub(h.cycleStart).Seconds())
	return nil
}
