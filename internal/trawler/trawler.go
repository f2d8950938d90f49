// Package trawler drives the trawl cycle: regions are listed and
// shuffled, each region is paged until empty, and every page fans out to
// the configured handlers.
package trawler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"time"

	"esi-market-trawler/internal/domain"
	"esi-market-trawler/internal/esi"
)

// API endpoints walked by the trawler.
const (
	regionsEndpoint = "universe/regions"
)

func marketEndpoint(region int32) string {
	return fmt.Sprintf("markets/%d/orders", region)
}

// Fetcher is the slice of the ESI client the trawler needs.
type Fetcher interface {
	Get(ctx context.Context, endpoint string, page int) (json.RawMessage, error)
}

// Trawler runs trawl cycles until its context is cancelled. All fetching
// is sequential on the calling goroutine; handlers run inline in
// registration order.
type Trawler struct {
	client   Fetcher
	handlers []Handler
	wait     WaitFunc
	rng      *rand.Rand
	logger   *log.Logger
	now      func() time.Time
}

// Options configures a Trawler.
type Options struct {
	Client   Fetcher
	Handlers []Handler
	Wait     WaitFunc   // default: Continuous()
	Rand     *rand.Rand // default: time-seeded
	Logger   *log.Logger
	Now      func() time.Time
}

// New creates a Trawler.
func New(opts Options) *Trawler {
	wait := opts.Wait
	if wait == nil {
		wait = Continuous()
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Trawler{
		client:   opts.Client,
		handlers: opts.Handlers,
		wait:     wait,
		rng:      rng,
		logger:   logger,
		now:      now,
	}
}

// Run executes cycles until ctx is cancelled. A failed cycle is logged
// and abandoned; the next one starts fresh from a newly shuffled region
// list with no resume point.
func (t *Trawler) Run(ctx context.Context) error {
	for {
		start := t.now()

		if err := t.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Printf("Trawl cycle aborted: %v", err)
		}

		if err := t.wait(ctx, start); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// RunCycle performs one full pass over every region.
func (t *Trawler) RunCycle(ctx context.Context) error {
	regions, err := t.fetchRegions(ctx)
	if err != nil {
		return err
	}
	t.rng.Shuffle(len(regions), func(i, j int) {
		regions[i], regions[j] = regions[j], regions[i]
	})

	if err := t.each(func(h Handler) error { return h.StartTrawl(ctx) }); err != nil {
		return err
	}

	for idx, region := range regions {
		t.logger.Printf("Trawling for region %d [%d/%d]", region, idx+1, len(regions))
		if err := t.trawlRegion(ctx, region); err != nil {
			return err
		}
	}

	return t.each(func(h Handler) error { return h.FinishTrawl(ctx) })
}

// trawlRegion drains one region page by page. The region is fully
// drained before EndRegion fires; the terminating empty page is never
// forwarded to handlers.
func (t *Trawler) trawlRegion(ctx context.Context, region int32) error {
	if err := t.each(func(h Handler) error { return h.StartRegion(ctx, region) }); err != nil {
		return err
	}

	endpoint := marketEndpoint(region)
	for page := 1; ; page++ {
		raw, err := t.client.Get(ctx, endpoint, page)
		if err != nil {
			return err
		}

		var wire []esi.Order
		if err := json.Unmarshal(raw, &wire); err != nil {
			return fmt.Errorf("decode orders for region %d page %d: %w", region, page, err)
		}

		t.logger.Printf("Retrieved %d orders from region %d page %d", len(wire), region, page)
		if len(wire) == 0 {
			break
		}

		orders, err := mapOrders(region, wire)
		if err != nil {
			return err
		}
		if err := t.each(func(h Handler) error { return h.Orders(ctx, orders) }); err != nil {
			return err
		}
	}

	return t.each(func(h Handler) error { return h.EndRegion(ctx, region) })
}

// fetchRegions lists every region id in a single unpaged call.
func (t *Trawler) fetchRegions(ctx context.Context) ([]int32, error) {
	raw, err := t.client.Get(ctx, regionsEndpoint, 0)
	if err != nil {
		return nil, err
	}
	var regions []int32
	if err := json.Unmarshal(raw, &regions); err != nil {
		return nil, fmt.Errorf("decode region list: %w", err)
	}
	return regions, nil
}

// each invokes fn for every handler, stopping at the first error.
func (t *Trawler) each(fn func(Handler) error) error {
	for _, h := range t.handlers {
		if err := fn(h); err != nil {
			return err
		}
	}
	return nil
}

// mapOrders converts one wire page into domain orders for region.
func mapOrders(region int32, wire []esi.Order) ([]domain.MarketOrder, error) {
	orders := make([]domain.MarketOrder, 0, len(wire))
	for _, o := range wire {
		rangeCode, err := domain.ParseRange(o.Range)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", o.OrderID, err)
		}
		orders = append(orders, domain.MarketOrder{
			OrderID:      o.OrderID,
			TypeID:       o.TypeID,
			RegionID:     region,
			Price:        o.Price,
			VolRemaining: o.VolumeRemain,
			Range:        rangeCode,
			VolEntered:   o.VolumeTotal,
			MinVolume:    o.MinVolume,
			IsBid:        o.IsBuyOrder,
			IssueDate:    o.Issued,
			Duration:     o.Duration,
			LocationID:   o.LocationID,
			Expiry:       domain.Expire(o.Issued, o.Duration),
		})
	}
	return orders, nil
}
