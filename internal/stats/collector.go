// Package stats aggregates operational counters over rolling one-minute
// buckets and periodically persists a snapshot.
package stats

import (
	"context"
	"sync"
	"time"
)

// MaxBuckets is the per-key history depth: one hour of per-minute totals.
const MaxBuckets = 60

// RotatePeriod is how often the current bucket rolls into history.
const RotatePeriod = time.Minute

// Windows is the rolling view of one tallied counter.
type Windows struct {
	OneMin   int64 `json:"1min"`
	FiveMin  int64 `json:"5min"`
	SixtyMin int64 `json:"60min"`
}

// Snapshot maps counter keys to Windows and gauge keys to their latest
// value, plus an "uptime" entry in seconds. Regenerated on demand and
// never mutated afterwards.
type Snapshot map[string]any

// Collector accumulates tallies into the current minute bucket and keeps
// up to MaxBuckets rotated buckets per key, newest first. One mutex
// guards current, history and gauges; it is held only for O(1) work so
// tallying call sites never wait on persistence.
type Collector struct {
	mu      sync.Mutex
	current map[string]int64
	history map[string][]int64
	gauges  map[string]any
	start   time.Time
	now     func() time.Time
}

// NewCollector creates a Collector; uptime counts from this moment.
func NewCollector() *Collector {
	return newCollector(time.Now)
}

func newCollector(now func() time.Time) *Collector {
	return &Collector{
		current: make(map[string]int64),
		history: make(map[string][]int64),
		gauges:  make(map[string]any),
		start:   now(),
		now:     now,
	}
}

// Tally adds n to the current-minute bucket for key, creating it at zero
// if absent.
func (c *Collector) Tally(key string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current[key] += n
}

// Datapoint overwrites the gauge for key. Gauges are not windowed.
func (c *Collector) Datapoint(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gauges[key] = value
}

// Rotate pushes every current bucket onto the front of its history,
// evicting the oldest past MaxBuckets, and zeroes the current buckets.
func (c *Collector) Rotate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, count := range c.current {
		h := c.history[key]
		if len(h) >= MaxBuckets {
			h = h[:MaxBuckets-1]
		}
		c.history[key] = append([]int64{count}, h...)
		c.current[key] = 0
	}
}

// Summary builds a Snapshot: for every counter the 1/5/60-minute sums
// (the un-rotated current bucket counting as the newest sample), all
// gauges, and process uptime in seconds.
func (c *Collector) Summary() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := make(Snapshot, len(c.current)+len(c.gauges)+1)

	for key := range c.current {
		s[key] = Windows{
			OneMin:   c.windowLocked(key, 1),
			FiveMin:  c.windowLocked(key, 5),
			SixtyMin: c.windowLocked(key, 60),
		}
	}
	for key := range c.history {
		if _, ok := s[key]; !ok {
			s[key] = Windows{
				OneMin:   c.windowLocked(key, 1),
				FiveMin:  c.windowLocked(key, 5),
				SixtyMin: c.windowLocked(key, 60),
			}
		}
	}

	for key, value := range c.gauges {
		s[key] = value
	}

	s["uptime"] = int64(c.now().Sub(c.start).Seconds())
	return s
}

// windowLocked sums the newest minutes buckets for key: the current
// bucket plus the first minutes-1 rotated buckets. Caller holds c.mu.
func (c *Collector) windowLocked(key string, minutes int) int64 {
	total := c.current[key]
	h := c.history[key]
	n := minutes - 1
	if n > len(h) {
		n = len(h)
	}
	for _, count := range h[:n] {
		total += count
	}
	return total
}

// Run rotates buckets every RotatePeriod until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(RotatePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Rotate()
		}
	}
}
