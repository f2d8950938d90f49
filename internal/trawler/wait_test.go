package trawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextHourlyStart(t *testing.T) {
	prev := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 30, 13, 0, 0, 0, time.UTC), NextHourlyStart(prev))
}

func TestNextAdvanceStart(t *testing.T) {
	// A 10 minute cycle starting at 12:00 targets 13:00 - 10m - 5m = 12:45.
	prev := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	now := time.Date(2026, 8, 30, 12, 10, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 45, 0, 0, time.UTC), NextAdvanceStart(prev, now))

	// A cycle that overran leaves a target in the past.
	longPrev := time.Date(2026, 8, 30, 11, 0, 0, 0, time.UTC)
	longNow := time.Date(2026, 8, 30, 12, 58, 0, 0, time.UTC)
	target := NextAdvanceStart(longPrev, longNow)
	assert.True(t, target.Before(longNow))
}

func TestContinuous_ReturnsImmediately(t *testing.T) {
	wait := Continuous()
	start := time.Now()
	require.NoError(t, wait(context.Background(), start))
	assert.Less(t, time.Since(start), time.Second)
}

func TestHourly_PastTargetReturnsImmediately(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC) }
	wait := Hourly(now)

	start := time.Now()
	require.NoError(t, wait(context.Background(), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)))
	assert.Less(t, time.Since(start), time.Second)
}

func TestHourly_CancelUnblocks(t *testing.T) {
	wait := Hourly(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- wait(ctx, time.Now())
	}()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not unblock on cancellation")
	}
}

func TestWaitStrategies_KnownNames(t *testing.T) {
	for _, name := range []string{"continuous", "hourly", "advance"} {
		factory, ok := WaitStrategies[name]
		require.True(t, ok, "missing strategy %q", name)
		assert.NotNil(t, factory())
	}
	_, ok := WaitStrategies["bogus"]
	assert.False(t, ok)
}
