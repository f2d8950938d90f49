package trawler

import (
	"context"
	"time"
)

// AdvanceMargin is how long before the hour boundary an advance-scheduled
// cycle aims to finish.
const AdvanceMargin = 5 * time.Minute

// WaitFunc blocks between the end of one cycle and the start of the
// next. It receives the previous cycle's start time and returns once the
// next cycle may begin, or early with ctx's error on cancellation.
type WaitFunc func(ctx context.Context, prevStart time.Time) error

// Continuous starts the next cycle immediately.
func Continuous() WaitFunc {
	return func(ctx context.Context, _ time.Time) error {
		return ctx.Err()
	}
}

// Hourly starts the next cycle no earlier than one hour after the start
// of the previous one.
func Hourly(now func() time.Time) WaitFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, prevStart time.Time) error {
		return sleepUntil(ctx, now, NextHourlyStart(prevStart))
	}
}

// InAdvanceOfHour times the next cycle to end just before the next hour
// boundary, assuming its duration matches the previous one. If the
// previous cycle already overran the remaining time, it returns
// immediately; missed boundaries are not compensated.
func InAdvanceOfHour(now func() time.Time) WaitFunc {
	if now == nil {
		now = time.Now
	}
	return func(ctx context.Context, prevStart time.Time) error {
		return sleepUntil(ctx, now, NextAdvanceStart(prevStart, now()))
	}
}

// NextHourlyStart is the target start time under the hourly policy.
func NextHourlyStart(prevStart time.Time) time.Time {
	return prevStart.Add(time.Hour)
}

// NextAdvanceStart is the target start time under the in-advance-of-hour
// policy: the next hour boundary minus the previous cycle's duration
// minus AdvanceMargin.
func NextAdvanceStart(prevStart, now time.Time) time.Time {
	duration := now.Sub(prevStart)
	boundary := now.Truncate(time.Hour).Add(time.Hour)
	return boundary.Add(-duration - AdvanceMargin)
}

// WaitStrategies maps the flag-facing strategy names to constructors.
var WaitStrategies = map[string]func() WaitFunc{
	"continuous": func() WaitFunc { return Continuous() },
	"hourly":     func() WaitFunc { return Hourly(nil) },
	"advance":    func() WaitFunc { return InAdvanceOfHour(nil) },
}

// sleepUntil blocks until target per the supplied clock, re-checking the
// clock after each timer fire, or returns early when ctx is cancelled.
func sleepUntil(ctx context.Context, now func() time.Time, target time.Time) error {
	for {
		remaining := target.Sub(now())
		if remaining <= 0 {
			return ctx.Err()
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
