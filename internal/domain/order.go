// Package domain holds the core market-data types shared by the trawl
// engine, the storage layer and the query service.
package domain

import (
	"fmt"
	"strconv"
	"time"
)

// Order range codes. The ESI API reports an order's reach as a string;
// storage keeps the numeric encoding the rest of the toolchain expects.
const (
	RangeStation     int32 = -1
	RangeSolarSystem int32 = 0
	RangeRegion      int32 = 32767
)

// ParseRange maps an ESI range string to its numeric code.
// Anything that is not one of the symbolic values is a literal jump count.
func ParseRange(s string) (int32, error) {
	switch s {
	case "station":
		return RangeStation, nil
	case "solarsystem":
		return RangeSolarSystem, nil
	case "region":
		return RangeRegion, nil
	}
	jumps, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse order range %q: %w", s, err)
	}
	return int32(jumps), nil
}

// MarketOrder is one live order as persisted in live_orders.
// OrderID is the natural key; the same id recurs across pages and cycles
// with updated Price and VolRemaining.
type MarketOrder struct {
	OrderID      int64
	TypeID       int32
	RegionID     int32
	Price        float64
	VolRemaining int64
	Range        int32
	VolEntered   int64
	MinVolume    int64
	IsBid        bool
	IssueDate    time.Time
	Duration     int32
	LocationID   int64
	Expiry       time.Time
}

// Expire computes the order's expiry from its issue date and duration in days.
func Expire(issued time.Time, durationDays int32) time.Time {
	return issued.Add(time.Duration(durationDays) * 24 * time.Hour)
}
