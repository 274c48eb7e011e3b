package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource records where a price observation came from.
type PriceSource string

const (
	PriceSourceProvider PriceSource = "PROVIDER"
	PriceSourceManual   PriceSource = "MANUAL"
)

// Valid reports whether the source is one of the known values.
func (s PriceSource) Valid() bool {
	return s == PriceSourceProvider || s == PriceSourceManual
}

// PriceObservation is one point in an idea's price series. The store enforces
// at most one observation per (idea, exact timestamp); backfilled
// observations additionally normalize their timestamp to end-of-day so the
// series holds at most one provider point per calendar date.
type PriceObservation struct {
	ID             string
	IdeaID         string
	Timestamp      time.Time
	PricePrimary   decimal.Decimal
	PriceSecondary *decimal.Decimal
	Source         PriceSource
	Note           *string
	CreatedAt      time.Time
}

// EndOfDay returns ts normalized to 23:59:59 UTC on its calendar date, the
// canonical timestamp for backfilled daily observations.
func EndOfDay(ts time.Time) time.Time {
	y, m, d := ts.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}

// DayKey returns the calendar-date key ("2006-01-02", UTC) used to dedupe
// backfilled observations.
func DayKey(ts time.Time) string {
	return ts.UTC().Format("2006-01-02")
}
