package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MetricType is the financial metric a guidance record refers to.
type MetricType string

const (
	MetricRevenue MetricType = "REVENUE"
	MetricEPS     MetricType = "EPS"
	MetricEBITDA  MetricType = "EBITDA"
	MetricFCF     MetricType = "FCF"
	MetricOther   MetricType = "OTHER"
)

// Valid reports whether the metric is one of the known values.
func (m MetricType) Valid() bool {
	switch m {
	case MetricRevenue, MetricEPS, MetricEBITDA, MetricFCF, MetricOther:
		return true
	}
	return false
}

// Guidance tracks management guidance for one (folder, ticker, period,
// metric, guidance period) against the eventual actual. Guidance is either a
// low/high range or a point estimate.
type Guidance struct {
	ID             string
	FolderID       string
	Ticker         string
	Period         string
	Metric         MetricType
	GuidancePeriod string
	GuidanceLow    *decimal.Decimal
	GuidanceHigh   *decimal.Decimal
	GuidancePoint  *decimal.Decimal
	ActualResult   *decimal.Decimal
	Notes          *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Midpoint returns the middle of the guidance range, falling back to the
// point estimate when no range was given.
func (g Guidance) Midpoint() *decimal.Decimal {
	if g.GuidanceLow != nil && g.GuidanceHigh != nil {
		mid := g.GuidanceLow.Add(*g.GuidanceHigh).Div(decimal.NewFromInt(2))
		return &mid
	}
	return g.GuidancePoint
}

// VsLow returns actual − guidance low, or nil when either is absent.
func (g Guidance) VsLow() *decimal.Decimal {
	return guidanceDelta(g.ActualResult, g.GuidanceLow)
}

// VsHigh returns actual − guidance high, or nil when either is absent.
func (g Guidance) VsHigh() *decimal.Decimal {
	return guidanceDelta(g.ActualResult, g.GuidanceHigh)
}

// VsMidpoint returns actual − guidance midpoint, or nil when either is
// absent.
func (g Guidance) VsMidpoint() *decimal.Decimal {
	return guidanceDelta(g.ActualResult, g.Midpoint())
}

func guidanceDelta(actual, target *decimal.Decimal) *decimal.Decimal {
	if actual == nil || target == nil {
		return nil
	}
	d := actual.Sub(*target)
	return &d
}
