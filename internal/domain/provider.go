package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DailyClose is one point of a daily close series.
type DailyClose struct {
	Date  time.Time
	Close decimal.Decimal
}

// EarningsPeriod is one reporting period from the provider's fundamentals
// data. Fields the provider does not report are nil.
type EarningsPeriod struct {
	FiscalQuarter string
	PeriodEndDate *time.Time
	EPSActual     *decimal.Decimal
	EPSEstimate   *decimal.Decimal
	Revenue       *decimal.Decimal
	EBITDA        *decimal.Decimal
	FCF           *decimal.Decimal
}

// FundamentalsReport is the earnings-relevant slice of a ticker's
// fundamentals.
type FundamentalsReport struct {
	Quarterly []EarningsPeriod
	Annual    []EarningsPeriod
}

// MarketData is the external market-data collaborator. Implementations
// return errors for transport and provider failures; callers above the
// platform layer treat those as "price unavailable", never as fatal.
type MarketData interface {
	Quote(ctx context.Context, ticker string) (decimal.Decimal, error)
	Quotes(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error)
	// DailySeries returns daily closes for [from, to] inclusive, ascending.
	DailySeries(ctx context.Context, ticker string, from, to time.Time) ([]DailyClose, error)
	Fundamentals(ctx context.Context, ticker string) (FundamentalsReport, error)
}
