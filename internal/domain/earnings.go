package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodType distinguishes quarterly from annual reporting periods.
type PeriodType string

const (
	PeriodQuarterly PeriodType = "QUARTERLY"
	PeriodAnnual    PeriodType = "ANNUAL"
)

// Valid reports whether the period type is one of the known values.
func (p PeriodType) Valid() bool {
	return p == PeriodQuarterly || p == PeriodAnnual
}

// Earnings tracks consensus estimate, the user's own estimate, and the actual
// for one (folder, ticker, fiscal quarter): EPS, revenue, EBITDA, and FCF.
// Revenue/EBITDA/FCF are raw dollars; EPS is per-share.
type Earnings struct {
	ID            string
	FolderID      string
	Ticker        string
	PeriodType    PeriodType
	Period        *string
	FiscalQuarter string
	PeriodEndDate *time.Time

	EstimateEPS   *decimal.Decimal
	ActualEPS     *decimal.Decimal
	MyEstimateEPS *decimal.Decimal

	EstimateRev   *decimal.Decimal
	ActualRev     *decimal.Decimal
	MyEstimateRev *decimal.Decimal

	EstimateEBITDA   *decimal.Decimal
	ActualEBITDA     *decimal.Decimal
	MyEstimateEBITDA *decimal.Decimal

	EstimateFCF   *decimal.Decimal
	ActualFCF     *decimal.Decimal
	MyEstimateFCF *decimal.Decimal

	Notes     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EPSSurprise returns actual − estimate EPS, or nil when either is absent.
func (e Earnings) EPSSurprise() *decimal.Decimal {
	return surprise(e.ActualEPS, e.EstimateEPS)
}

// EPSSurprisePct returns the EPS surprise as a percentage of the absolute
// estimate, so a beat on a negative estimate still reads as positive.
func (e Earnings) EPSSurprisePct() *decimal.Decimal {
	if e.ActualEPS == nil || e.EstimateEPS == nil || e.EstimateEPS.IsZero() {
		return nil
	}
	pct := e.ActualEPS.Sub(*e.EstimateEPS).Div(e.EstimateEPS.Abs()).Mul(decimal.NewFromInt(100))
	return &pct
}

// RevSurprise returns actual − estimate revenue, or nil when either is absent.
func (e Earnings) RevSurprise() *decimal.Decimal {
	return surprise(e.ActualRev, e.EstimateRev)
}

// RevSurprisePct returns the revenue surprise as a percentage of the estimate.
func (e Earnings) RevSurprisePct() *decimal.Decimal {
	return surprisePct(e.ActualRev, e.EstimateRev)
}

// EBITDASurprisePct returns the EBITDA surprise as a percentage of the
// estimate.
func (e Earnings) EBITDASurprisePct() *decimal.Decimal {
	return surprisePct(e.ActualEBITDA, e.EstimateEBITDA)
}

// FCFSurprisePct returns the FCF surprise as a percentage of the estimate.
func (e Earnings) FCFSurprisePct() *decimal.Decimal {
	return surprisePct(e.ActualFCF, e.EstimateFCF)
}

func surprise(actual, estimate *decimal.Decimal) *decimal.Decimal {
	if actual == nil || estimate == nil {
		return nil
	}
	d := actual.Sub(*estimate)
	return &d
}

func surprisePct(actual, estimate *decimal.Decimal) *decimal.Decimal {
	if actual == nil || estimate == nil || estimate.IsZero() {
		return nil
	}
	pct := actual.Sub(*estimate).Div(*estimate).Mul(decimal.NewFromInt(100))
	return &pct
}
