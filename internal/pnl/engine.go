// Package pnl converts trade parameters and price observations into
// normalized return metrics. Every function is pure: no I/O, no side
// effects, safe to call concurrently.
//
// Formulas:
//
//	LONG single:   (current - entry) / entry
//	SHORT single:  (entry - current) / entry
//	PAIR (log):    ln(P_long/P_long0) - ln(P_short/P_short0)
package pnl

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// LongReturn computes the fractional return of a long position:
// (current - entry) / entry. Entry $100, current $110 is 0.10 = +10%.
func LongReturn(entry, current decimal.Decimal) (decimal.Decimal, error) {
	if !entry.IsPositive() {
		return decimal.Zero, fmt.Errorf("pnl: entry price %s: %w", entry, domain.ErrInvalidPrice)
	}
	return current.Sub(entry).Div(entry), nil
}

// ShortReturn computes the fractional return of a short position:
// (entry - current) / entry. Positive means profit, i.e. the price fell.
func ShortReturn(entry, current decimal.Decimal) (decimal.Decimal, error) {
	if !entry.IsPositive() {
		return decimal.Zero, fmt.Errorf("pnl: entry price %s: %w", entry, domain.ErrInvalidPrice)
	}
	return entry.Sub(current).Div(entry), nil
}

// LogReturn computes ln(current/entry). Both prices must be positive. The
// logarithm is taken in float64 and converted back; the precision loss is
// acceptable for percentage display.
func LogReturn(entry, current decimal.Decimal) (decimal.Decimal, error) {
	if !entry.IsPositive() || !current.IsPositive() {
		return decimal.Zero, fmt.Errorf("pnl: log return needs positive prices: %w", domain.ErrInvalidPrice)
	}
	return decimal.NewFromFloat(math.Log(current.InexactFloat64() / entry.InexactFloat64())), nil
}

// SpreadResult is the decomposition of a pair trade's performance.
type SpreadResult struct {
	// SpreadPnL is ln(currentLong/entryLong) - ln(currentShort/entryShort):
	// positive when the long leg outperforms the short leg.
	SpreadPnL      decimal.Decimal
	LogReturnLong  decimal.Decimal
	LogReturnShort decimal.Decimal
	// SimpleSpread is (currentLong/entryLong)/(currentShort/entryShort) - 1,
	// a non-log ratio-of-ratios return shown alongside the log spread. It
	// diverges from SpreadPnL on large moves and is computed independently,
	// never derived from it.
	SimpleSpread decimal.Decimal
}

// PairSpread computes the log-spread P&L of a long/short pair. All four
// prices must be positive.
//
// Example: long entry $100 now $110, short entry $50 now $48:
// ln(1.1) - ln(0.96) = 0.0953 + 0.0408 = 0.1361 = +13.61%.
func PairSpread(entryLong, currentLong, entryShort, currentShort decimal.Decimal) (SpreadResult, error) {
	if !entryLong.IsPositive() || !currentLong.IsPositive() ||
		!entryShort.IsPositive() || !currentShort.IsPositive() {
		return SpreadResult{}, fmt.Errorf("pnl: pair spread needs positive prices: %w", domain.ErrInvalidPrice)
	}

	logLong, err := LogReturn(entryLong, currentLong)
	if err != nil {
		return SpreadResult{}, err
	}
	logShort, err := LogReturn(entryShort, currentShort)
	if err != nil {
		return SpreadResult{}, err
	}

	ratioLong := currentLong.Div(entryLong)
	ratioShort := currentShort.Div(entryShort)

	return SpreadResult{
		SpreadPnL:      logLong.Sub(logShort),
		LogReturnLong:  logLong,
		LogReturnShort: logShort,
		SimpleSpread:   ratioLong.Div(ratioShort).Sub(decimal.NewFromInt(1)),
	}, nil
}

// Compute dispatches on the idea's trade type and returns its P&L at the
// given current prices. Pair ideas require both the stored secondary entry
// and a current secondary price; their leg fields track the primary and
// secondary tickers, remapped from the long/short sides according to the
// idea's orientation.
func Compute(idea domain.Idea, currentPrimary decimal.Decimal, currentSecondary *decimal.Decimal) (domain.PnLResult, error) {
	if !currentPrimary.IsPositive() {
		return domain.PnLResult{}, fmt.Errorf("pnl: current price %s: %w", currentPrimary, domain.ErrInvalidPrice)
	}

	switch idea.TradeType {
	case domain.TradeTypeLong:
		pct, err := LongReturn(idea.EntryPricePrimary, currentPrimary)
		if err != nil {
			return domain.PnLResult{}, err
		}
		return domain.PnLResult{
			PnLPercent:  pct,
			PnLAbsolute: absolutePnL(pct, idea.PositionSize),
		}, nil

	case domain.TradeTypeShort:
		pct, err := ShortReturn(idea.EntryPricePrimary, currentPrimary)
		if err != nil {
			return domain.PnLResult{}, err
		}
		return domain.PnLResult{
			PnLPercent:  pct,
			PnLAbsolute: absolutePnL(pct, idea.PositionSize),
		}, nil

	case domain.TradeTypePair:
		if idea.EntryPriceSecondary == nil || currentSecondary == nil {
			return domain.PnLResult{}, fmt.Errorf("pnl: pair idea %s needs secondary prices: %w", idea.ID, domain.ErrMissingPrice)
		}

		longPrimary := idea.PairOrientation != nil && *idea.PairOrientation == domain.LongPrimaryShortSecondary

		var spread SpreadResult
		var err error
		if longPrimary {
			spread, err = PairSpread(idea.EntryPricePrimary, currentPrimary, *idea.EntryPriceSecondary, *currentSecondary)
		} else {
			spread, err = PairSpread(*idea.EntryPriceSecondary, *currentSecondary, idea.EntryPricePrimary, currentPrimary)
		}
		if err != nil {
			return domain.PnLResult{}, err
		}

		// Leg fields follow the primary/secondary ticker axis, not the
		// long/short sides.
		primaryLeg, secondaryLeg := spread.LogReturnLong, spread.LogReturnShort
		if !longPrimary {
			primaryLeg, secondaryLeg = spread.LogReturnShort, spread.LogReturnLong
		}
		simple := spread.SimpleSpread

		return domain.PnLResult{
			PnLPercent:      spread.SpreadPnL,
			PnLAbsolute:     absolutePnL(spread.SpreadPnL, idea.PositionSize),
			PnLPrimaryLeg:   &primaryLeg,
			PnLSecondaryLeg: &secondaryLeg,
			SimpleSpread:    &simple,
		}, nil

	default:
		return domain.PnLResult{}, fmt.Errorf("pnl: trade type %q: %w", idea.TradeType, domain.ErrUnsupportedTradeType)
	}
}

// Response builds the full P&L payload for an idea. Closed ideas always
// report realized P&L: the stored exit prices replace whatever current
// prices the caller passed in.
func Response(idea domain.Idea, currentPrimary decimal.Decimal, currentSecondary *decimal.Decimal, priceTimestamp *time.Time) (domain.PnLResponse, error) {
	if idea.IsClosed() && idea.ExitPricePrimary != nil {
		currentPrimary = *idea.ExitPricePrimary
		if idea.ExitPriceSecondary != nil {
			currentSecondary = idea.ExitPriceSecondary
		}
	}

	result, err := Compute(idea, currentPrimary, currentSecondary)
	if err != nil {
		return domain.PnLResponse{}, err
	}

	return domain.PnLResponse{
		IdeaID:                idea.ID,
		TradeType:             idea.TradeType,
		IsRealized:            idea.IsClosed(),
		EntryPricePrimary:     idea.EntryPricePrimary,
		EntryPriceSecondary:   idea.EntryPriceSecondary,
		CurrentPricePrimary:   currentPrimary,
		CurrentPriceSecondary: currentSecondary,
		PnLPercent:            result.PnLPercent,
		PnLAbsolute:           result.PnLAbsolute,
		PnLPrimaryLeg:         result.PnLPrimaryLeg,
		PnLSecondaryLeg:       result.PnLSecondaryLeg,
		SimpleSpread:          result.SimpleSpread,
		PriceTimestamp:        priceTimestamp,
	}, nil
}

// History computes the idea's P&L curve from its stored observations,
// ascending by timestamp. Observations with invalid or missing prices are
// skipped rather than failing the whole series; bad historical points must
// not abort the curve.
func History(idea domain.Idea, observations []domain.PriceObservation) (domain.PnLHistory, error) {
	sorted := make([]domain.PriceObservation, len(observations))
	copy(sorted, observations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	points := make([]domain.PnLHistoryPoint, 0, len(sorted))
	for _, obs := range sorted {
		result, err := Compute(idea, obs.PricePrimary, obs.PriceSecondary)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidPrice) || errors.Is(err, domain.ErrMissingPrice) {
				continue
			}
			return domain.PnLHistory{}, err
		}
		points = append(points, domain.PnLHistoryPoint{
			Timestamp:       obs.Timestamp,
			PricePrimary:    obs.PricePrimary,
			PriceSecondary:  obs.PriceSecondary,
			PnLPercent:      result.PnLPercent,
			PnLPrimaryLeg:   result.PnLPrimaryLeg,
			PnLSecondaryLeg: result.PnLSecondaryLeg,
		})
	}

	return domain.PnLHistory{
		IdeaID:              idea.ID,
		TradeType:           idea.TradeType,
		EntryPricePrimary:   idea.EntryPricePrimary,
		EntryPriceSecondary: idea.EntryPriceSecondary,
		History:             points,
	}, nil
}

// absolutePnL scales the fractional return by the position size, or returns
// nil when no size was set.
func absolutePnL(pct, size decimal.Decimal) *decimal.Decimal {
	if size.IsZero() {
		return nil
	}
	abs := pct.Mul(size)
	return &abs
}
