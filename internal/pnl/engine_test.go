package pnl

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideadesk/ideadesk/internal/domain"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestLongReturn(t *testing.T) {
	got, err := LongReturn(d("100"), d("110"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("0.1")), "got %s", got)

	got, err = LongReturn(d("100"), d("90"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("-0.1")), "got %s", got)
}

func TestLongReturnRejectsNonPositiveEntry(t *testing.T) {
	_, err := LongReturn(d("0"), d("110"))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = LongReturn(d("-5"), d("110"))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestShortReturn(t *testing.T) {
	got, err := ShortReturn(d("100"), d("90"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("0.1")), "got %s", got)

	got, err = ShortReturn(d("100"), d("110"))
	require.NoError(t, err)
	assert.True(t, got.Equal(d("-0.1")), "got %s", got)
}

func TestLogReturnSamePriceIsZero(t *testing.T) {
	got, err := LogReturn(d("42.5"), d("42.5"))
	require.NoError(t, err)
	assert.InDelta(t, 0, got.InexactFloat64(), 1e-12)
}

func TestLogReturnRejectsNonPositivePrices(t *testing.T) {
	_, err := LogReturn(d("0"), d("10"))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)

	_, err = LogReturn(d("10"), d("0"))
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestPairSpread(t *testing.T) {
	// Long leg $100 -> $110, short leg $50 -> $48.
	res, err := PairSpread(d("100"), d("110"), d("50"), d("48"))
	require.NoError(t, err)

	assert.InDelta(t, 0.09531, res.LogReturnLong.InexactFloat64(), 1e-4)
	assert.InDelta(t, -0.04082, res.LogReturnShort.InexactFloat64(), 1e-4)
	assert.InDelta(t, 0.13613, res.SpreadPnL.InexactFloat64(), 1e-4)
	// (1.1 / 0.96) - 1
	assert.InDelta(t, 0.14583, res.SimpleSpread.InexactFloat64(), 1e-4)
}

func TestPairSpreadSimpleSpreadIsIndependent(t *testing.T) {
	// On a large move the simple ratio-of-ratios diverges from the log
	// spread; both must be reported as computed, not derived.
	res, err := PairSpread(d("100"), d("200"), d("100"), d("50"))
	require.NoError(t, err)

	assert.InDelta(t, 1.38629, res.SpreadPnL.InexactFloat64(), 1e-4)
	assert.InDelta(t, 3.0, res.SimpleSpread.InexactFloat64(), 1e-9)
}

func longIdea() domain.Idea {
	return domain.Idea{
		ID:                "idea-1",
		TradeType:         domain.TradeTypeLong,
		Status:            domain.IdeaStatusActive,
		EntryPricePrimary: d("100"),
	}
}

func pairIdea(orientation domain.PairOrientation) domain.Idea {
	return domain.Idea{
		ID:                  "idea-2",
		TradeType:           domain.TradeTypePair,
		Status:              domain.IdeaStatusActive,
		PairOrientation:     &orientation,
		EntryPricePrimary:   d("100"),
		EntryPriceSecondary: dp("50"),
	}
}

func TestComputeLong(t *testing.T) {
	res, err := Compute(longIdea(), d("110"), nil)
	require.NoError(t, err)
	assert.True(t, res.PnLPercent.Equal(d("0.1")))
	assert.Nil(t, res.PnLAbsolute)
	assert.Nil(t, res.SimpleSpread)
}

func TestComputeShort(t *testing.T) {
	idea := longIdea()
	idea.TradeType = domain.TradeTypeShort

	res, err := Compute(idea, d("90"), nil)
	require.NoError(t, err)
	assert.True(t, res.PnLPercent.Equal(d("0.1")))
}

func TestComputeAbsoluteScalesByPositionSize(t *testing.T) {
	idea := longIdea()
	idea.PositionSize = d("10000")

	res, err := Compute(idea, d("110"), nil)
	require.NoError(t, err)
	require.NotNil(t, res.PnLAbsolute)
	assert.True(t, res.PnLAbsolute.Equal(d("1000")), "got %s", res.PnLAbsolute)
}

func TestComputePairLongPrimary(t *testing.T) {
	res, err := Compute(pairIdea(domain.LongPrimaryShortSecondary), d("110"), dp("48"))
	require.NoError(t, err)

	assert.InDelta(t, 0.13613, res.PnLPercent.InexactFloat64(), 1e-4)
	require.NotNil(t, res.PnLPrimaryLeg)
	require.NotNil(t, res.PnLSecondaryLeg)
	assert.InDelta(t, 0.09531, res.PnLPrimaryLeg.InexactFloat64(), 1e-4)
	assert.InDelta(t, -0.04082, res.PnLSecondaryLeg.InexactFloat64(), 1e-4)
}

func TestComputePairShortPrimaryRemapsLegs(t *testing.T) {
	// Same prices with the opposite orientation: primary is now the short
	// side, so the spread flips sign and the leg fields still track the
	// primary/secondary tickers.
	res, err := Compute(pairIdea(domain.ShortPrimaryLongSecondary), d("110"), dp("48"))
	require.NoError(t, err)

	assert.InDelta(t, -0.13613, res.PnLPercent.InexactFloat64(), 1e-4)
	require.NotNil(t, res.PnLPrimaryLeg)
	require.NotNil(t, res.PnLSecondaryLeg)
	assert.InDelta(t, 0.09531, res.PnLPrimaryLeg.InexactFloat64(), 1e-4)
	assert.InDelta(t, -0.04082, res.PnLSecondaryLeg.InexactFloat64(), 1e-4)
}

func TestComputePairNeedsSecondaryPrice(t *testing.T) {
	_, err := Compute(pairIdea(domain.LongPrimaryShortSecondary), d("110"), nil)
	assert.ErrorIs(t, err, domain.ErrMissingPrice)
}

func TestComputeUnsupportedTradeType(t *testing.T) {
	idea := longIdea()
	idea.TradeType = "BUTTERFLY"

	_, err := Compute(idea, d("110"), nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedTradeType)
}

func TestResponseClosedIdeaUsesExitPrices(t *testing.T) {
	idea := longIdea()
	idea.Status = domain.IdeaStatusClosed
	idea.ExitPricePrimary = dp("120")

	// The passed-in current price must be ignored.
	resp, err := Response(idea, d("999"), nil, nil)
	require.NoError(t, err)

	assert.True(t, resp.IsRealized)
	assert.True(t, resp.CurrentPricePrimary.Equal(d("120")))
	assert.True(t, resp.PnLPercent.Equal(d("0.2")), "got %s", resp.PnLPercent)
}

func TestResponseOpenIdeaUsesCurrentPrice(t *testing.T) {
	now := time.Now().UTC()
	resp, err := Response(longIdea(), d("110"), nil, &now)
	require.NoError(t, err)

	assert.False(t, resp.IsRealized)
	assert.True(t, resp.PnLPercent.Equal(d("0.1")))
	require.NotNil(t, resp.PriceTimestamp)
}

func TestHistorySortsAndSkipsBadPoints(t *testing.T) {
	base := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	obs := []domain.PriceObservation{
		{IdeaID: "idea-1", Timestamp: base.AddDate(0, 0, 2), PricePrimary: d("120")},
		{IdeaID: "idea-1", Timestamp: base.AddDate(0, 0, 1), PricePrimary: d("0")}, // unusable
		{IdeaID: "idea-1", Timestamp: base, PricePrimary: d("110")},
	}

	hist, err := History(longIdea(), obs)
	require.NoError(t, err)

	require.Len(t, hist.History, 2)
	assert.True(t, hist.History[0].Timestamp.Before(hist.History[1].Timestamp))
	assert.True(t, hist.History[0].PnLPercent.Equal(d("0.1")))
	assert.True(t, hist.History[1].PnLPercent.Equal(d("0.2")))
}

func TestHistoryPairSkipsMissingSecondary(t *testing.T) {
	base := time.Date(2026, 3, 2, 23, 59, 59, 0, time.UTC)
	obs := []domain.PriceObservation{
		{IdeaID: "idea-2", Timestamp: base, PricePrimary: d("110"), PriceSecondary: dp("48")},
		{IdeaID: "idea-2", Timestamp: base.AddDate(0, 0, 1), PricePrimary: d("111")}, // one leg only
	}

	hist, err := History(pairIdea(domain.LongPrimaryShortSecondary), obs)
	require.NoError(t, err)
	require.Len(t, hist.History, 1)
}
