package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestEPSSurprise(t *testing.T) {
	e := Earnings{EstimateEPS: dec("1.00"), ActualEPS: dec("1.10")}
	got := e.EPSSurprise()
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("0.10")))

	assert.Nil(t, Earnings{ActualEPS: dec("1.10")}.EPSSurprise())
	assert.Nil(t, Earnings{EstimateEPS: dec("1.00")}.EPSSurprise())
}

func TestEPSSurprisePctUsesAbsoluteEstimate(t *testing.T) {
	// Beating a negative estimate must still read as a positive surprise.
	e := Earnings{EstimateEPS: dec("-0.50"), ActualEPS: dec("-0.40")}
	got := e.EPSSurprisePct()
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("20")))
}

func TestEPSSurprisePctZeroEstimate(t *testing.T) {
	e := Earnings{EstimateEPS: dec("0"), ActualEPS: dec("0.10")}
	assert.Nil(t, e.EPSSurprisePct())
}

func TestRevSurprisePct(t *testing.T) {
	e := Earnings{EstimateRev: dec("1000"), ActualRev: dec("1050")}
	got := e.RevSurprisePct()
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("5")))
}

func TestSurprisePctMissingInputs(t *testing.T) {
	assert.Nil(t, Earnings{ActualEBITDA: dec("100")}.EBITDASurprisePct())
	assert.Nil(t, Earnings{EstimateFCF: dec("100")}.FCFSurprisePct())
}
