package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuidanceMidpointFromRange(t *testing.T) {
	g := Guidance{GuidanceLow: dec("100"), GuidanceHigh: dec("110")}
	got := g.Midpoint()
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("105")))
}

func TestGuidanceMidpointFallsBackToPoint(t *testing.T) {
	g := Guidance{GuidancePoint: dec("107")}
	got := g.Midpoint()
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("107")))

	assert.Nil(t, Guidance{}.Midpoint())
	// A one-sided range is not a range.
	assert.Nil(t, Guidance{GuidanceLow: dec("100")}.Midpoint())
}

func TestGuidanceVsMidpoint(t *testing.T) {
	g := Guidance{
		GuidanceLow:  dec("100"),
		GuidanceHigh: dec("110"),
		ActualResult: dec("108"),
	}
	got := g.VsMidpoint()
	require.NotNil(t, got)
	assert.True(t, got.Equal(decimal.RequireFromString("3")))

	assert.Nil(t, Guidance{ActualResult: dec("108")}.VsMidpoint())
}

func TestGuidanceVsLowVsHigh(t *testing.T) {
	g := Guidance{
		GuidanceLow:  dec("100"),
		GuidanceHigh: dec("110"),
		ActualResult: dec("95"),
	}
	low := g.VsLow()
	require.NotNil(t, low)
	assert.True(t, low.Equal(decimal.RequireFromString("-5")))

	high := g.VsHigh()
	require.NotNil(t, high)
	assert.True(t, high.Equal(decimal.RequireFromString("-15")))
}
