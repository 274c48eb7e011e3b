package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEndOfDay(t *testing.T) {
	ts := time.Date(2026, 1, 5, 9, 30, 12, 345, time.UTC)
	assert.Equal(t, time.Date(2026, 1, 5, 23, 59, 59, 0, time.UTC), EndOfDay(ts))

	// Non-UTC timestamps normalize to their UTC calendar date.
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2026, 1, 5, 22, 0, 0, 0, est) // Jan 6 03:00 UTC
	assert.Equal(t, time.Date(2026, 1, 6, 23, 59, 59, 0, time.UTC), EndOfDay(late))
}

func TestDayKey(t *testing.T) {
	assert.Equal(t, "2026-01-05", DayKey(time.Date(2026, 1, 5, 23, 59, 59, 0, time.UTC)))

	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2026-01-06", DayKey(time.Date(2026, 1, 5, 22, 0, 0, 0, est)))
}
