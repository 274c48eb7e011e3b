package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideadesk/ideadesk/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func singleFolder() domain.Folder {
	return domain.Folder{ID: "f-single", Type: domain.FolderTypeSingle, TickerPrimary: "AAPL"}
}

func pairFolder() domain.Folder {
	sec := "PEP"
	return domain.Folder{ID: "f-pair", Type: domain.FolderTypePair, TickerPrimary: "KO", TickerSecondary: &sec}
}

func singleFolderIdea(start time.Time) domain.Idea {
	return domain.Idea{
		ID:                "i-long",
		FolderID:          "f-single",
		Title:             "AAPL long",
		TradeType:         domain.TradeTypeLong,
		Status:            domain.IdeaStatusActive,
		StartDate:         start,
		EntryPricePrimary: d("100"),
	}
}

func pairFolderIdea(start time.Time) domain.Idea {
	orient := domain.LongPrimaryShortSecondary
	return domain.Idea{
		ID:                  "i-pair",
		FolderID:            "f-pair",
		Title:               "KO vs PEP",
		TradeType:           domain.TradeTypePair,
		PairOrientation:     &orient,
		Status:              domain.IdeaStatusActive,
		StartDate:           start,
		EntryPricePrimary:   d("50"),
		EntryPriceSecondary: dp("48"),
	}
}

func newTestPriceService(market *fakeMarket, obs *fakeObservationStore, ideas *fakeIdeaStore, folders *fakeFolderStore) (*PriceService, *fakeQuoteCache) {
	cache := newFakeQuoteCache()
	svc := NewPriceService(market, obs, ideas, folders, cache, time.Second, discardLogger())
	return svc, cache
}

func TestBackfillIsIdempotent(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{series: map[string][]domain.DailyClose{
		"AAPL": {
			{Date: day(2026, 1, 5), Close: d("100")},
			{Date: day(2026, 1, 6), Close: d("101")},
			{Date: day(2026, 1, 7), Close: d("102.5")},
		},
	}}
	obs := newFakeObservationStore()
	svc, _ := newTestPriceService(market, obs, newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	end := day(2026, 1, 7)
	created, err := svc.Backfill(context.Background(), "i-long", &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	// Same range again: every day is already covered.
	created, err = svc.Backfill(context.Background(), "i-long", &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, obs.byID, 3)
}

func TestBackfillStampsEndOfDayProvider(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{series: map[string][]domain.DailyClose{
		"AAPL": {{Date: day(2026, 1, 5), Close: d("100")}},
	}}
	obs := newFakeObservationStore()
	svc, _ := newTestPriceService(market, obs, newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	end := day(2026, 1, 5)
	_, err := svc.Backfill(context.Background(), "i-long", &start, &end)
	require.NoError(t, err)

	all, err := obs.ListByIdea(context.Background(), "i-long", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, time.Date(2026, 1, 5, 23, 59, 59, 0, time.UTC), all[0].Timestamp)
	assert.Equal(t, domain.PriceSourceProvider, all[0].Source)
	assert.True(t, all[0].PricePrimary.Equal(d("100")))
}

func TestBackfillPairSkipsDaysMissingOneLeg(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{series: map[string][]domain.DailyClose{
		"KO": {
			{Date: day(2026, 1, 5), Close: d("50")},
			{Date: day(2026, 1, 6), Close: d("51")},
			{Date: day(2026, 1, 7), Close: d("52")},
		},
		// PEP has no close on Jan 6.
		"PEP": {
			{Date: day(2026, 1, 5), Close: d("48")},
			{Date: day(2026, 1, 7), Close: d("47")},
		},
	}}
	obs := newFakeObservationStore()
	svc, _ := newTestPriceService(market, obs, newFakeIdeaStore(pairFolderIdea(start)), newFakeFolderStore(pairFolder()))

	end := day(2026, 1, 7)
	created, err := svc.Backfill(context.Background(), "i-pair", &start, &end)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	for _, o := range obs.byID {
		require.NotNil(t, o.PriceSecondary)
		assert.NotEqual(t, "2026-01-06", domain.DayKey(o.Timestamp))
	}
}

func TestBackfillDefaultsToIdeaStartDate(t *testing.T) {
	start := day(2026, 1, 6)
	market := &fakeMarket{series: map[string][]domain.DailyClose{
		"AAPL": {
			{Date: day(2026, 1, 5), Close: d("99")}, // before the idea existed
			{Date: day(2026, 1, 6), Close: d("100")},
		},
	}}
	obs := newFakeObservationStore()
	svc, _ := newTestPriceService(market, obs, newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	created, err := svc.Backfill(context.Background(), "i-long", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, created)
}

func TestBackfillRejectsInvertedRange(t *testing.T) {
	start := day(2026, 1, 7)
	end := day(2026, 1, 5)
	svc, _ := newTestPriceService(&fakeMarket{}, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	_, err := svc.Backfill(context.Background(), "i-long", &start, &end)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestBackfillUnknownIdea(t *testing.T) {
	svc, _ := newTestPriceService(&fakeMarket{}, newFakeObservationStore(), newFakeIdeaStore(), newFakeFolderStore())

	_, err := svc.Backfill(context.Background(), "nope", nil, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchLatestAndSnapshotUpdatesInPlace(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quotes: map[string]decimal.Decimal{"AAPL": d("110")}}
	obs := newFakeObservationStore()
	svc, _ := newTestPriceService(market, obs, newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	first, ok, err := svc.FetchLatestAndSnapshot(context.Background(), "i-long")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, first.PricePrimary.Equal(d("110")))
	assert.Equal(t, domain.PriceSourceProvider, first.Source)

	second, ok, err := svc.FetchLatestAndSnapshot(context.Background(), "i-long")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, obs.byID, 1)
}

func TestFetchLatestAndSnapshotStampsFetchTime(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quotes: map[string]decimal.Decimal{"AAPL": d("110")}}
	obs := newFakeObservationStore()
	svc, _ := newTestPriceService(market, obs, newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	created, ok, err := svc.FetchLatestAndSnapshot(context.Background(), "i-long")
	require.NoError(t, err)
	require.True(t, ok)

	// A fresh snapshot carries the fetch time; end-of-day stamping belongs
	// to backfilled observations only.
	assert.WithinDuration(t, time.Now().UTC(), created.Timestamp, time.Minute)
}

func TestFetchLatestAndSnapshotDegradesOnProviderFailure(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quoteErr: errors.New("provider down")}
	obs := newFakeObservationStore()
	svc, _ := newTestPriceService(market, obs, newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	_, ok, err := svc.FetchLatestAndSnapshot(context.Background(), "i-long")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, obs.byID)
}

func TestAddManualPairRequiresSecondary(t *testing.T) {
	start := day(2026, 1, 5)
	svc, _ := newTestPriceService(&fakeMarket{}, newFakeObservationStore(), newFakeIdeaStore(pairFolderIdea(start)), newFakeFolderStore(pairFolder()))

	_, err := svc.AddManual(context.Background(), "i-pair", day(2026, 1, 6), d("51"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrMissingPrice)
}

func TestAddManualRejectsNonPositivePrice(t *testing.T) {
	start := day(2026, 1, 5)
	svc, _ := newTestPriceService(&fakeMarket{}, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	_, err := svc.AddManual(context.Background(), "i-long", day(2026, 1, 6), d("0"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestAddManualRejectsSecondaryForSingleLeg(t *testing.T) {
	start := day(2026, 1, 5)
	svc, _ := newTestPriceService(&fakeMarket{}, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	_, err := svc.AddManual(context.Background(), "i-long", day(2026, 1, 6), d("101"), dp("48"), nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAddManualDuplicateTimestamp(t *testing.T) {
	start := day(2026, 1, 5)
	svc, _ := newTestPriceService(&fakeMarket{}, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	ts := time.Date(2026, 1, 6, 14, 30, 0, 0, time.UTC)
	_, err := svc.AddManual(context.Background(), "i-long", ts, d("101"), nil, nil)
	require.NoError(t, err)

	_, err = svc.AddManual(context.Background(), "i-long", ts, d("102"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestFetchCurrentPrefersCache(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quoteErr: errors.New("provider down")}
	svc, cache := newTestPriceService(market, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	require.NoError(t, cache.SetQuote(context.Background(), "AAPL", d("123"), time.Now()))

	price, ok := svc.FetchCurrent(context.Background(), "aapl")
	require.True(t, ok)
	assert.True(t, price.Equal(d("123")))
	assert.Equal(t, 0, market.quoteCalls)
}

func TestFetchCurrentProviderFailureIsUnavailable(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quoteErr: errors.New("provider down")}
	svc, _ := newTestPriceService(market, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	_, ok := svc.FetchCurrent(context.Background(), "AAPL")
	assert.False(t, ok)
}

func TestFetchCurrentCachesProviderHit(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quotes: map[string]decimal.Decimal{"AAPL": d("110")}}
	svc, cache := newTestPriceService(market, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	_, ok := svc.FetchCurrent(context.Background(), "AAPL")
	require.True(t, ok)
	_, ok = svc.FetchCurrent(context.Background(), "AAPL")
	require.True(t, ok)

	assert.Equal(t, 1, market.quoteCalls)
	assert.Contains(t, cache.quotes, "AAPL")
}

func TestFetchCurrentBatchDegradesPerTicker(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quotes: map[string]decimal.Decimal{"KO": d("50")}}
	svc, cache := newTestPriceService(market, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	require.NoError(t, cache.SetQuote(context.Background(), "AAPL", d("110"), time.Now()))

	got := svc.FetchCurrentBatch(context.Background(), []string{"AAPL", "ko", "MISSING", "aapl"})
	require.Len(t, got, 2)
	assert.True(t, got["AAPL"].Equal(d("110")))
	assert.True(t, got["KO"].Equal(d("50")))
	// Cached AAPL never reaches the provider; one call covers the rest.
	assert.Equal(t, 1, market.quoteCalls)
}

func TestFetchCurrentBatchProviderOutageKeepsCachedQuotes(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{quoteErr: errors.New("provider down")}
	svc, cache := newTestPriceService(market, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	require.NoError(t, cache.SetQuote(context.Background(), "AAPL", d("110"), time.Now()))

	// The whole batch call fails; the cached ticker still resolves and the
	// rest read as unavailable rather than erroring.
	got := svc.FetchCurrentBatch(context.Background(), []string{"AAPL", "KO", "PEP"})
	require.Len(t, got, 1)
	assert.True(t, got["AAPL"].Equal(d("110")))
	assert.NotContains(t, got, "KO")
	assert.NotContains(t, got, "PEP")
}

func TestGetPriceOnDateExactMatchOnly(t *testing.T) {
	start := day(2026, 1, 5)
	market := &fakeMarket{series: map[string][]domain.DailyClose{
		"AAPL": {
			{Date: day(2026, 1, 5), Close: d("100")},
			{Date: day(2026, 1, 7), Close: d("102")},
		},
	}}
	svc, _ := newTestPriceService(market, newFakeObservationStore(), newFakeIdeaStore(singleFolderIdea(start)), newFakeFolderStore(singleFolder()))

	price, ok := svc.GetPriceOnDate(context.Background(), "AAPL", day(2026, 1, 5))
	require.True(t, ok)
	assert.True(t, price.Equal(d("100")))

	// Jan 6 has no close; a neighboring day must not stand in for it.
	_, ok = svc.GetPriceOnDate(context.Background(), "AAPL", day(2026, 1, 6))
	assert.False(t, ok)
}

func TestTickersForRejectsThemeFolder(t *testing.T) {
	theme := "AI infra"
	folder := domain.Folder{ID: "f-theme", Type: domain.FolderTypeTheme, ThemeName: &theme}
	idea := singleFolderIdea(day(2026, 1, 5))
	idea.FolderID = "f-theme"
	svc, _ := newTestPriceService(&fakeMarket{}, newFakeObservationStore(), newFakeIdeaStore(idea), newFakeFolderStore(folder))

	_, err := svc.Backfill(context.Background(), "i-long", nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
