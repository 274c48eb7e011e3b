package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideadesk/ideadesk/internal/domain"
)

type folderFixture struct {
	svc     *FolderService
	folders *fakeFolderStore
	ideas   *fakeIdeaStore
	market  *fakeMarket
}

func newFolderFixture(t *testing.T, folders ...domain.Folder) *folderFixture {
	t.Helper()
	f := &folderFixture{
		folders: newFakeFolderStore(folders...),
		ideas:   newFakeIdeaStore(),
		market:  &fakeMarket{quotes: map[string]decimal.Decimal{}, series: map[string][]domain.DailyClose{}},
	}
	prices := NewPriceService(f.market, newFakeObservationStore(), f.ideas, f.folders, newFakeQuoteCache(), time.Second, discardLogger())
	f.svc = NewFolderService(f.folders, f.ideas, &fakeAuditStore{}, prices, discardLogger())
	return f
}

func TestFolderCreateNormalizesTickers(t *testing.T) {
	f := newFolderFixture(t)

	created, err := f.svc.Create(context.Background(), domain.Folder{
		Type:          domain.FolderTypeSingle,
		TickerPrimary: "aapl",
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", created.TickerPrimary)
	assert.NotEmpty(t, created.ID)
}

func TestFolderCreateDuplicateTicker(t *testing.T) {
	f := newFolderFixture(t, singleFolder())

	_, err := f.svc.Create(context.Background(), domain.Folder{
		Type:          domain.FolderTypeSingle,
		TickerPrimary: "aapl",
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestFolderCreateDuplicateThemeName(t *testing.T) {
	theme := "AI infra"
	f := newFolderFixture(t, domain.Folder{ID: "f-theme", Type: domain.FolderTypeTheme, ThemeName: &theme})

	_, err := f.svc.Create(context.Background(), domain.Folder{
		Type:      domain.FolderTypeTheme,
		ThemeName: &theme,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestFolderCreatePairValidation(t *testing.T) {
	f := newFolderFixture(t)

	_, err := f.svc.Create(context.Background(), domain.Folder{
		Type:          domain.FolderTypePair,
		TickerPrimary: "KO",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	same := "KO"
	_, err = f.svc.Create(context.Background(), domain.Folder{
		Type:            domain.FolderTypePair,
		TickerPrimary:   "KO",
		TickerSecondary: &same,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFolderCreateThemeRejectsTickerLegs(t *testing.T) {
	f := newFolderFixture(t)

	theme := "AI infra"
	_, err := f.svc.Create(context.Background(), domain.Folder{
		Type:          domain.FolderTypeTheme,
		ThemeName:     &theme,
		TickerPrimary: "NVDA",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestThemeMembership(t *testing.T) {
	theme := "AI infra"
	f := newFolderFixture(t,
		singleFolder(),
		domain.Folder{ID: "f-theme", Type: domain.FolderTypeTheme, ThemeName: &theme},
	)

	updated, err := f.svc.AddToTheme(context.Background(), "f-single", "f-theme")
	require.NoError(t, err)
	assert.Equal(t, []string{"f-theme"}, updated.ThemeIDs)

	// Re-adding is idempotent.
	updated, err = f.svc.AddToTheme(context.Background(), "f-single", "f-theme")
	require.NoError(t, err)
	assert.Len(t, updated.ThemeIDs, 1)

	members, err := f.svc.ListThemeMembers(context.Background(), "f-theme")
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "f-single", members[0].ID)

	updated, err = f.svc.RemoveFromTheme(context.Background(), "f-single", "f-theme")
	require.NoError(t, err)
	assert.Empty(t, updated.ThemeIDs)
}

func TestAddToThemeRejectsNonTheme(t *testing.T) {
	sec := "PEP"
	f := newFolderFixture(t,
		singleFolder(),
		domain.Folder{ID: "f-pair", Type: domain.FolderTypePair, TickerPrimary: "KO", TickerSecondary: &sec},
	)

	_, err := f.svc.AddToTheme(context.Background(), "f-single", "f-pair")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteThemeDetachesMembers(t *testing.T) {
	theme := "AI infra"
	member := singleFolder()
	member.ThemeIDs = []string{"f-theme"}
	f := newFolderFixture(t,
		member,
		domain.Folder{ID: "f-theme", Type: domain.FolderTypeTheme, ThemeName: &theme},
	)

	require.NoError(t, f.svc.Delete(context.Background(), "f-theme"))

	remaining, err := f.folders.GetByID(context.Background(), "f-single")
	require.NoError(t, err)
	assert.Empty(t, remaining.ThemeIDs)
}

func TestThemePerformance(t *testing.T) {
	theme := "AI infra"
	themeDate := day(2026, 1, 5)
	manual := decimal.RequireFromString("0.25")
	f := newFolderFixture(t, domain.Folder{
		ID:        "f-theme",
		Type:      domain.FolderTypeTheme,
		ThemeName: &theme,
		ThemeDate: &themeDate,
		ThemeTickers: []domain.ThemeTicker{
			{Ticker: "NVDA"},
			{Ticker: "PRIVCO", PnL: &manual},
			{Ticker: "NODATA"},
		},
	})
	f.market.series["NVDA"] = []domain.DailyClose{{Date: themeDate, Close: d("100")}}
	f.market.quotes["NVDA"] = d("150")

	perf, err := f.svc.Performance(context.Background(), "f-theme")
	require.NoError(t, err)
	assert.Equal(t, "AI infra", perf.ThemeName)
	require.Len(t, perf.Constituents, 3)

	byTicker := map[string]ThemeConstituent{}
	for _, c := range perf.Constituents {
		byTicker[c.Ticker] = c
	}

	nvda := byTicker["NVDA"]
	require.NotNil(t, nvda.PnL)
	assert.True(t, nvda.PnL.Equal(d("0.5")))
	assert.False(t, nvda.Manual)

	priv := byTicker["PRIVCO"]
	require.NotNil(t, priv.PnL)
	assert.True(t, priv.PnL.Equal(manual))
	assert.True(t, priv.Manual)

	// No data anywhere: constituent reported without a figure, theme survives.
	assert.Nil(t, byTicker["NODATA"].PnL)

	require.NotNil(t, perf.AveragePnL)
	assert.True(t, perf.AveragePnL.Equal(d("0.375")))
}

func TestThemePerformanceRejectsNonTheme(t *testing.T) {
	f := newFolderFixture(t, singleFolder())

	_, err := f.svc.Performance(context.Background(), "f-single")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFolderGetIncludesCounts(t *testing.T) {
	f := newFolderFixture(t, singleFolder())
	idea := singleFolderIdea(day(2026, 1, 5))
	require.NoError(t, f.ideas.Create(context.Background(), idea))
	closed := singleFolderIdea(day(2026, 1, 5))
	closed.ID = "i-closed"
	closed.Status = domain.IdeaStatusClosed
	require.NoError(t, f.ideas.Create(context.Background(), closed))

	got, err := f.svc.Get(context.Background(), "f-single")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.IdeaCount)
	assert.Equal(t, int64(1), got.ActiveCount)
}
