package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideadesk/ideadesk/internal/domain"
)

type ideaFixture struct {
	svc     *IdeaService
	ideas   *fakeIdeaStore
	folders *fakeFolderStore
	obs     *fakeObservationStore
	notes   *fakeNoteStore
	audit   *fakeAuditStore
	market  *fakeMarket
}

func newIdeaFixture(t *testing.T, folders []domain.Folder, ideas ...domain.Idea) *ideaFixture {
	t.Helper()
	f := &ideaFixture{
		ideas:   newFakeIdeaStore(ideas...),
		folders: newFakeFolderStore(folders...),
		obs:     newFakeObservationStore(),
		notes:   newFakeNoteStore(),
		audit:   &fakeAuditStore{},
		market:  &fakeMarket{quotes: map[string]decimal.Decimal{}},
	}
	prices := NewPriceService(f.market, f.obs, f.ideas, f.folders, newFakeQuoteCache(), time.Second, discardLogger())
	f.svc = NewIdeaService(f.ideas, f.folders, f.obs, f.notes, f.audit, prices, discardLogger())
	return f
}

func TestIdeaCreateDefaultsAndAudit(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()})

	idea := domain.Idea{
		FolderID:          "f-single",
		Title:             "AAPL long",
		TradeType:         domain.TradeTypeLong,
		EntryPricePrimary: d("100"),
	}
	created, err := f.svc.Create(context.Background(), idea)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.IdeaStatusDraft, created.Status)
	assert.False(t, created.StartDate.IsZero())
	assert.Contains(t, f.audit.events, "idea_created")
}

func TestIdeaCreatePairRequiresPairFolder(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()})

	orient := domain.LongPrimaryShortSecondary
	idea := domain.Idea{
		FolderID:            "f-single",
		Title:               "misplaced pair",
		TradeType:           domain.TradeTypePair,
		PairOrientation:     &orient,
		EntryPricePrimary:   d("50"),
		EntryPriceSecondary: dp("48"),
	}
	_, err := f.svc.Create(context.Background(), idea)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaCreateSingleLegRejectedInPairFolder(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{pairFolder()})

	idea := domain.Idea{
		FolderID:          "f-pair",
		Title:             "misplaced long",
		TradeType:         domain.TradeTypeLong,
		EntryPricePrimary: d("50"),
	}
	_, err := f.svc.Create(context.Background(), idea)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaCreateRejectedInThemeFolder(t *testing.T) {
	theme := "AI infra"
	f := newIdeaFixture(t, []domain.Folder{{ID: "f-theme", Type: domain.FolderTypeTheme, ThemeName: &theme}})

	idea := domain.Idea{
		FolderID:          "f-theme",
		Title:             "no home",
		TradeType:         domain.TradeTypeLong,
		EntryPricePrimary: d("100"),
	}
	_, err := f.svc.Create(context.Background(), idea)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaCreateRejectsTerminalInitialStatus(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()})

	idea := domain.Idea{
		FolderID:          "f-single",
		Title:             "born dead",
		TradeType:         domain.TradeTypeLong,
		Status:            domain.IdeaStatusClosed,
		EntryPricePrimary: d("100"),
	}
	_, err := f.svc.Create(context.Background(), idea)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaCreateRejectsNonPositiveEntry(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()})

	idea := domain.Idea{
		FolderID:          "f-single",
		Title:             "bad entry",
		TradeType:         domain.TradeTypeLong,
		EntryPricePrimary: d("0"),
	}
	_, err := f.svc.Create(context.Background(), idea)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestIdeaUpdateStatusRejectsTerminal(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))

	_, err := f.svc.UpdateStatus(context.Background(), "i-long", domain.IdeaStatusClosed)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaUpdateStatusRejectsClosedIdea(t *testing.T) {
	idea := singleFolderIdea(day(2026, 1, 5))
	idea.Status = domain.IdeaStatusKilled
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, idea)

	_, err := f.svc.UpdateStatus(context.Background(), "i-long", domain.IdeaStatusActive)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaUpdateStatusTransitions(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))

	updated, err := f.svc.UpdateStatus(context.Background(), "i-long", domain.IdeaStatusScaledUp)
	require.NoError(t, err)
	assert.Equal(t, domain.IdeaStatusScaledUp, updated.Status)
	assert.Contains(t, f.audit.events, "idea_status_changed")
}

func TestIdeaCloseFreezesExitPrices(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))

	note := "thesis played out"
	closed, err := f.svc.Close(context.Background(), "i-long", domain.IdeaClose{
		Status:           domain.IdeaStatusClosed,
		ExitPricePrimary: d("120"),
		ExitDate:         day(2026, 3, 1),
		PostmortemNote:   &note,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.IdeaStatusClosed, closed.Status)
	require.NotNil(t, closed.ExitPricePrimary)
	assert.True(t, closed.ExitPricePrimary.Equal(d("120")))

	notes, err := f.notes.ListByIdea(context.Background(), "i-long")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotePostmortem, notes[0].NoteType)
	assert.Equal(t, note, notes[0].ContentMD)
}

func TestIdeaClosePairRequiresSecondaryExit(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{pairFolder()}, pairFolderIdea(day(2026, 1, 5)))

	_, err := f.svc.Close(context.Background(), "i-pair", domain.IdeaClose{
		Status:           domain.IdeaStatusClosed,
		ExitPricePrimary: d("55"),
	})
	assert.ErrorIs(t, err, domain.ErrMissingPrice)
}

func TestIdeaCloseTwiceFails(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))

	cl := domain.IdeaClose{Status: domain.IdeaStatusClosed, ExitPricePrimary: d("120")}
	_, err := f.svc.Close(context.Background(), "i-long", cl)
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), "i-long", cl)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaCloseRequiresTerminalStatus(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))

	_, err := f.svc.Close(context.Background(), "i-long", domain.IdeaClose{
		Status:           domain.IdeaStatusTrimmed,
		ExitPricePrimary: d("120"),
	})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestIdeaGetPnLClosedUsesExitPrices(t *testing.T) {
	idea := singleFolderIdea(day(2026, 1, 5))
	idea.Status = domain.IdeaStatusClosed
	idea.ExitPricePrimary = dp("120")
	exit := day(2026, 3, 1)
	idea.ExitDate = &exit
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, idea)

	// No quote anywhere; the stored exit price must carry the computation.
	resp, err := f.svc.GetPnL(context.Background(), "i-long")
	require.NoError(t, err)
	assert.True(t, resp.IsRealized)
	assert.True(t, resp.PnLPercent.Equal(d("0.2")))
	assert.True(t, resp.CurrentPricePrimary.Equal(d("120")))
	assert.Equal(t, 0, f.market.quoteCalls)
}

func TestIdeaGetPnLOpenFetchesQuote(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))
	f.market.quotes["AAPL"] = d("110")

	resp, err := f.svc.GetPnL(context.Background(), "i-long")
	require.NoError(t, err)
	assert.False(t, resp.IsRealized)
	assert.True(t, resp.PnLPercent.Equal(d("0.1")))
}

func TestIdeaGetPnLQuoteMissIsUnavailable(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))
	f.market.quoteErr = errors.New("provider down")

	_, err := f.svc.GetPnL(context.Background(), "i-long")
	assert.ErrorIs(t, err, domain.ErrPriceUnavailable)
}

func TestIdeaListWithPnLDegradesPerIdea(t *testing.T) {
	sec := "PEP"
	folders := []domain.Folder{
		singleFolder(),
		{ID: "f-pair", Type: domain.FolderTypePair, TickerPrimary: "KO", TickerSecondary: &sec},
	}
	f := newIdeaFixture(t, folders, singleFolderIdea(day(2026, 1, 5)), pairFolderIdea(day(2026, 1, 5)))
	// Only AAPL quotes; the pair idea's legs stay unavailable.
	f.market.quotes["AAPL"] = d("110")

	out, err := f.svc.List(context.Background(), domain.IdeaFilter{}, true)
	require.NoError(t, err)
	require.Len(t, out, 2)

	byID := map[string]IdeaWithPnL{}
	for _, it := range out {
		byID[it.Idea.ID] = it
	}
	require.NotNil(t, byID["i-long"].PnL)
	assert.True(t, byID["i-long"].PnL.PnLPercent.Equal(d("0.1")))
	assert.Nil(t, byID["i-pair"].PnL)
}

func TestIdeaListClosedUsesStoredExit(t *testing.T) {
	idea := singleFolderIdea(day(2026, 1, 5))
	idea.Status = domain.IdeaStatusClosed
	idea.ExitPricePrimary = dp("90")
	exit := day(2026, 2, 1)
	idea.ExitDate = &exit
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, idea)
	f.market.quoteErr = errors.New("provider down")

	out, err := f.svc.List(context.Background(), domain.IdeaFilter{}, true)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].PnL)
	assert.True(t, out[0].PnL.IsRealized)
	assert.True(t, out[0].PnL.PnLPercent.Equal(d("-0.1")))
}

func TestIdeaGetPnLHistoryFromObservations(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))
	for i, price := range []string{"105", "110"} {
		obsDay := domain.EndOfDay(day(2026, 1, 5+i))
		require.NoError(t, f.obs.Create(context.Background(), domain.PriceObservation{
			ID:           string(rune('a' + i)),
			IdeaID:       "i-long",
			Timestamp:    obsDay,
			PricePrimary: d(price),
			Source:       domain.PriceSourceProvider,
		}))
	}

	history, err := f.svc.GetPnLHistory(context.Background(), "i-long", domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, history.History, 2)
	assert.True(t, history.History[0].PnLPercent.Equal(d("0.05")))
	assert.True(t, history.History[1].PnLPercent.Equal(d("0.1")))
}

func TestIdeaUpdateRejectsNegativeSize(t *testing.T) {
	f := newIdeaFixture(t, []domain.Folder{singleFolder()}, singleFolderIdea(day(2026, 1, 5)))

	bad := d("-1")
	_, err := f.svc.Update(context.Background(), "i-long", domain.IdeaPatch{PositionSize: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
}
