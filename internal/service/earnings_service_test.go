package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideadesk/ideadesk/internal/domain"
)

type fakeEarningsStore struct {
	byID map[string]domain.Earnings
}

func newFakeEarningsStore() *fakeEarningsStore {
	return &fakeEarningsStore{byID: make(map[string]domain.Earnings)}
}

func (s *fakeEarningsStore) Create(_ context.Context, e domain.Earnings) error {
	s.byID[e.ID] = e
	return nil
}

func (s *fakeEarningsStore) Update(_ context.Context, e domain.Earnings) error {
	if _, ok := s.byID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	s.byID[e.ID] = e
	return nil
}

func (s *fakeEarningsStore) Delete(_ context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *fakeEarningsStore) GetByID(_ context.Context, id string) (domain.Earnings, error) {
	e, ok := s.byID[id]
	if !ok {
		return domain.Earnings{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *fakeEarningsStore) GetByKey(_ context.Context, folderID, ticker, fiscalQuarter string) (domain.Earnings, error) {
	for _, e := range s.byID {
		if e.FolderID == folderID && e.Ticker == ticker && e.FiscalQuarter == fiscalQuarter {
			return e, nil
		}
	}
	return domain.Earnings{}, domain.ErrNotFound
}

func (s *fakeEarningsStore) ListByFolder(_ context.Context, folderID string, ticker *string) ([]domain.Earnings, error) {
	var out []domain.Earnings
	for _, e := range s.byID {
		if e.FolderID != folderID {
			continue
		}
		if ticker != nil && e.Ticker != *ticker {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

var _ domain.EarningsStore = (*fakeEarningsStore)(nil)

func newEarningsFixture(market *fakeMarket, folders ...domain.Folder) (*EarningsService, *fakeEarningsStore) {
	store := newFakeEarningsStore()
	svc := NewEarningsService(store, newFakeFolderStore(folders...), market, discardLogger())
	return svc, store
}

func TestEarningsUpsertCreatesThenMerges(t *testing.T) {
	svc, store := newEarningsFixture(&fakeMarket{}, singleFolder())

	first, err := svc.Upsert(context.Background(), domain.Earnings{
		FolderID:      "f-single",
		Ticker:        "aapl",
		PeriodType:    domain.PeriodQuarterly,
		FiscalQuarter: "Q1 2026",
		EstimateEPS:   dp("1.50"),
		MyEstimateEPS: dp("1.60"),
	})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Ticker)
	assert.Len(t, store.byID, 1)

	// Second upsert for the same key carries only the actual; the estimates
	// survive the merge.
	second, err := svc.Upsert(context.Background(), domain.Earnings{
		FolderID:      "f-single",
		Ticker:        "AAPL",
		PeriodType:    domain.PeriodQuarterly,
		FiscalQuarter: "Q1 2026",
		ActualEPS:     dp("1.55"),
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.byID, 1)
	require.NotNil(t, second.EstimateEPS)
	assert.True(t, second.EstimateEPS.Equal(d("1.50")))
	require.NotNil(t, second.MyEstimateEPS)
	assert.True(t, second.MyEstimateEPS.Equal(d("1.60")))
	require.NotNil(t, second.ActualEPS)
	assert.True(t, second.ActualEPS.Equal(d("1.55")))
}

func TestEarningsUpsertValidation(t *testing.T) {
	svc, _ := newEarningsFixture(&fakeMarket{}, singleFolder())

	_, err := svc.Upsert(context.Background(), domain.Earnings{
		FolderID:   "f-single",
		Ticker:     "AAPL",
		PeriodType: domain.PeriodQuarterly,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Upsert(context.Background(), domain.Earnings{
		FolderID:      "f-single",
		Ticker:        "AAPL",
		PeriodType:    "WEEKLY",
		FiscalQuarter: "Q1 2026",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Upsert(context.Background(), domain.Earnings{
		FolderID:      "missing",
		Ticker:        "AAPL",
		PeriodType:    domain.PeriodQuarterly,
		FiscalQuarter: "Q1 2026",
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEarningsUpdateKeepsIdentity(t *testing.T) {
	svc, _ := newEarningsFixture(&fakeMarket{}, singleFolder())

	created, err := svc.Upsert(context.Background(), domain.Earnings{
		FolderID:      "f-single",
		Ticker:        "AAPL",
		PeriodType:    domain.PeriodQuarterly,
		FiscalQuarter: "Q1 2026",
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), domain.Earnings{
		ID:            created.ID,
		FolderID:      "somewhere-else",
		Ticker:        "MSFT",
		FiscalQuarter: "Q4 2099",
		ActualEPS:     dp("2.00"),
	})
	require.NoError(t, err)
	assert.Equal(t, "f-single", updated.FolderID)
	assert.Equal(t, "AAPL", updated.Ticker)
	assert.Equal(t, "Q1 2026", updated.FiscalQuarter)
	require.NotNil(t, updated.ActualEPS)
}

func TestRefreshFromProviderPreservesUserFields(t *testing.T) {
	market := &fakeMarket{
		fundamentals: map[string]domain.FundamentalsReport{
			"AAPL": {
				Quarterly: []domain.EarningsPeriod{
					{FiscalQuarter: "Q1 2026", EPSEstimate: dp("1.50"), EPSActual: dp("1.55"), Revenue: dp("95000")},
					{FiscalQuarter: "Q2 2026", EPSEstimate: dp("1.40")},
				},
				Annual: []domain.EarningsPeriod{
					{FiscalQuarter: "FY 2025", EPSActual: dp("6.10")},
				},
			},
		},
	}
	svc, store := newEarningsFixture(market, singleFolder())

	// A record with a user estimate already exists for Q1.
	_, err := svc.Upsert(context.Background(), domain.Earnings{
		FolderID:      "f-single",
		Ticker:        "AAPL",
		PeriodType:    domain.PeriodQuarterly,
		FiscalQuarter: "Q1 2026",
		MyEstimateEPS: dp("1.60"),
	})
	require.NoError(t, err)

	created, updated, err := svc.RefreshFromProvider(context.Background(), "f-single", "aapl")
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, updated)
	assert.Len(t, store.byID, 3)

	q1, err := store.GetByKey(context.Background(), "f-single", "AAPL", "Q1 2026")
	require.NoError(t, err)
	require.NotNil(t, q1.MyEstimateEPS)
	assert.True(t, q1.MyEstimateEPS.Equal(d("1.60")))
	require.NotNil(t, q1.ActualEPS)
	assert.True(t, q1.ActualEPS.Equal(d("1.55")))
	require.NotNil(t, q1.ActualRev)

	fy, err := store.GetByKey(context.Background(), "f-single", "AAPL", "FY 2025")
	require.NoError(t, err)
	assert.Equal(t, domain.PeriodAnnual, fy.PeriodType)
}

func TestRefreshFromProviderDegradesOnOutage(t *testing.T) {
	market := &fakeMarket{} // no fundamentals at all
	svc, store := newEarningsFixture(market, singleFolder())

	created, updated, err := svc.RefreshFromProvider(context.Background(), "f-single", "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Equal(t, 0, updated)
	assert.Empty(t, store.byID)
}

func TestRefreshFromProviderRejectsForeignTicker(t *testing.T) {
	svc, _ := newEarningsFixture(&fakeMarket{}, singleFolder())

	_, _, err := svc.RefreshFromProvider(context.Background(), "f-single", "MSFT")
	assert.ErrorIs(t, err, domain.ErrValidation)
}
