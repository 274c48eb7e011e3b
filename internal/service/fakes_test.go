package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// In-memory doubles for the domain interfaces. They enforce the same
// uniqueness rules the real stores do so idempotence tests are meaningful.

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

type fakeMarket struct {
	quotes       map[string]decimal.Decimal
	series       map[string][]domain.DailyClose
	fundamentals map[string]domain.FundamentalsReport
	quoteErr     error
	seriesErr    error
	quoteCalls   int
	seriesCalls  int
}

func (m *fakeMarket) Quote(_ context.Context, ticker string) (decimal.Decimal, error) {
	m.quoteCalls++
	if m.quoteErr != nil {
		return decimal.Zero, m.quoteErr
	}
	p, ok := m.quotes[ticker]
	if !ok {
		return decimal.Zero, domain.ErrNotFound
	}
	return p, nil
}

func (m *fakeMarket) Quotes(ctx context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	m.quoteCalls++
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := m.quotes[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

func (m *fakeMarket) DailySeries(_ context.Context, ticker string, from, to time.Time) ([]domain.DailyClose, error) {
	m.seriesCalls++
	if m.seriesErr != nil {
		return nil, m.seriesErr
	}
	var out []domain.DailyClose
	for _, dc := range m.series[ticker] {
		if dc.Date.Before(from) || dc.Date.After(to.AddDate(0, 0, 1)) {
			continue
		}
		out = append(out, dc)
	}
	return out, nil
}

func (m *fakeMarket) Fundamentals(_ context.Context, ticker string) (domain.FundamentalsReport, error) {
	r, ok := m.fundamentals[ticker]
	if !ok {
		return domain.FundamentalsReport{}, domain.ErrNotFound
	}
	return r, nil
}

type fakeObservationStore struct {
	byID map[string]domain.PriceObservation
}

func newFakeObservationStore() *fakeObservationStore {
	return &fakeObservationStore{byID: make(map[string]domain.PriceObservation)}
}

func (s *fakeObservationStore) Create(_ context.Context, obs domain.PriceObservation) error {
	for _, o := range s.byID {
		if o.IdeaID == obs.IdeaID && o.Timestamp.Equal(obs.Timestamp) {
			return domain.ErrAlreadyExists
		}
	}
	s.byID[obs.ID] = obs
	return nil
}

func (s *fakeObservationStore) Update(_ context.Context, obs domain.PriceObservation) error {
	if _, ok := s.byID[obs.ID]; !ok {
		return domain.ErrNotFound
	}
	s.byID[obs.ID] = obs
	return nil
}

func (s *fakeObservationStore) Delete(_ context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *fakeObservationStore) GetByID(_ context.Context, id string) (domain.PriceObservation, error) {
	o, ok := s.byID[id]
	if !ok {
		return domain.PriceObservation{}, domain.ErrNotFound
	}
	return o, nil
}

func (s *fakeObservationStore) ListByIdea(_ context.Context, ideaID string, _ domain.ListOpts) ([]domain.PriceObservation, error) {
	var out []domain.PriceObservation
	for _, o := range s.byID {
		if o.IdeaID == ideaID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *fakeObservationStore) ExistingDays(_ context.Context, ideaID string, from, to time.Time) ([]string, error) {
	seen := map[string]struct{}{}
	for _, o := range s.byID {
		if o.IdeaID != ideaID || o.Timestamp.Before(from) || o.Timestamp.After(to) {
			continue
		}
		seen[domain.DayKey(o.Timestamp)] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for day := range seen {
		out = append(out, day)
	}
	sort.Strings(out)
	return out, nil
}

func (s *fakeObservationStore) GetOnDay(_ context.Context, ideaID string, day time.Time) (domain.PriceObservation, error) {
	want := domain.DayKey(day)
	for _, o := range s.byID {
		if o.IdeaID == ideaID && domain.DayKey(o.Timestamp) == want {
			return o, nil
		}
	}
	return domain.PriceObservation{}, domain.ErrNotFound
}

func (s *fakeObservationStore) ListBefore(_ context.Context, before time.Time) ([]domain.PriceObservation, error) {
	var out []domain.PriceObservation
	for _, o := range s.byID {
		if o.Timestamp.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

type fakeIdeaStore struct {
	byID map[string]domain.Idea
}

func newFakeIdeaStore(ideas ...domain.Idea) *fakeIdeaStore {
	s := &fakeIdeaStore{byID: make(map[string]domain.Idea)}
	for _, i := range ideas {
		s.byID[i.ID] = i
	}
	return s
}

func (s *fakeIdeaStore) Create(_ context.Context, idea domain.Idea) error {
	s.byID[idea.ID] = idea
	return nil
}

func (s *fakeIdeaStore) Update(_ context.Context, idea domain.Idea) error {
	if _, ok := s.byID[idea.ID]; !ok {
		return domain.ErrNotFound
	}
	s.byID[idea.ID] = idea
	return nil
}

func (s *fakeIdeaStore) Delete(_ context.Context, id string) error {
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

func (s *fakeIdeaStore) GetByID(_ context.Context, id string) (domain.Idea, error) {
	i, ok := s.byID[id]
	if !ok {
		return domain.Idea{}, domain.ErrNotFound
	}
	return i, nil
}

func (s *fakeIdeaStore) List(_ context.Context, filter domain.IdeaFilter) ([]domain.Idea, error) {
	var out []domain.Idea
	for _, i := range s.byID {
		if filter.FolderID != nil && i.FolderID != *filter.FolderID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if i.Status == st {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeIdeaStore) CountByFolder(_ context.Context, folderID string) (int64, int64, error) {
	var total, active int64
	for _, i := range s.byID {
		if i.FolderID != folderID {
			continue
		}
		total++
		if !i.IsClosed() {
			active++
		}
	}
	return total, active, nil
}

type fakeFolderStore struct {
	byID map[string]domain.Folder
}

func newFakeFolderStore(folders ...domain.Folder) *fakeFolderStore {
	s := &fakeFolderStore{byID: make(map[string]domain.Folder)}
	for _, f := range folders {
		s.byID[f.ID] = f
	}
	return s
}

func (s *fakeFolderStore) Create(_ context.Context, f domain.Folder) error {
	s.byID[f.ID] = f
	return nil
}

func (s *fakeFolderStore) Update(_ context.Context, f domain.Folder) error {
	if _, ok := s.byID[f.ID]; !ok {
		return domain.ErrNotFound
	}
	s.byID[f.ID] = f
	return nil
}

func (s *fakeFolderStore) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *fakeFolderStore) GetByID(_ context.Context, id string) (domain.Folder, error) {
	f, ok := s.byID[id]
	if !ok {
		return domain.Folder{}, domain.ErrNotFound
	}
	return f, nil
}

func (s *fakeFolderStore) List(_ context.Context, _ domain.FolderFilter) ([]domain.Folder, error) {
	var out []domain.Folder
	for _, f := range s.byID {
		out = append(out, f)
	}
	return out, nil
}

func (s *fakeFolderStore) GetByTickers(_ context.Context, primary string, secondary *string) (domain.Folder, error) {
	for _, f := range s.byID {
		if f.Type == domain.FolderTypeTheme || f.TickerPrimary != primary {
			continue
		}
		switch {
		case secondary == nil && f.TickerSecondary == nil:
			return f, nil
		case secondary != nil && f.TickerSecondary != nil && *secondary == *f.TickerSecondary:
			return f, nil
		}
	}
	return domain.Folder{}, domain.ErrNotFound
}

func (s *fakeFolderStore) GetThemeByName(_ context.Context, name string) (domain.Folder, error) {
	for _, f := range s.byID {
		if f.Type == domain.FolderTypeTheme && f.ThemeName != nil && *f.ThemeName == name {
			return f, nil
		}
	}
	return domain.Folder{}, domain.ErrNotFound
}

func (s *fakeFolderStore) ListThemes(_ context.Context, _ string, _ int) ([]domain.Folder, error) {
	var out []domain.Folder
	for _, f := range s.byID {
		if f.Type == domain.FolderTypeTheme {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeFolderStore) ListByThemeID(_ context.Context, themeID string) ([]domain.Folder, error) {
	var out []domain.Folder
	for _, f := range s.byID {
		for _, id := range f.ThemeIDs {
			if id == themeID {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeFolderStore) RemoveThemeID(_ context.Context, themeID string) error {
	for id, f := range s.byID {
		kept := f.ThemeIDs[:0]
		for _, tid := range f.ThemeIDs {
			if tid != themeID {
				kept = append(kept, tid)
			}
		}
		f.ThemeIDs = kept
		s.byID[id] = f
	}
	return nil
}

type fakeQuoteCache struct {
	quotes map[string]decimal.Decimal
}

func newFakeQuoteCache() *fakeQuoteCache {
	return &fakeQuoteCache{quotes: make(map[string]decimal.Decimal)}
}

func (c *fakeQuoteCache) SetQuote(_ context.Context, ticker string, price decimal.Decimal, _ time.Time) error {
	c.quotes[ticker] = price
	return nil
}

func (c *fakeQuoteCache) GetQuote(_ context.Context, ticker string) (decimal.Decimal, time.Time, error) {
	p, ok := c.quotes[ticker]
	if !ok {
		return decimal.Zero, time.Time{}, domain.ErrNotFound
	}
	return p, time.Now().UTC(), nil
}

func (c *fakeQuoteCache) GetQuotes(_ context.Context, tickers []string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	for _, t := range tickers {
		if p, ok := c.quotes[t]; ok {
			out[t] = p
		}
	}
	return out, nil
}

type fakeNoteStore struct {
	byID map[string]domain.Note
}

func newFakeNoteStore() *fakeNoteStore {
	return &fakeNoteStore{byID: make(map[string]domain.Note)}
}

func (s *fakeNoteStore) Create(_ context.Context, n domain.Note) error {
	s.byID[n.ID] = n
	return nil
}

func (s *fakeNoteStore) Update(_ context.Context, n domain.Note) error {
	if _, ok := s.byID[n.ID]; !ok {
		return domain.ErrNotFound
	}
	s.byID[n.ID] = n
	return nil
}

func (s *fakeNoteStore) Delete(_ context.Context, id string) error {
	delete(s.byID, id)
	return nil
}

func (s *fakeNoteStore) GetByID(_ context.Context, id string) (domain.Note, error) {
	n, ok := s.byID[id]
	if !ok {
		return domain.Note{}, domain.ErrNotFound
	}
	return n, nil
}

func (s *fakeNoteStore) ListByIdea(_ context.Context, ideaID string) ([]domain.Note, error) {
	var out []domain.Note
	for _, n := range s.byID {
		if n.IdeaID != nil && *n.IdeaID == ideaID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *fakeNoteStore) ListByFolder(_ context.Context, folderID string) ([]domain.Note, error) {
	var out []domain.Note
	for _, n := range s.byID {
		if n.FolderID != nil && *n.FolderID == folderID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeAuditStore struct {
	events []string
}

func (s *fakeAuditStore) Log(_ context.Context, event string, _ map[string]any) error {
	s.events = append(s.events, event)
	return nil
}

func (s *fakeAuditStore) List(_ context.Context, _ domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

// Compile-time interface checks for the doubles.
var (
	_ domain.MarketData       = (*fakeMarket)(nil)
	_ domain.ObservationStore = (*fakeObservationStore)(nil)
	_ domain.IdeaStore        = (*fakeIdeaStore)(nil)
	_ domain.FolderStore      = (*fakeFolderStore)(nil)
	_ domain.QuoteCache       = (*fakeQuoteCache)(nil)
	_ domain.NoteStore        = (*fakeNoteStore)(nil)
	_ domain.AuditStore       = (*fakeAuditStore)(nil)
)
