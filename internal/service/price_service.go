package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// PriceLookup is the quote capability the idea and folder services need from
// the price layer. PriceService is the production implementation.
type PriceLookup interface {
	FetchCurrent(ctx context.Context, ticker string) (decimal.Decimal, bool)
	FetchCurrentBatch(ctx context.Context, tickers []string) map[string]decimal.Decimal
	GetPriceOnDate(ctx context.Context, ticker string, date time.Time) (decimal.Decimal, bool)
}

// PriceService owns everything price-shaped: live quote fetching with a cache
// in front of the provider, historical backfill of idea price series, daily
// snapshots, and manual observations. Provider failures never surface as
// errors from quote methods; callers receive "unavailable" and degrade.
type PriceService struct {
	market       domain.MarketData
	observations domain.ObservationStore
	ideas        domain.IdeaStore
	folders      domain.FolderStore
	quotes       domain.QuoteCache
	timeout      time.Duration
	logger       *slog.Logger
}

// NewPriceService creates a PriceService with all required dependencies.
func NewPriceService(
	market domain.MarketData,
	observations domain.ObservationStore,
	ideas domain.IdeaStore,
	folders domain.FolderStore,
	quotes domain.QuoteCache,
	timeout time.Duration,
	logger *slog.Logger,
) *PriceService {
	return &PriceService{
		market:       market,
		observations: observations,
		ideas:        ideas,
		folders:      folders,
		quotes:       quotes,
		timeout:      timeout,
		logger:       logger,
	}
}

var _ PriceLookup = (*PriceService)(nil)

// FetchCurrent returns the latest price for a ticker, consulting the quote
// cache before the provider. The second return is false when no price could
// be obtained; that is the normal degraded path, not an error.
func (s *PriceService) FetchCurrent(ctx context.Context, ticker string) (decimal.Decimal, bool) {
	ticker = strings.ToUpper(ticker)

	if price, _, err := s.quotes.GetQuote(ctx, ticker); err == nil {
		return price, true
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	price, err := s.market.Quote(ctx, ticker)
	if err != nil {
		s.logger.Warn("quote fetch failed", "ticker", ticker, "error", err)
		return decimal.Zero, false
	}

	now := time.Now().UTC()
	if err := s.quotes.SetQuote(ctx, ticker, price, now); err != nil {
		s.logger.Warn("quote cache write failed", "ticker", ticker, "error", err)
	}
	return price, true
}

// FetchCurrentBatch returns latest prices for a set of tickers. Cached quotes
// are used where fresh; the remainder is fetched from the provider in one
// call. Tickers with no obtainable price are absent from the result.
func (s *PriceService) FetchCurrentBatch(ctx context.Context, tickers []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(tickers))
	if len(tickers) == 0 {
		return out
	}

	seen := make(map[string]struct{}, len(tickers))
	uniq := make([]string, 0, len(tickers))
	for _, t := range tickers {
		t = strings.ToUpper(t)
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}

	cached, err := s.quotes.GetQuotes(ctx, uniq)
	if err != nil {
		s.logger.Warn("quote cache read failed", "error", err)
		cached = nil
	}

	var missing []string
	for _, t := range uniq {
		if price, ok := cached[t]; ok {
			out[t] = price
		} else {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	fetched, err := s.market.Quotes(ctx, missing)
	if err != nil {
		s.logger.Warn("batch quote fetch failed", "tickers", missing, "error", err)
		return out
	}

	now := time.Now().UTC()
	for t, price := range fetched {
		out[t] = price
		if err := s.quotes.SetQuote(ctx, t, price, now); err != nil {
			s.logger.Warn("quote cache write failed", "ticker", t, "error", err)
		}
	}
	return out
}

// FetchHistoricalSeries returns daily closes for [from, to]. Provider
// failures degrade to an empty series.
func (s *PriceService) FetchHistoricalSeries(ctx context.Context, ticker string, from, to time.Time) []domain.DailyClose {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	series, err := s.market.DailySeries(ctx, strings.ToUpper(ticker), from, to)
	if err != nil {
		s.logger.Warn("historical series fetch failed", "ticker", ticker, "error", err)
		return nil
	}
	return series
}

// Backfill fills the gap days of an idea's price series from the provider's
// daily closes and returns how many observations it created. The range
// defaults to [idea start date, today]. Days that already have an
// observation are skipped, as are pair days where either leg's close is
// missing; rerunning over the same range creates nothing. Backfilled
// observations are stamped end-of-day UTC with source PROVIDER.
func (s *PriceService) Backfill(ctx context.Context, ideaID string, start, end *time.Time) (int, error) {
	idea, err := s.ideas.GetByID(ctx, ideaID)
	if err != nil {
		return 0, fmt.Errorf("price_service: get idea %s: %w", ideaID, err)
	}
	primary, secondary, err := s.tickersFor(ctx, idea)
	if err != nil {
		return 0, err
	}

	from := idea.StartDate.UTC()
	if start != nil {
		from = start.UTC()
	}
	to := time.Now().UTC()
	if end != nil {
		to = end.UTC()
	}
	if to.Before(from) {
		return 0, fmt.Errorf("price_service: backfill range ends before it starts: %w", domain.ErrValidation)
	}

	existing, err := s.observations.ExistingDays(ctx, idea.ID, from, domain.EndOfDay(to))
	if err != nil {
		return 0, fmt.Errorf("price_service: list existing days for %s: %w", idea.ID, err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, day := range existing {
		have[day] = struct{}{}
	}

	primarySeries := s.FetchHistoricalSeries(ctx, primary, from, to)
	if len(primarySeries) == 0 {
		s.logger.Warn("backfill found no provider data", "idea_id", idea.ID, "ticker", primary)
		return 0, nil
	}

	var secondaryByDay map[string]decimal.Decimal
	if idea.IsPair() {
		series := s.FetchHistoricalSeries(ctx, secondary, from, to)
		secondaryByDay = make(map[string]decimal.Decimal, len(series))
		for _, dc := range series {
			secondaryByDay[domain.DayKey(dc.Date)] = dc.Close
		}
	}

	created := 0
	skipped := 0
	for _, dc := range primarySeries {
		day := domain.DayKey(dc.Date)
		if _, ok := have[day]; ok {
			continue
		}

		obs := domain.PriceObservation{
			ID:           uuid.NewString(),
			IdeaID:       idea.ID,
			Timestamp:    domain.EndOfDay(dc.Date),
			PricePrimary: dc.Close,
			Source:       domain.PriceSourceProvider,
		}
		if idea.IsPair() {
			sec, ok := secondaryByDay[day]
			if !ok {
				// One leg without a close (holiday, listing gap) would
				// make the spread incomputable; skip the day entirely.
				skipped++
				continue
			}
			obs.PriceSecondary = &sec
		}

		if err := s.observations.Create(ctx, obs); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// A concurrent backfill won the day; the unique
				// constraint is the arbiter.
				continue
			}
			return created, fmt.Errorf("price_service: create observation for %s on %s: %w", idea.ID, day, err)
		}
		created++
	}

	s.logger.Info("backfill complete",
		"idea_id", idea.ID,
		"from", domain.DayKey(from),
		"to", domain.DayKey(to),
		"created", created,
		"skipped_partial", skipped,
	)
	return created, nil
}

// FetchLatestAndSnapshot fetches the idea's current prices and records them
// as today's snapshot, updating in place when today already has one so the
// day converges on the freshest price; a fresh snapshot is stamped at the
// fetch time, not end of day, which stays the backfill path's convention.
// The second return is false when the provider had no price for a required
// leg.
func (s *PriceService) FetchLatestAndSnapshot(ctx context.Context, ideaID string) (domain.PriceObservation, bool, error) {
	idea, err := s.ideas.GetByID(ctx, ideaID)
	if err != nil {
		return domain.PriceObservation{}, false, fmt.Errorf("price_service: get idea %s: %w", ideaID, err)
	}
	primary, secondary, err := s.tickersFor(ctx, idea)
	if err != nil {
		return domain.PriceObservation{}, false, err
	}

	pricePrimary, ok := s.FetchCurrent(ctx, primary)
	if !ok {
		return domain.PriceObservation{}, false, nil
	}
	var priceSecondary *decimal.Decimal
	if idea.IsPair() {
		sec, ok := s.FetchCurrent(ctx, secondary)
		if !ok {
			return domain.PriceObservation{}, false, nil
		}
		priceSecondary = &sec
	}

	now := time.Now().UTC()
	existing, err := s.observations.GetOnDay(ctx, idea.ID, now)
	switch {
	case err == nil:
		existing.PricePrimary = pricePrimary
		existing.PriceSecondary = priceSecondary
		existing.Source = domain.PriceSourceProvider
		if err := s.observations.Update(ctx, existing); err != nil {
			return domain.PriceObservation{}, false, fmt.Errorf("price_service: update snapshot for %s: %w", idea.ID, err)
		}
		return existing, true, nil

	case errors.Is(err, domain.ErrNotFound):
		obs := domain.PriceObservation{
			ID:             uuid.NewString(),
			IdeaID:         idea.ID,
			Timestamp:      now,
			PricePrimary:   pricePrimary,
			PriceSecondary: priceSecondary,
			Source:         domain.PriceSourceProvider,
		}
		if err := s.observations.Create(ctx, obs); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// Lost the race with another snapshot; re-read and
				// update that row instead.
				return s.FetchLatestAndSnapshot(ctx, ideaID)
			}
			return domain.PriceObservation{}, false, fmt.Errorf("price_service: create snapshot for %s: %w", idea.ID, err)
		}
		return obs, true, nil

	default:
		return domain.PriceObservation{}, false, fmt.Errorf("price_service: get snapshot for %s: %w", idea.ID, err)
	}
}

// AddManual records a hand-entered price observation at an exact timestamp.
// Pair ideas require both legs. A duplicate (idea, timestamp) surfaces as
// ErrAlreadyExists so the client can adjust the timestamp.
func (s *PriceService) AddManual(ctx context.Context, ideaID string, ts time.Time, pricePrimary decimal.Decimal, priceSecondary *decimal.Decimal, note *string) (domain.PriceObservation, error) {
	idea, err := s.ideas.GetByID(ctx, ideaID)
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("price_service: get idea %s: %w", ideaID, err)
	}

	if !pricePrimary.IsPositive() {
		return domain.PriceObservation{}, fmt.Errorf("price_service: primary price %s: %w", pricePrimary, domain.ErrInvalidPrice)
	}
	if idea.IsPair() {
		if priceSecondary == nil {
			return domain.PriceObservation{}, fmt.Errorf("price_service: pair idea %s needs a secondary price: %w", idea.ID, domain.ErrMissingPrice)
		}
		if !priceSecondary.IsPositive() {
			return domain.PriceObservation{}, fmt.Errorf("price_service: secondary price %s: %w", priceSecondary, domain.ErrInvalidPrice)
		}
	} else if priceSecondary != nil {
		return domain.PriceObservation{}, fmt.Errorf("price_service: secondary price is only valid for pair ideas: %w", domain.ErrValidation)
	}

	obs := domain.PriceObservation{
		ID:             uuid.NewString(),
		IdeaID:         idea.ID,
		Timestamp:      ts.UTC(),
		PricePrimary:   pricePrimary,
		PriceSecondary: priceSecondary,
		Source:         domain.PriceSourceManual,
		Note:           note,
	}
	if err := s.observations.Create(ctx, obs); err != nil {
		return domain.PriceObservation{}, fmt.Errorf("price_service: create manual observation for %s: %w", idea.ID, err)
	}
	return obs, nil
}

// GetPriceOnDate returns the ticker's daily close on the exact given date.
// The provider is queried over a small surrounding window to survive its
// range quirks, but only an exact date match counts; weekends and holidays
// return unavailable rather than a neighboring close.
func (s *PriceService) GetPriceOnDate(ctx context.Context, ticker string, date time.Time) (decimal.Decimal, bool) {
	from := date.AddDate(0, 0, -5)
	to := date.AddDate(0, 0, 2)
	want := domain.DayKey(date)

	for _, dc := range s.FetchHistoricalSeries(ctx, ticker, from, to) {
		if domain.DayKey(dc.Date) == want {
			return dc.Close, true
		}
	}
	return decimal.Zero, false
}

// ListObservations returns an idea's stored observations ascending by time.
func (s *PriceService) ListObservations(ctx context.Context, ideaID string, opts domain.ListOpts) ([]domain.PriceObservation, error) {
	if _, err := s.ideas.GetByID(ctx, ideaID); err != nil {
		return nil, fmt.Errorf("price_service: get idea %s: %w", ideaID, err)
	}
	obs, err := s.observations.ListByIdea(ctx, ideaID, opts)
	if err != nil {
		return nil, fmt.Errorf("price_service: list observations for %s: %w", ideaID, err)
	}
	return obs, nil
}

// DeleteObservation removes a single stored observation.
func (s *PriceService) DeleteObservation(ctx context.Context, id string) error {
	if err := s.observations.Delete(ctx, id); err != nil {
		return fmt.Errorf("price_service: delete observation %s: %w", id, err)
	}
	return nil
}

// tickersFor resolves the idea's ticker legs from its folder. Pair ideas
// must live in PAIR folders, which carry both legs.
func (s *PriceService) tickersFor(ctx context.Context, idea domain.Idea) (primary, secondary string, err error) {
	folder, err := s.folders.GetByID(ctx, idea.FolderID)
	if err != nil {
		return "", "", fmt.Errorf("price_service: get folder %s: %w", idea.FolderID, err)
	}
	if folder.Type == domain.FolderTypeTheme {
		return "", "", fmt.Errorf("price_service: theme folders carry no price legs: %w", domain.ErrValidation)
	}
	if idea.IsPair() {
		if folder.TickerSecondary == nil || *folder.TickerSecondary == "" {
			return "", "", fmt.Errorf("price_service: pair idea %s in folder without a secondary ticker: %w", idea.ID, domain.ErrValidation)
		}
		return folder.TickerPrimary, *folder.TickerSecondary, nil
	}
	return folder.TickerPrimary, "", nil
}
