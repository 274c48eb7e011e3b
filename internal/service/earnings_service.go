package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// EarningsService tracks estimates vs. actuals per reporting period, from
// manual entry and from the provider's fundamentals feed.
type EarningsService struct {
	earnings domain.EarningsStore
	folders  domain.FolderStore
	market   domain.MarketData
	logger   *slog.Logger
}

// NewEarningsService creates an EarningsService with all required
// dependencies.
func NewEarningsService(
	earnings domain.EarningsStore,
	folders domain.FolderStore,
	market domain.MarketData,
	logger *slog.Logger,
) *EarningsService {
	return &EarningsService{
		earnings: earnings,
		folders:  folders,
		market:   market,
		logger:   logger,
	}
}

// Upsert creates or updates the earnings record for the given (folder,
// ticker, fiscal quarter). An existing record keeps its identity; incoming
// non-nil fields overwrite.
func (s *EarningsService) Upsert(ctx context.Context, e domain.Earnings) (domain.Earnings, error) {
	if err := s.validate(ctx, &e); err != nil {
		return domain.Earnings{}, err
	}

	existing, err := s.earnings.GetByKey(ctx, e.FolderID, e.Ticker, e.FiscalQuarter)
	switch {
	case err == nil:
		e.ID = existing.ID
		mergeEarnings(&e, existing)
		if err := s.earnings.Update(ctx, e); err != nil {
			return domain.Earnings{}, fmt.Errorf("earnings_service: update earnings %s: %w", e.ID, err)
		}
		return e, nil

	case errors.Is(err, domain.ErrNotFound):
		e.ID = uuid.NewString()
		if err := s.earnings.Create(ctx, e); err != nil {
			return domain.Earnings{}, fmt.Errorf("earnings_service: create earnings: %w", err)
		}
		return e, nil

	default:
		return domain.Earnings{}, fmt.Errorf("earnings_service: get earnings by key: %w", err)
	}
}

// Update rewrites an existing earnings record by ID.
func (s *EarningsService) Update(ctx context.Context, e domain.Earnings) (domain.Earnings, error) {
	current, err := s.earnings.GetByID(ctx, e.ID)
	if err != nil {
		return domain.Earnings{}, fmt.Errorf("earnings_service: get earnings %s: %w", e.ID, err)
	}
	// Identity fields are immutable.
	e.FolderID = current.FolderID
	e.Ticker = current.Ticker
	e.FiscalQuarter = current.FiscalQuarter
	if !e.PeriodType.Valid() {
		e.PeriodType = current.PeriodType
	}

	if err := s.earnings.Update(ctx, e); err != nil {
		return domain.Earnings{}, fmt.Errorf("earnings_service: update earnings %s: %w", e.ID, err)
	}
	return e, nil
}

// Delete removes an earnings record.
func (s *EarningsService) Delete(ctx context.Context, id string) error {
	if err := s.earnings.Delete(ctx, id); err != nil {
		return fmt.Errorf("earnings_service: delete earnings %s: %w", id, err)
	}
	return nil
}

// List returns a folder's earnings records, optionally narrowed to one
// ticker.
func (s *EarningsService) List(ctx context.Context, folderID string, ticker *string) ([]domain.Earnings, error) {
	if _, err := s.folders.GetByID(ctx, folderID); err != nil {
		return nil, fmt.Errorf("earnings_service: get folder %s: %w", folderID, err)
	}
	records, err := s.earnings.ListByFolder(ctx, folderID, ticker)
	if err != nil {
		return nil, fmt.Errorf("earnings_service: list earnings for %s: %w", folderID, err)
	}
	return records, nil
}

// RefreshFromProvider pulls the ticker's reported periods from the provider
// and upserts them into the folder. Provider data fills the consensus and
// actual columns; the user's own estimates and notes are never touched.
func (s *EarningsService) RefreshFromProvider(ctx context.Context, folderID, ticker string) (created, updated int, err error) {
	folder, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return 0, 0, fmt.Errorf("earnings_service: get folder %s: %w", folderID, err)
	}
	ticker = strings.ToUpper(ticker)
	if !folderHasTicker(folder, ticker) {
		return 0, 0, fmt.Errorf("earnings_service: ticker %s does not belong to folder %s: %w", ticker, folderID, domain.ErrValidation)
	}

	report, err := s.market.Fundamentals(ctx, ticker)
	if err != nil {
		// Provider outage degrades to a zero-change refresh.
		s.logger.Warn("fundamentals fetch failed", "ticker", ticker, "error", err)
		return 0, 0, nil
	}

	apply := func(periods []domain.EarningsPeriod, pt domain.PeriodType) error {
		for _, p := range periods {
			if p.FiscalQuarter == "" {
				continue
			}
			c, u, err := s.upsertPeriod(ctx, folderID, ticker, pt, p)
			if err != nil {
				return err
			}
			created += c
			updated += u
		}
		return nil
	}
	if err := apply(report.Quarterly, domain.PeriodQuarterly); err != nil {
		return created, updated, err
	}
	if err := apply(report.Annual, domain.PeriodAnnual); err != nil {
		return created, updated, err
	}

	s.logger.Info("earnings refreshed",
		"folder_id", folderID,
		"ticker", ticker,
		"created", created,
		"updated", updated,
	)
	return created, updated, nil
}

func (s *EarningsService) upsertPeriod(ctx context.Context, folderID, ticker string, pt domain.PeriodType, p domain.EarningsPeriod) (created, updated int, err error) {
	existing, err := s.earnings.GetByKey(ctx, folderID, ticker, p.FiscalQuarter)
	switch {
	case err == nil:
		applyProviderPeriod(&existing, p)
		if err := s.earnings.Update(ctx, existing); err != nil {
			return 0, 0, fmt.Errorf("earnings_service: update earnings %s: %w", existing.ID, err)
		}
		return 0, 1, nil

	case errors.Is(err, domain.ErrNotFound):
		e := domain.Earnings{
			ID:            uuid.NewString(),
			FolderID:      folderID,
			Ticker:        ticker,
			PeriodType:    pt,
			FiscalQuarter: p.FiscalQuarter,
		}
		applyProviderPeriod(&e, p)
		if err := s.earnings.Create(ctx, e); err != nil {
			return 0, 0, fmt.Errorf("earnings_service: create earnings for %s %s: %w", ticker, p.FiscalQuarter, err)
		}
		return 1, 0, nil

	default:
		return 0, 0, fmt.Errorf("earnings_service: get earnings by key: %w", err)
	}
}

// applyProviderPeriod copies the provider-owned columns onto the record,
// leaving the user's MyEstimate* fields and notes alone. Nil provider values
// never erase stored data.
func applyProviderPeriod(e *domain.Earnings, p domain.EarningsPeriod) {
	if p.PeriodEndDate != nil {
		e.PeriodEndDate = p.PeriodEndDate
	}
	if p.EPSEstimate != nil {
		e.EstimateEPS = p.EPSEstimate
	}
	if p.EPSActual != nil {
		e.ActualEPS = p.EPSActual
	}
	if p.Revenue != nil {
		e.ActualRev = p.Revenue
	}
	if p.EBITDA != nil {
		e.ActualEBITDA = p.EBITDA
	}
	if p.FCF != nil {
		e.ActualFCF = p.FCF
	}
}

// mergeEarnings backfills nil fields on the incoming record from the stored
// one so a partial upsert never erases data.
func mergeEarnings(e *domain.Earnings, existing domain.Earnings) {
	if e.PeriodEndDate == nil {
		e.PeriodEndDate = existing.PeriodEndDate
	}
	if e.Period == nil {
		e.Period = existing.Period
	}
	if e.EstimateEPS == nil {
		e.EstimateEPS = existing.EstimateEPS
	}
	if e.ActualEPS == nil {
		e.ActualEPS = existing.ActualEPS
	}
	if e.MyEstimateEPS == nil {
		e.MyEstimateEPS = existing.MyEstimateEPS
	}
	if e.EstimateRev == nil {
		e.EstimateRev = existing.EstimateRev
	}
	if e.ActualRev == nil {
		e.ActualRev = existing.ActualRev
	}
	if e.MyEstimateRev == nil {
		e.MyEstimateRev = existing.MyEstimateRev
	}
	if e.EstimateEBITDA == nil {
		e.EstimateEBITDA = existing.EstimateEBITDA
	}
	if e.ActualEBITDA == nil {
		e.ActualEBITDA = existing.ActualEBITDA
	}
	if e.MyEstimateEBITDA == nil {
		e.MyEstimateEBITDA = existing.MyEstimateEBITDA
	}
	if e.EstimateFCF == nil {
		e.EstimateFCF = existing.EstimateFCF
	}
	if e.ActualFCF == nil {
		e.ActualFCF = existing.ActualFCF
	}
	if e.MyEstimateFCF == nil {
		e.MyEstimateFCF = existing.MyEstimateFCF
	}
	if e.Notes == nil {
		e.Notes = existing.Notes
	}
}

func (s *EarningsService) validate(ctx context.Context, e *domain.Earnings) error {
	if _, err := s.folders.GetByID(ctx, e.FolderID); err != nil {
		return fmt.Errorf("earnings_service: get folder %s: %w", e.FolderID, err)
	}
	e.Ticker = strings.ToUpper(e.Ticker)
	if e.Ticker == "" {
		return fmt.Errorf("earnings_service: ticker is required: %w", domain.ErrValidation)
	}
	if e.FiscalQuarter == "" {
		return fmt.Errorf("earnings_service: fiscal quarter is required: %w", domain.ErrValidation)
	}
	if !e.PeriodType.Valid() {
		return fmt.Errorf("earnings_service: period type %q: %w", e.PeriodType, domain.ErrValidation)
	}
	return nil
}

// folderHasTicker reports whether the ticker is one of the folder's legs or
// theme constituents.
func folderHasTicker(f domain.Folder, ticker string) bool {
	for _, t := range f.Tickers() {
		if strings.EqualFold(t, ticker) {
			return true
		}
	}
	return false
}
