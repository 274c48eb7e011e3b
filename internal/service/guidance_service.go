package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// GuidanceService tracks management guidance ranges against eventual
// actuals.
type GuidanceService struct {
	guidance domain.GuidanceStore
	folders  domain.FolderStore
	logger   *slog.Logger
}

// NewGuidanceService creates a GuidanceService with all required
// dependencies.
func NewGuidanceService(
	guidance domain.GuidanceStore,
	folders domain.FolderStore,
	logger *slog.Logger,
) *GuidanceService {
	return &GuidanceService{
		guidance: guidance,
		folders:  folders,
		logger:   logger,
	}
}

// Create validates and persists a guidance record. Guidance must be either a
// low/high range or a point estimate; a duplicate (folder, ticker, period,
// metric, guidance period) surfaces as ErrAlreadyExists.
func (s *GuidanceService) Create(ctx context.Context, g domain.Guidance) (domain.Guidance, error) {
	if err := s.validate(ctx, &g); err != nil {
		return domain.Guidance{}, err
	}

	g.ID = uuid.NewString()
	if err := s.guidance.Create(ctx, g); err != nil {
		return domain.Guidance{}, fmt.Errorf("guidance_service: create guidance: %w", err)
	}
	return g, nil
}

// Update rewrites an existing guidance record, typically to record the
// actual result once the period reports.
func (s *GuidanceService) Update(ctx context.Context, g domain.Guidance) (domain.Guidance, error) {
	current, err := s.guidance.GetByID(ctx, g.ID)
	if err != nil {
		return domain.Guidance{}, fmt.Errorf("guidance_service: get guidance %s: %w", g.ID, err)
	}
	// Identity fields are immutable.
	g.FolderID = current.FolderID
	g.Ticker = current.Ticker
	g.Period = current.Period
	g.Metric = current.Metric
	g.GuidancePeriod = current.GuidancePeriod

	if err := s.checkRange(g); err != nil {
		return domain.Guidance{}, err
	}
	if err := s.guidance.Update(ctx, g); err != nil {
		return domain.Guidance{}, fmt.Errorf("guidance_service: update guidance %s: %w", g.ID, err)
	}
	return g, nil
}

// Delete removes a guidance record.
func (s *GuidanceService) Delete(ctx context.Context, id string) error {
	if err := s.guidance.Delete(ctx, id); err != nil {
		return fmt.Errorf("guidance_service: delete guidance %s: %w", id, err)
	}
	return nil
}

// Get returns a single guidance record.
func (s *GuidanceService) Get(ctx context.Context, id string) (domain.Guidance, error) {
	g, err := s.guidance.GetByID(ctx, id)
	if err != nil {
		return domain.Guidance{}, fmt.Errorf("guidance_service: get guidance %s: %w", id, err)
	}
	return g, nil
}

// List returns a folder's guidance records, optionally narrowed by ticker
// and metric.
func (s *GuidanceService) List(ctx context.Context, folderID string, ticker *string, metric *domain.MetricType) ([]domain.Guidance, error) {
	if _, err := s.folders.GetByID(ctx, folderID); err != nil {
		return nil, fmt.Errorf("guidance_service: get folder %s: %w", folderID, err)
	}
	records, err := s.guidance.ListByFolder(ctx, folderID, ticker, metric)
	if err != nil {
		return nil, fmt.Errorf("guidance_service: list guidance for %s: %w", folderID, err)
	}
	return records, nil
}

func (s *GuidanceService) validate(ctx context.Context, g *domain.Guidance) error {
	if _, err := s.folders.GetByID(ctx, g.FolderID); err != nil {
		return fmt.Errorf("guidance_service: get folder %s: %w", g.FolderID, err)
	}
	g.Ticker = strings.ToUpper(g.Ticker)
	if g.Ticker == "" {
		return fmt.Errorf("guidance_service: ticker is required: %w", domain.ErrValidation)
	}
	if g.Period == "" || g.GuidancePeriod == "" {
		return fmt.Errorf("guidance_service: period and guidance period are required: %w", domain.ErrValidation)
	}
	if !g.Metric.Valid() {
		return fmt.Errorf("guidance_service: metric %q: %w", g.Metric, domain.ErrValidation)
	}
	return s.checkRange(*g)
}

func (s *GuidanceService) checkRange(g domain.Guidance) error {
	hasRange := g.GuidanceLow != nil && g.GuidanceHigh != nil
	if !hasRange && g.GuidancePoint == nil {
		return fmt.Errorf("guidance_service: guidance needs a low/high range or a point estimate: %w", domain.ErrValidation)
	}
	if hasRange && g.GuidanceLow.GreaterThan(*g.GuidanceHigh) {
		return fmt.Errorf("guidance_service: guidance low exceeds high: %w", domain.ErrValidation)
	}
	return nil
}
