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
	"golang.org/x/sync/errgroup"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// themeFanOut caps how many constituent tickers are priced concurrently.
const themeFanOut = 4

// FolderWithCounts is a listed folder enriched with its idea counts.
type FolderWithCounts struct {
	domain.Folder
	IdeaCount   int64 `json:"idea_count"`
	ActiveCount int64 `json:"active_count"`
}

// ThemeConstituent is one ticker's contribution to a theme's performance.
// PnL is nil when no price could be obtained and no manual figure was set.
type ThemeConstituent struct {
	Ticker string           `json:"ticker"`
	PnL    *decimal.Decimal `json:"pnl,omitempty"`
	Manual bool             `json:"manual"`
}

// ThemePerformance is the aggregate performance of a THEME folder's
// constituents since the theme date.
type ThemePerformance struct {
	FolderID     string             `json:"folder_id"`
	ThemeName    string             `json:"theme_name"`
	Constituents []ThemeConstituent `json:"constituents"`
	AveragePnL   *decimal.Decimal   `json:"average_pnl,omitempty"`
}

// FolderService manages research folders and theme membership.
type FolderService struct {
	folders domain.FolderStore
	ideas   domain.IdeaStore
	audit   domain.AuditStore
	prices  PriceLookup
	logger  *slog.Logger
}

// NewFolderService creates a FolderService with all required dependencies.
func NewFolderService(
	folders domain.FolderStore,
	ideas domain.IdeaStore,
	audit domain.AuditStore,
	prices PriceLookup,
	logger *slog.Logger,
) *FolderService {
	return &FolderService{
		folders: folders,
		ideas:   ideas,
		audit:   audit,
		prices:  prices,
		logger:  logger,
	}
}

// Create validates and persists a new folder. Single and pair folders are
// unique by their ticker legs, themes by name; a duplicate surfaces as
// ErrAlreadyExists.
func (s *FolderService) Create(ctx context.Context, f domain.Folder) (domain.Folder, error) {
	if !f.Type.Valid() {
		return domain.Folder{}, fmt.Errorf("folder_service: folder type %q: %w", f.Type, domain.ErrValidation)
	}
	f.NormalizeTickers()

	switch f.Type {
	case domain.FolderTypeSingle:
		if f.TickerPrimary == "" {
			return domain.Folder{}, fmt.Errorf("folder_service: single folder needs a ticker: %w", domain.ErrValidation)
		}
		if f.TickerSecondary != nil && *f.TickerSecondary != "" {
			return domain.Folder{}, fmt.Errorf("folder_service: single folder takes no secondary ticker: %w", domain.ErrValidation)
		}
		f.TickerSecondary = nil

	case domain.FolderTypePair:
		if f.TickerPrimary == "" || f.TickerSecondary == nil || *f.TickerSecondary == "" {
			return domain.Folder{}, fmt.Errorf("folder_service: pair folder needs both tickers: %w", domain.ErrValidation)
		}
		if f.TickerPrimary == *f.TickerSecondary {
			return domain.Folder{}, fmt.Errorf("folder_service: pair legs must differ: %w", domain.ErrValidation)
		}

	case domain.FolderTypeTheme:
		if f.ThemeName == nil || strings.TrimSpace(*f.ThemeName) == "" {
			return domain.Folder{}, fmt.Errorf("folder_service: theme folder needs a name: %w", domain.ErrValidation)
		}
		if f.TickerPrimary != "" || f.TickerSecondary != nil {
			return domain.Folder{}, fmt.Errorf("folder_service: theme folders carry no ticker legs: %w", domain.ErrValidation)
		}
	}

	if err := s.checkDuplicate(ctx, f); err != nil {
		return domain.Folder{}, err
	}

	f.ID = uuid.NewString()
	if err := s.folders.Create(ctx, f); err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: create folder: %w", err)
	}

	s.logAudit(ctx, "folder_created", map[string]any{
		"folder_id": f.ID,
		"type":      string(f.Type),
		"name":      f.Name(),
	})
	return f, nil
}

// checkDuplicate looks for an existing folder with the same identity before
// insert so the caller gets a clean conflict instead of a constraint error.
// The store's partial unique indexes remain the last line of defense.
func (s *FolderService) checkDuplicate(ctx context.Context, f domain.Folder) error {
	var err error
	if f.Type == domain.FolderTypeTheme {
		_, err = s.folders.GetThemeByName(ctx, *f.ThemeName)
	} else {
		_, err = s.folders.GetByTickers(ctx, f.TickerPrimary, f.TickerSecondary)
	}
	switch {
	case err == nil:
		return fmt.Errorf("folder_service: folder %q: %w", f.Name(), domain.ErrAlreadyExists)
	case errors.Is(err, domain.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("folder_service: check duplicate folder: %w", err)
	}
}

// Get returns a folder with its idea counts.
func (s *FolderService) Get(ctx context.Context, id string) (FolderWithCounts, error) {
	f, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return FolderWithCounts{}, fmt.Errorf("folder_service: get folder %s: %w", id, err)
	}
	total, active, err := s.ideas.CountByFolder(ctx, id)
	if err != nil {
		return FolderWithCounts{}, fmt.Errorf("folder_service: count ideas for %s: %w", id, err)
	}
	return FolderWithCounts{Folder: f, IdeaCount: total, ActiveCount: active}, nil
}

// List returns folders matching the filter.
func (s *FolderService) List(ctx context.Context, filter domain.FolderFilter) ([]domain.Folder, error) {
	folders, err := s.folders.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("folder_service: list folders: %w", err)
	}
	return folders, nil
}

// ListThemes returns theme folders, optionally narrowed by a name search.
func (s *FolderService) ListThemes(ctx context.Context, search string, limit int) ([]domain.Folder, error) {
	themes, err := s.folders.ListThemes(ctx, search, limit)
	if err != nil {
		return nil, fmt.Errorf("folder_service: list themes: %w", err)
	}
	return themes, nil
}

// Update applies a partial update. Ticker legs and folder type are immutable.
func (s *FolderService) Update(ctx context.Context, id string, patch domain.FolderPatch) (domain.Folder, error) {
	f, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: get folder %s: %w", id, err)
	}

	patch.Apply(&f)
	f.NormalizeTickers()
	if err := s.folders.Update(ctx, f); err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: update folder %s: %w", id, err)
	}
	return f, nil
}

// Delete removes a folder and everything under it. Deleting a theme also
// detaches it from every member folder's theme list.
func (s *FolderService) Delete(ctx context.Context, id string) error {
	f, err := s.folders.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("folder_service: get folder %s: %w", id, err)
	}

	if f.Type == domain.FolderTypeTheme {
		if err := s.folders.RemoveThemeID(ctx, id); err != nil {
			return fmt.Errorf("folder_service: detach theme %s from members: %w", id, err)
		}
	}
	if err := s.folders.Delete(ctx, id); err != nil {
		return fmt.Errorf("folder_service: delete folder %s: %w", id, err)
	}

	s.logAudit(ctx, "folder_deleted", map[string]any{
		"folder_id": id,
		"type":      string(f.Type),
	})
	return nil
}

// AddToTheme attaches a single or pair folder to a theme.
func (s *FolderService) AddToTheme(ctx context.Context, folderID, themeID string) (domain.Folder, error) {
	theme, err := s.folders.GetByID(ctx, themeID)
	if err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: get theme %s: %w", themeID, err)
	}
	if theme.Type != domain.FolderTypeTheme {
		return domain.Folder{}, fmt.Errorf("folder_service: folder %s is not a theme: %w", themeID, domain.ErrValidation)
	}

	f, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: get folder %s: %w", folderID, err)
	}
	if f.Type == domain.FolderTypeTheme {
		return domain.Folder{}, fmt.Errorf("folder_service: themes cannot belong to themes: %w", domain.ErrValidation)
	}
	for _, id := range f.ThemeIDs {
		if id == themeID {
			return f, nil
		}
	}

	f.ThemeIDs = append(f.ThemeIDs, themeID)
	if err := s.folders.Update(ctx, f); err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: update folder %s: %w", folderID, err)
	}
	return f, nil
}

// RemoveFromTheme detaches a folder from a theme. Removing an absent
// membership is a no-op.
func (s *FolderService) RemoveFromTheme(ctx context.Context, folderID, themeID string) (domain.Folder, error) {
	f, err := s.folders.GetByID(ctx, folderID)
	if err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: get folder %s: %w", folderID, err)
	}

	kept := f.ThemeIDs[:0]
	for _, id := range f.ThemeIDs {
		if id != themeID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(f.ThemeIDs) {
		return f, nil
	}

	f.ThemeIDs = kept
	if err := s.folders.Update(ctx, f); err != nil {
		return domain.Folder{}, fmt.Errorf("folder_service: update folder %s: %w", folderID, err)
	}
	return f, nil
}

// ListThemeMembers returns the folders attached to a theme.
func (s *FolderService) ListThemeMembers(ctx context.Context, themeID string) ([]domain.Folder, error) {
	members, err := s.folders.ListByThemeID(ctx, themeID)
	if err != nil {
		return nil, fmt.Errorf("folder_service: list members of theme %s: %w", themeID, err)
	}
	return members, nil
}

// Performance computes each theme constituent's return since the theme date.
// A manually entered P&L wins over computation; constituents whose prices
// are unavailable are reported with a nil P&L rather than failing the theme.
// Constituents are priced concurrently with a bounded fan-out.
func (s *FolderService) Performance(ctx context.Context, themeID string) (ThemePerformance, error) {
	theme, err := s.folders.GetByID(ctx, themeID)
	if err != nil {
		return ThemePerformance{}, fmt.Errorf("folder_service: get theme %s: %w", themeID, err)
	}
	if theme.Type != domain.FolderTypeTheme {
		return ThemePerformance{}, fmt.Errorf("folder_service: folder %s is not a theme: %w", themeID, domain.ErrValidation)
	}

	perf := ThemePerformance{
		FolderID:     theme.ID,
		ThemeName:    theme.Name(),
		Constituents: make([]ThemeConstituent, len(theme.ThemeTickers)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(themeFanOut)
	for i, tt := range theme.ThemeTickers {
		g.Go(func() error {
			perf.Constituents[i] = s.constituentPnL(gctx, tt, theme.ThemeDate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ThemePerformance{}, fmt.Errorf("folder_service: theme performance for %s: %w", themeID, err)
	}

	var sum decimal.Decimal
	counted := 0
	for _, c := range perf.Constituents {
		if c.PnL != nil {
			sum = sum.Add(*c.PnL)
			counted++
		}
	}
	if counted > 0 {
		avg := sum.Div(decimal.NewFromInt(int64(counted)))
		perf.AveragePnL = &avg
	}
	return perf, nil
}

// constituentPnL resolves one constituent's return: the manual figure if
// present, otherwise (current - base)/base against the theme-date close.
func (s *FolderService) constituentPnL(ctx context.Context, tt domain.ThemeTicker, themeDate *time.Time) ThemeConstituent {
	c := ThemeConstituent{Ticker: tt.Ticker}

	if tt.PnL != nil {
		c.PnL = tt.PnL
		c.Manual = true
		return c
	}
	if themeDate == nil {
		return c
	}

	base, ok := s.prices.GetPriceOnDate(ctx, tt.Ticker, *themeDate)
	if !ok || !base.IsPositive() {
		return c
	}
	current, ok := s.prices.FetchCurrent(ctx, tt.Ticker)
	if !ok {
		return c
	}

	ret := current.Sub(base).Div(base)
	c.PnL = &ret
	return c
}

func (s *FolderService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit log write failed", "event", event, "error", err)
	}
}
