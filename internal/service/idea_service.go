package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/pnl"
)

// IdeaWithPnL is a listed idea optionally enriched with its live P&L. PnL is
// nil when enrichment was not requested or the prices were unavailable.
type IdeaWithPnL struct {
	domain.Idea
	PnL *domain.PnLResponse `json:"pnl,omitempty"`
}

// IdeaService manages the idea lifecycle and computes P&L on demand.
type IdeaService struct {
	ideas        domain.IdeaStore
	folders      domain.FolderStore
	observations domain.ObservationStore
	notes        domain.NoteStore
	audit        domain.AuditStore
	prices       PriceLookup
	logger       *slog.Logger
}

// NewIdeaService creates an IdeaService with all required dependencies.
func NewIdeaService(
	ideas domain.IdeaStore,
	folders domain.FolderStore,
	observations domain.ObservationStore,
	notes domain.NoteStore,
	audit domain.AuditStore,
	prices PriceLookup,
	logger *slog.Logger,
) *IdeaService {
	return &IdeaService{
		ideas:        ideas,
		folders:      folders,
		observations: observations,
		notes:        notes,
		audit:        audit,
		prices:       prices,
		logger:       logger,
	}
}

// Create validates and persists a new idea inside its folder. Pair ideas
// must live in a PAIR folder; single-leg ideas must not.
func (s *IdeaService) Create(ctx context.Context, idea domain.Idea) (domain.Idea, error) {
	folder, err := s.folders.GetByID(ctx, idea.FolderID)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: get folder %s: %w", idea.FolderID, err)
	}

	if idea.IsPair() && folder.Type != domain.FolderTypePair {
		return domain.Idea{}, fmt.Errorf("idea_service: pair idea requires a pair folder: %w", domain.ErrValidation)
	}
	if !idea.IsPair() && folder.Type == domain.FolderTypePair {
		return domain.Idea{}, fmt.Errorf("idea_service: pair folder only holds pair ideas: %w", domain.ErrValidation)
	}
	if folder.Type == domain.FolderTypeTheme {
		return domain.Idea{}, fmt.Errorf("idea_service: theme folders hold no ideas: %w", domain.ErrValidation)
	}
	if err := idea.ValidateEntry(); err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: validate idea: %w", err)
	}

	idea.ID = uuid.NewString()
	if idea.Status == "" {
		idea.Status = domain.IdeaStatusDraft
	}
	if !idea.Status.Valid() || idea.Status.Closing() {
		return domain.Idea{}, fmt.Errorf("idea_service: initial status %q: %w", idea.Status, domain.ErrValidation)
	}
	if idea.StartDate.IsZero() {
		idea.StartDate = time.Now().UTC()
	}

	if err := s.ideas.Create(ctx, idea); err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: create idea: %w", err)
	}

	s.logAudit(ctx, "idea_created", map[string]any{
		"idea_id":    idea.ID,
		"folder_id":  idea.FolderID,
		"trade_type": string(idea.TradeType),
	})
	return idea, nil
}

// Get returns a single idea.
func (s *IdeaService) Get(ctx context.Context, id string) (domain.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: get idea %s: %w", id, err)
	}
	return idea, nil
}

// List returns ideas matching the filter, optionally enriched with live P&L.
// Enrichment batches one quote fetch across all tickers; ideas whose prices
// are unavailable are returned without P&L rather than failing the listing.
func (s *IdeaService) List(ctx context.Context, filter domain.IdeaFilter, withPnL bool) ([]IdeaWithPnL, error) {
	ideas, err := s.ideas.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("idea_service: list ideas: %w", err)
	}

	out := make([]IdeaWithPnL, len(ideas))
	for i, idea := range ideas {
		out[i] = IdeaWithPnL{Idea: idea}
	}
	if !withPnL || len(ideas) == 0 {
		return out, nil
	}

	folderByID := make(map[string]domain.Folder)
	var tickers []string
	for _, idea := range ideas {
		if idea.IsClosed() {
			continue
		}
		folder, ok := folderByID[idea.FolderID]
		if !ok {
			folder, err = s.folders.GetByID(ctx, idea.FolderID)
			if err != nil {
				s.logger.Warn("folder lookup failed during listing", "folder_id", idea.FolderID, "error", err)
				continue
			}
			folderByID[idea.FolderID] = folder
			tickers = append(tickers, folder.Tickers()...)
		}
	}

	now := time.Now().UTC()
	quotes := s.prices.FetchCurrentBatch(ctx, tickers)

	for i, idea := range ideas {
		resp, ok := s.responseFor(idea, folderByID[idea.FolderID], quotes, now)
		if !ok {
			continue
		}
		out[i].PnL = &resp
	}
	return out, nil
}

// responseFor builds an idea's P&L payload from already-fetched quotes.
// Closed ideas need no quotes: the stored exit prices drive the computation.
func (s *IdeaService) responseFor(idea domain.Idea, folder domain.Folder, quotes map[string]decimal.Decimal, now time.Time) (domain.PnLResponse, bool) {
	var current decimal.Decimal
	var currentSecondary *decimal.Decimal
	ts := &now

	if idea.IsClosed() && idea.ExitPricePrimary != nil {
		current = *idea.ExitPricePrimary
		currentSecondary = idea.ExitPriceSecondary
		ts = idea.ExitDate
	} else {
		var ok bool
		current, ok = quotes[folder.TickerPrimary]
		if !ok {
			return domain.PnLResponse{}, false
		}
		if idea.IsPair() {
			if folder.TickerSecondary == nil {
				return domain.PnLResponse{}, false
			}
			sec, ok := quotes[*folder.TickerSecondary]
			if !ok {
				return domain.PnLResponse{}, false
			}
			currentSecondary = &sec
		}
	}

	resp, err := pnl.Response(idea, current, currentSecondary, ts)
	if err != nil {
		s.logger.Warn("pnl computation failed", "idea_id", idea.ID, "error", err)
		return domain.PnLResponse{}, false
	}
	return resp, true
}

// Update applies a partial update. Trade type, orientation, entry prices,
// and start date are immutable and have no corresponding patch fields.
func (s *IdeaService) Update(ctx context.Context, id string, patch domain.IdeaPatch) (domain.Idea, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: get idea %s: %w", id, err)
	}
	if patch.PositionSize != nil && patch.PositionSize.IsNegative() {
		return domain.Idea{}, fmt.Errorf("idea_service: position size must not be negative: %w", domain.ErrValidation)
	}

	patch.Apply(&idea)
	if err := s.ideas.Update(ctx, idea); err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: update idea %s: %w", id, err)
	}
	return idea, nil
}

// UpdateStatus moves an idea between non-terminal lifecycle states. Closing
// goes through Close, which also records exit prices.
func (s *IdeaService) UpdateStatus(ctx context.Context, id string, status domain.IdeaStatus) (domain.Idea, error) {
	if !status.Valid() {
		return domain.Idea{}, fmt.Errorf("idea_service: status %q: %w", status, domain.ErrValidation)
	}
	if status.Closing() {
		return domain.Idea{}, fmt.Errorf("idea_service: closing requires exit prices, use close: %w", domain.ErrValidation)
	}

	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: get idea %s: %w", id, err)
	}
	if idea.IsClosed() {
		return domain.Idea{}, fmt.Errorf("idea_service: idea %s is closed: %w", id, domain.ErrValidation)
	}

	prev := idea.Status
	idea.Status = status
	if err := s.ideas.Update(ctx, idea); err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: update idea %s: %w", id, err)
	}

	s.logAudit(ctx, "idea_status_changed", map[string]any{
		"idea_id": idea.ID,
		"from":    string(prev),
		"to":      string(status),
	})
	return idea, nil
}

// Close moves an idea into a terminal state, freezing its exit prices so all
// future P&L is realized. An optional postmortem note is attached to the
// idea.
func (s *IdeaService) Close(ctx context.Context, id string, close domain.IdeaClose) (domain.Idea, error) {
	if !close.Status.Closing() {
		return domain.Idea{}, fmt.Errorf("idea_service: close status %q: %w", close.Status, domain.ErrValidation)
	}
	if !close.ExitPricePrimary.IsPositive() {
		return domain.Idea{}, fmt.Errorf("idea_service: exit price primary: %w", domain.ErrInvalidPrice)
	}

	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: get idea %s: %w", id, err)
	}
	if idea.IsClosed() {
		return domain.Idea{}, fmt.Errorf("idea_service: idea %s is already closed: %w", id, domain.ErrValidation)
	}
	if idea.IsPair() {
		if close.ExitPriceSecondary == nil {
			return domain.Idea{}, fmt.Errorf("idea_service: pair idea needs a secondary exit price: %w", domain.ErrMissingPrice)
		}
		if !close.ExitPriceSecondary.IsPositive() {
			return domain.Idea{}, fmt.Errorf("idea_service: exit price secondary: %w", domain.ErrInvalidPrice)
		}
	} else if close.ExitPriceSecondary != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: secondary exit price is only valid for pair ideas: %w", domain.ErrValidation)
	}

	exitDate := close.ExitDate
	if exitDate.IsZero() {
		exitDate = time.Now().UTC()
	}

	idea.Status = close.Status
	idea.ExitPricePrimary = &close.ExitPricePrimary
	idea.ExitPriceSecondary = close.ExitPriceSecondary
	idea.ExitDate = &exitDate
	if err := s.ideas.Update(ctx, idea); err != nil {
		return domain.Idea{}, fmt.Errorf("idea_service: close idea %s: %w", id, err)
	}

	if close.PostmortemNote != nil && *close.PostmortemNote != "" {
		note := domain.Note{
			ID:        uuid.NewString(),
			IdeaID:    &idea.ID,
			NoteType:  domain.NotePostmortem,
			ContentMD: *close.PostmortemNote,
		}
		if err := s.notes.Create(ctx, note); err != nil {
			s.logger.Warn("postmortem note creation failed", "idea_id", idea.ID, "error", err)
		}
	}

	s.logAudit(ctx, "idea_closed", map[string]any{
		"idea_id": idea.ID,
		"status":  string(close.Status),
	})
	return idea, nil
}

// Delete removes an idea and, via the store's cascade, its observations,
// notes, and attachment records.
func (s *IdeaService) Delete(ctx context.Context, id string) error {
	if err := s.ideas.Delete(ctx, id); err != nil {
		return fmt.Errorf("idea_service: delete idea %s: %w", id, err)
	}
	s.logAudit(ctx, "idea_deleted", map[string]any{"idea_id": id})
	return nil
}

// GetPnL computes the idea's current (or realized) P&L. Open ideas whose
// quotes cannot be obtained return ErrPriceUnavailable.
func (s *IdeaService) GetPnL(ctx context.Context, id string) (domain.PnLResponse, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return domain.PnLResponse{}, fmt.Errorf("idea_service: get idea %s: %w", id, err)
	}

	if idea.IsClosed() && idea.ExitPricePrimary != nil {
		resp, err := pnl.Response(idea, *idea.ExitPricePrimary, idea.ExitPriceSecondary, idea.ExitDate)
		if err != nil {
			return domain.PnLResponse{}, fmt.Errorf("idea_service: compute realized pnl for %s: %w", id, err)
		}
		return resp, nil
	}

	folder, err := s.folders.GetByID(ctx, idea.FolderID)
	if err != nil {
		return domain.PnLResponse{}, fmt.Errorf("idea_service: get folder %s: %w", idea.FolderID, err)
	}

	current, ok := s.prices.FetchCurrent(ctx, folder.TickerPrimary)
	if !ok {
		return domain.PnLResponse{}, fmt.Errorf("idea_service: quote for %s: %w", folder.TickerPrimary, domain.ErrPriceUnavailable)
	}
	var currentSecondary *decimal.Decimal
	if idea.IsPair() {
		if folder.TickerSecondary == nil {
			return domain.PnLResponse{}, fmt.Errorf("idea_service: pair idea %s in folder without a secondary ticker: %w", id, domain.ErrValidation)
		}
		sec, ok := s.prices.FetchCurrent(ctx, *folder.TickerSecondary)
		if !ok {
			return domain.PnLResponse{}, fmt.Errorf("idea_service: quote for %s: %w", *folder.TickerSecondary, domain.ErrPriceUnavailable)
		}
		currentSecondary = &sec
	}

	now := time.Now().UTC()
	resp, err := pnl.Response(idea, current, currentSecondary, &now)
	if err != nil {
		return domain.PnLResponse{}, fmt.Errorf("idea_service: compute pnl for %s: %w", id, err)
	}
	return resp, nil
}

// GetPnLHistory computes the idea's P&L curve from its stored observations.
func (s *IdeaService) GetPnLHistory(ctx context.Context, id string, opts domain.ListOpts) (domain.PnLHistory, error) {
	idea, err := s.ideas.GetByID(ctx, id)
	if err != nil {
		return domain.PnLHistory{}, fmt.Errorf("idea_service: get idea %s: %w", id, err)
	}

	observations, err := s.observations.ListByIdea(ctx, id, opts)
	if err != nil {
		return domain.PnLHistory{}, fmt.Errorf("idea_service: list observations for %s: %w", id, err)
	}

	history, err := pnl.History(idea, observations)
	if err != nil {
		return domain.PnLHistory{}, fmt.Errorf("idea_service: compute pnl history for %s: %w", id, err)
	}
	return history, nil
}

func (s *IdeaService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.Warn("audit log write failed", "event", event, "error", err)
	}
}
