package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/service"
)

// IdeaHandler serves the idea lifecycle and P&L endpoints.
type IdeaHandler struct {
	ideas  *service.IdeaService
	logger *slog.Logger
}

// NewIdeaHandler creates an IdeaHandler.
func NewIdeaHandler(ideas *service.IdeaService, logger *slog.Logger) *IdeaHandler {
	return &IdeaHandler{ideas: ideas, logger: logger}
}

type createIdeaRequest struct {
	FolderID            string           `json:"folder_id"`
	Title               string           `json:"title"`
	TradeType           string           `json:"trade_type"`
	PairOrientation     *string          `json:"pair_orientation"`
	Status              *string          `json:"status"`
	StartDate           *string          `json:"start_date"`
	EntryPricePrimary   decimal.Decimal  `json:"entry_price_primary"`
	EntryPriceSecondary *decimal.Decimal `json:"entry_price_secondary"`
	PositionSize        *decimal.Decimal `json:"position_size"`
	Horizon             *string          `json:"horizon"`
	ThesisMD            *string          `json:"thesis_md"`
	Catalysts           []string         `json:"catalysts"`
	Risks               []string         `json:"risks"`
	KillCriteriaMD      *string          `json:"kill_criteria_md"`

	TargetPricePrimary   *decimal.Decimal `json:"target_price_primary"`
	StopLevelPrimary     *decimal.Decimal `json:"stop_level_primary"`
	TargetPriceSecondary *decimal.Decimal `json:"target_price_secondary"`
	StopLevelSecondary   *decimal.Decimal `json:"stop_level_secondary"`
}

// Create registers a new idea.
// POST /api/ideas
func (h *IdeaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createIdeaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	idea := domain.Idea{
		FolderID:             req.FolderID,
		Title:                req.Title,
		TradeType:            domain.TradeType(strings.ToUpper(req.TradeType)),
		EntryPricePrimary:    req.EntryPricePrimary,
		EntryPriceSecondary:  req.EntryPriceSecondary,
		ThesisMD:             req.ThesisMD,
		Catalysts:            req.Catalysts,
		Risks:                req.Risks,
		KillCriteriaMD:       req.KillCriteriaMD,
		TargetPricePrimary:   req.TargetPricePrimary,
		StopLevelPrimary:     req.StopLevelPrimary,
		TargetPriceSecondary: req.TargetPriceSecondary,
		StopLevelSecondary:   req.StopLevelSecondary,
	}
	if req.PairOrientation != nil {
		o := domain.PairOrientation(strings.ToUpper(*req.PairOrientation))
		idea.PairOrientation = &o
	}
	if req.Status != nil {
		idea.Status = domain.IdeaStatus(strings.ToUpper(*req.Status))
	}
	if req.PositionSize != nil {
		idea.PositionSize = *req.PositionSize
	}
	if req.Horizon != nil {
		hz := domain.Horizon(strings.ToUpper(*req.Horizon))
		idea.Horizon = &hz
	}
	if req.StartDate != nil {
		t, ok := parseTimeParam(*req.StartDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		idea.StartDate = t
	}

	created, err := h.ideas.Create(r.Context(), idea)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get returns one idea.
// GET /api/ideas/{id}
func (h *IdeaHandler) Get(w http.ResponseWriter, r *http.Request) {
	idea, err := h.ideas.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// List returns ideas, filtered by folder and status, optionally enriched
// with live P&L when with_pnl=true.
// GET /api/ideas
func (h *IdeaHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.IdeaFilter{FolderID: optQuery(r, "folder_id")}
	if statuses := q.Get("status"); statuses != "" {
		for _, s := range strings.Split(statuses, ",") {
			st := domain.IdeaStatus(strings.ToUpper(strings.TrimSpace(s)))
			if !st.Valid() {
				writeError(w, http.StatusBadRequest, "invalid status filter")
				return
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}

	ideas, err := h.ideas.List(r.Context(), filter, q.Get("with_pnl") == "true")
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ideas": ideas})
}

type updateIdeaRequest struct {
	Title          *string          `json:"title"`
	PositionSize   *decimal.Decimal `json:"position_size"`
	Horizon        *string          `json:"horizon"`
	ThesisMD       *string          `json:"thesis_md"`
	Catalysts      *[]string        `json:"catalysts"`
	Risks          *[]string        `json:"risks"`
	KillCriteriaMD *string          `json:"kill_criteria_md"`

	TargetPricePrimary   *decimal.Decimal `json:"target_price_primary"`
	StopLevelPrimary     *decimal.Decimal `json:"stop_level_primary"`
	TargetPriceSecondary *decimal.Decimal `json:"target_price_secondary"`
	StopLevelSecondary   *decimal.Decimal `json:"stop_level_secondary"`
}

// Update applies a partial update. Entry terms are immutable and absent from
// the request shape.
// PATCH /api/ideas/{id}
func (h *IdeaHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateIdeaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := domain.IdeaPatch{
		Title:                req.Title,
		PositionSize:         req.PositionSize,
		ThesisMD:             req.ThesisMD,
		Catalysts:            req.Catalysts,
		Risks:                req.Risks,
		KillCriteriaMD:       req.KillCriteriaMD,
		TargetPricePrimary:   req.TargetPricePrimary,
		StopLevelPrimary:     req.StopLevelPrimary,
		TargetPriceSecondary: req.TargetPriceSecondary,
		StopLevelSecondary:   req.StopLevelSecondary,
	}
	if req.Horizon != nil {
		hz := domain.Horizon(strings.ToUpper(*req.Horizon))
		patch.Horizon = &hz
	}

	idea, err := h.ideas.Update(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus moves an idea between non-terminal states.
// POST /api/ideas/{id}/status
func (h *IdeaHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	idea, err := h.ideas.UpdateStatus(r.Context(), pathParam(r, "id"), domain.IdeaStatus(strings.ToUpper(req.Status)))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

type closeIdeaRequest struct {
	Status             string           `json:"status"`
	ExitPricePrimary   decimal.Decimal  `json:"exit_price_primary"`
	ExitPriceSecondary *decimal.Decimal `json:"exit_price_secondary"`
	ExitDate           *string          `json:"exit_date"`
	PostmortemNote     *string          `json:"postmortem_note"`
}

// Close moves an idea into a terminal state with its exit prices.
// POST /api/ideas/{id}/close
func (h *IdeaHandler) Close(w http.ResponseWriter, r *http.Request) {
	var req closeIdeaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cl := domain.IdeaClose{
		Status:             domain.IdeaStatus(strings.ToUpper(req.Status)),
		ExitPricePrimary:   req.ExitPricePrimary,
		ExitPriceSecondary: req.ExitPriceSecondary,
		PostmortemNote:     req.PostmortemNote,
	}
	if req.ExitDate != nil {
		t, ok := parseTimeParam(*req.ExitDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid exit_date")
			return
		}
		cl.ExitDate = t
	}

	idea, err := h.ideas.Close(r.Context(), pathParam(r, "id"), cl)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idea)
}

// Delete removes an idea.
// DELETE /api/ideas/{id}
func (h *IdeaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ideas.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPnL returns the idea's current or realized P&L.
// GET /api/ideas/{id}/pnl
func (h *IdeaHandler) GetPnL(w http.ResponseWriter, r *http.Request) {
	resp, err := h.ideas.GetPnL(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPnLHistory returns the idea's P&L curve from stored observations.
// GET /api/ideas/{id}/pnl/history
func (h *IdeaHandler) GetPnLHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.ideas.GetPnLHistory(r.Context(), pathParam(r, "id"), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}
