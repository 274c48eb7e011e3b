package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/service"
)

// GuidanceHandler serves guidance tracking endpoints.
type GuidanceHandler struct {
	guidance *service.GuidanceService
	logger   *slog.Logger
}

// NewGuidanceHandler creates a GuidanceHandler.
func NewGuidanceHandler(guidance *service.GuidanceService, logger *slog.Logger) *GuidanceHandler {
	return &GuidanceHandler{guidance: guidance, logger: logger}
}

type guidanceRequest struct {
	Ticker         string           `json:"ticker"`
	Period         string           `json:"period"`
	Metric         string           `json:"metric"`
	GuidancePeriod string           `json:"guidance_period"`
	GuidanceLow    *decimal.Decimal `json:"guidance_low"`
	GuidanceHigh   *decimal.Decimal `json:"guidance_high"`
	GuidancePoint  *decimal.Decimal `json:"guidance_point"`
	ActualResult   *decimal.Decimal `json:"actual_result"`
	Notes          *string          `json:"notes"`
}

func (req guidanceRequest) toDomain(folderID string) domain.Guidance {
	return domain.Guidance{
		FolderID:       folderID,
		Ticker:         req.Ticker,
		Period:         req.Period,
		Metric:         domain.MetricType(strings.ToUpper(req.Metric)),
		GuidancePeriod: req.GuidancePeriod,
		GuidanceLow:    req.GuidanceLow,
		GuidanceHigh:   req.GuidanceHigh,
		GuidancePoint:  req.GuidancePoint,
		ActualResult:   req.ActualResult,
		Notes:          req.Notes,
	}
}

// Create records a new guidance entry for a folder.
// POST /api/folders/{id}/guidance
func (h *GuidanceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req guidanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.guidance.Create(r.Context(), req.toDomain(pathParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// List returns a folder's guidance records, optionally filtered by ticker
// and metric.
// GET /api/folders/{id}/guidance
func (h *GuidanceHandler) List(w http.ResponseWriter, r *http.Request) {
	var metric *domain.MetricType
	if v := r.URL.Query().Get("metric"); v != "" {
		m := domain.MetricType(strings.ToUpper(v))
		if !m.Valid() {
			writeError(w, http.StatusBadRequest, "invalid metric filter")
			return
		}
		metric = &m
	}

	records, err := h.guidance.List(r.Context(), pathParam(r, "id"), optQuery(r, "ticker"), metric)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"guidance": records})
}

// Update rewrites one guidance record, typically with the actual result.
// PUT /api/guidance/{id}
func (h *GuidanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req guidanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	g := req.toDomain("")
	g.ID = pathParam(r, "id")

	saved, err := h.guidance.Update(r.Context(), g)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete removes one guidance record.
// DELETE /api/guidance/{id}
func (h *GuidanceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.guidance.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
