package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/service"
)

// EarningsHandler serves earnings tracking endpoints.
type EarningsHandler struct {
	earnings *service.EarningsService
	logger   *slog.Logger
}

// NewEarningsHandler creates an EarningsHandler.
func NewEarningsHandler(earnings *service.EarningsService, logger *slog.Logger) *EarningsHandler {
	return &EarningsHandler{earnings: earnings, logger: logger}
}

type earningsRequest struct {
	Ticker        string  `json:"ticker"`
	PeriodType    string  `json:"period_type"`
	Period        *string `json:"period"`
	FiscalQuarter string  `json:"fiscal_quarter"`
	PeriodEndDate *string `json:"period_end_date"`

	EstimateEPS   *decimal.Decimal `json:"estimate_eps"`
	ActualEPS     *decimal.Decimal `json:"actual_eps"`
	MyEstimateEPS *decimal.Decimal `json:"my_estimate_eps"`

	EstimateRev   *decimal.Decimal `json:"estimate_rev"`
	ActualRev     *decimal.Decimal `json:"actual_rev"`
	MyEstimateRev *decimal.Decimal `json:"my_estimate_rev"`

	EstimateEBITDA   *decimal.Decimal `json:"estimate_ebitda"`
	ActualEBITDA     *decimal.Decimal `json:"actual_ebitda"`
	MyEstimateEBITDA *decimal.Decimal `json:"my_estimate_ebitda"`

	EstimateFCF   *decimal.Decimal `json:"estimate_fcf"`
	ActualFCF     *decimal.Decimal `json:"actual_fcf"`
	MyEstimateFCF *decimal.Decimal `json:"my_estimate_fcf"`

	Notes *string `json:"notes"`
}

func (req earningsRequest) toDomain(folderID string) (domain.Earnings, bool) {
	e := domain.Earnings{
		FolderID:      folderID,
		Ticker:        req.Ticker,
		PeriodType:    domain.PeriodType(strings.ToUpper(req.PeriodType)),
		Period:        req.Period,
		FiscalQuarter: req.FiscalQuarter,

		EstimateEPS:   req.EstimateEPS,
		ActualEPS:     req.ActualEPS,
		MyEstimateEPS: req.MyEstimateEPS,

		EstimateRev:   req.EstimateRev,
		ActualRev:     req.ActualRev,
		MyEstimateRev: req.MyEstimateRev,

		EstimateEBITDA:   req.EstimateEBITDA,
		ActualEBITDA:     req.ActualEBITDA,
		MyEstimateEBITDA: req.MyEstimateEBITDA,

		EstimateFCF:   req.EstimateFCF,
		ActualFCF:     req.ActualFCF,
		MyEstimateFCF: req.MyEstimateFCF,

		Notes: req.Notes,
	}
	if req.PeriodEndDate != nil {
		t, ok := parseTimeParam(*req.PeriodEndDate)
		if !ok {
			return domain.Earnings{}, false
		}
		e.PeriodEndDate = &t
	}
	return e, true
}

// Upsert creates or updates the earnings record for one fiscal quarter.
// POST /api/folders/{id}/earnings
func (h *EarningsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req earningsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, ok := req.toDomain(pathParam(r, "id"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid period_end_date")
		return
	}

	saved, err := h.earnings.Upsert(r.Context(), e)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// List returns a folder's earnings records, optionally for one ticker.
// GET /api/folders/{id}/earnings
func (h *EarningsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.earnings.List(r.Context(), pathParam(r, "id"), optQuery(r, "ticker"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"earnings": records})
}

// Update rewrites one earnings record.
// PUT /api/earnings/{id}
func (h *EarningsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req earningsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	e, ok := req.toDomain("")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid period_end_date")
		return
	}
	e.ID = pathParam(r, "id")

	saved, err := h.earnings.Update(r.Context(), e)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// Delete removes one earnings record.
// DELETE /api/earnings/{id}
func (h *EarningsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.earnings.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Refresh pulls reported periods from the provider into the folder. The
// user's own estimates are never overwritten.
// POST /api/folders/{id}/earnings/refresh?ticker=AAPL
func (h *EarningsHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker parameter is required")
		return
	}

	created, updated, err := h.earnings.RefreshFromProvider(r.Context(), pathParam(r, "id"), ticker)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"created": created, "updated": updated})
}
