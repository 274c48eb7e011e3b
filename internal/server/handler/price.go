package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ideadesk/ideadesk/internal/service"
)

// PriceHandler serves quote, observation, backfill, and snapshot endpoints.
type PriceHandler struct {
	prices *service.PriceService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler.
func NewPriceHandler(prices *service.PriceService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{prices: prices, logger: logger}
}

// Quotes returns the latest prices for a comma-separated ticker list.
// Tickers with no obtainable price are absent from the result.
// GET /api/quotes?tickers=AAPL,MSFT
func (h *PriceHandler) Quotes(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("tickers")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "tickers parameter is required")
		return
	}

	var tickers []string
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tickers = append(tickers, t)
		}
	}

	quotes := h.prices.FetchCurrentBatch(r.Context(), tickers)
	writeJSON(w, http.StatusOK, map[string]any{
		"quotes":    quotes,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// ListObservations returns an idea's stored price series, ascending.
// GET /api/ideas/{id}/observations
func (h *PriceHandler) ListObservations(w http.ResponseWriter, r *http.Request) {
	obs, err := h.prices.ListObservations(r.Context(), pathParam(r, "id"), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"observations": obs})
}

type addObservationRequest struct {
	Timestamp      string           `json:"timestamp"`
	PricePrimary   decimal.Decimal  `json:"price_primary"`
	PriceSecondary *decimal.Decimal `json:"price_secondary"`
	Note           *string          `json:"note"`
}

// AddObservation records a manual price observation. A duplicate timestamp
// for the idea is a 409.
// POST /api/ideas/{id}/observations
func (h *PriceHandler) AddObservation(w http.ResponseWriter, r *http.Request) {
	var req addObservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ts, ok := parseTimeParam(req.Timestamp)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid timestamp")
		return
	}

	obs, err := h.prices.AddManual(r.Context(), pathParam(r, "id"), ts, req.PricePrimary, req.PriceSecondary, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, obs)
}

// DeleteObservation removes one stored observation.
// DELETE /api/observations/{id}
func (h *PriceHandler) DeleteObservation(w http.ResponseWriter, r *http.Request) {
	if err := h.prices.DeleteObservation(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type backfillRequest struct {
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
}

// Backfill fills the idea's missing daily observations from the provider and
// reports how many were created. Rerunning over a filled range creates zero.
// POST /api/ideas/{id}/backfill
func (h *PriceHandler) Backfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var start, end *time.Time
	if req.StartDate != nil {
		t, ok := parseTimeParam(*req.StartDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		start = &t
	}
	if req.EndDate != nil {
		t, ok := parseTimeParam(*req.EndDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid end_date")
			return
		}
		end = &t
	}

	created, err := h.prices.Backfill(r.Context(), pathParam(r, "id"), start, end)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"observations_created": created})
}

// Snapshot fetches the idea's current prices and records them as today's
// observation. 503 when a required leg has no obtainable price.
// POST /api/ideas/{id}/snapshot
func (h *PriceHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	obs, ok, err := h.prices.FetchLatestAndSnapshot(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "price unavailable")
		return
	}
	writeJSON(w, http.StatusOK, obs)
}
