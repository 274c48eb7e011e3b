package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/service"
)

// FolderHandler serves folder and theme endpoints.
type FolderHandler struct {
	folders *service.FolderService
	logger  *slog.Logger
}

// NewFolderHandler creates a FolderHandler.
func NewFolderHandler(folders *service.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{folders: folders, logger: logger}
}

type createFolderRequest struct {
	Type            string               `json:"type"`
	TickerPrimary   string               `json:"ticker_primary"`
	TickerSecondary *string              `json:"ticker_secondary"`
	ThemeName       *string              `json:"theme_name"`
	ThemeDate       *string              `json:"theme_date"`
	ThemeThesis     *string              `json:"theme_thesis"`
	ThemeTickers    []domain.ThemeTicker `json:"theme_tickers"`
	Description     *string              `json:"description"`
	Tags            []string             `json:"tags"`
}

// Create registers a new folder.
// POST /api/folders
func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f := domain.Folder{
		Type:            domain.FolderType(strings.ToUpper(req.Type)),
		TickerPrimary:   req.TickerPrimary,
		TickerSecondary: req.TickerSecondary,
		ThemeName:       req.ThemeName,
		ThemeThesis:     req.ThemeThesis,
		ThemeTickers:    req.ThemeTickers,
		Description:     req.Description,
		Tags:            req.Tags,
	}
	if req.ThemeDate != nil {
		t, ok := parseTimeParam(*req.ThemeDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid theme_date")
			return
		}
		f.ThemeDate = &t
	}

	created, err := h.folders.Create(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Get returns one folder with its idea counts.
// GET /api/folders/{id}
func (h *FolderHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, err := h.folders.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// List returns folders, optionally filtered by search text and tags.
// GET /api/folders
func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := domain.FolderFilter{
		Search: r.URL.Query().Get("search"),
	}
	if tags := r.URL.Query().Get("tags"); tags != "" {
		filter.Tags = strings.Split(tags, ",")
	}

	folders, err := h.folders.List(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"folders": folders})
}

type updateFolderRequest struct {
	Description  *string               `json:"description"`
	Tags         *[]string             `json:"tags"`
	ThemeDate    *string               `json:"theme_date"`
	ThemeThesis  *string               `json:"theme_thesis"`
	ThemeTickers *[]domain.ThemeTicker `json:"theme_tickers"`
}

// Update applies a partial update to a folder.
// PATCH /api/folders/{id}
func (h *FolderHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := domain.FolderPatch{
		Description:  req.Description,
		Tags:         req.Tags,
		ThemeThesis:  req.ThemeThesis,
		ThemeTickers: req.ThemeTickers,
	}
	if req.ThemeDate != nil {
		t, ok := parseTimeParam(*req.ThemeDate)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid theme_date")
			return
		}
		patch.ThemeDate = &t
	}

	f, err := h.folders.Update(r.Context(), pathParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// Delete removes a folder and everything under it.
// DELETE /api/folders/{id}
func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.folders.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListThemes returns theme folders, optionally narrowed by a name search.
// GET /api/themes
func (h *FolderHandler) ListThemes(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	themes, err := h.folders.ListThemes(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"themes": themes})
}

// AddToTheme attaches a folder to a theme.
// PUT /api/folders/{id}/themes/{themeID}
func (h *FolderHandler) AddToTheme(w http.ResponseWriter, r *http.Request) {
	f, err := h.folders.AddToTheme(r.Context(), pathParam(r, "id"), pathParam(r, "themeID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// RemoveFromTheme detaches a folder from a theme.
// DELETE /api/folders/{id}/themes/{themeID}
func (h *FolderHandler) RemoveFromTheme(w http.ResponseWriter, r *http.Request) {
	f, err := h.folders.RemoveFromTheme(r.Context(), pathParam(r, "id"), pathParam(r, "themeID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// ListThemeMembers returns the folders attached to a theme.
// GET /api/themes/{id}/members
func (h *FolderHandler) ListThemeMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.folders.ListThemeMembers(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": members})
}

// ThemePerformance returns each constituent's return since the theme date.
// GET /api/themes/{id}/performance
func (h *FolderHandler) ThemePerformance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	perf, err := h.folders.Performance(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.logger.Debug("theme performance computed",
		"theme_id", perf.FolderID,
		"constituents", len(perf.Constituents),
		"elapsed", time.Since(start),
	)
	writeJSON(w, http.StatusOK, perf)
}
