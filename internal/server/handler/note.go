package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/ideadesk/ideadesk/internal/domain"
	"github.com/ideadesk/ideadesk/internal/service"
)

// NoteHandler serves note endpoints.
type NoteHandler struct {
	notes  *service.NoteService
	logger *slog.Logger
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(notes *service.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

type createNoteRequest struct {
	IdeaID    *string `json:"idea_id"`
	FolderID  *string `json:"folder_id"`
	NoteType  *string `json:"note_type"`
	ContentMD string  `json:"content_md"`
}

// Create records a note on an idea or a folder.
// POST /api/notes
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	n := domain.Note{
		IdeaID:    req.IdeaID,
		FolderID:  req.FolderID,
		ContentMD: req.ContentMD,
	}
	if req.NoteType != nil {
		n.NoteType = domain.NoteType(strings.ToUpper(*req.NoteType))
	}

	created, err := h.notes.Create(r.Context(), n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type updateNoteRequest struct {
	ContentMD string  `json:"content_md"`
	NoteType  *string `json:"note_type"`
}

// Update rewrites a note's content and type.
// PUT /api/notes/{id}
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var nt *domain.NoteType
	if req.NoteType != nil {
		t := domain.NoteType(strings.ToUpper(*req.NoteType))
		nt = &t
	}

	n, err := h.notes.Update(r.Context(), pathParam(r, "id"), req.ContentMD, nt)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// Delete removes a note.
// DELETE /api/notes/{id}
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.notes.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByIdea returns an idea's notes.
// GET /api/ideas/{id}/notes
func (h *NoteHandler) ListByIdea(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.ListByIdea(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// ListByFolder returns a folder's notes.
// GET /api/folders/{id}/notes
func (h *NoteHandler) ListByFolder(w http.ResponseWriter, r *http.Request) {
	notes, err := h.notes.ListByFolder(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}
