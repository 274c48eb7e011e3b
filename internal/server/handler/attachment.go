package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ideadesk/ideadesk/internal/service"
)

// AttachmentHandler serves file upload and download endpoints.
type AttachmentHandler struct {
	attachments *service.AttachmentService
	maxBytes    int64
	logger      *slog.Logger
}

// NewAttachmentHandler creates an AttachmentHandler.
func NewAttachmentHandler(attachments *service.AttachmentService, maxBytes int64, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments, maxBytes: maxBytes, logger: logger}
}

// Upload accepts a multipart form with a "file" part and an "idea_id" or
// "folder_id" field.
// POST /api/attachments
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	var ideaID, folderID *string
	if v := r.FormValue("idea_id"); v != "" {
		ideaID = &v
	}
	if v := r.FormValue("folder_id"); v != "" {
		folderID = &v
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	a, err := h.attachments.Upload(r.Context(), ideaID, folderID, header.Filename, mimeType, header.Size, file)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

// Download streams the attachment's bytes with its original filename.
// GET /api/attachments/{id}/download
func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	a, body, err := h.attachments.Download(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", a.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	w.Header().Set("Content-Disposition", `attachment; filename="`+a.Filename+`"`)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("attachment stream interrupted", "attachment_id", a.ID, "error", err)
	}
}

// Delete removes an attachment and its stored bytes.
// DELETE /api/attachments/{id}
func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.attachments.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListByIdea returns an idea's attachments.
// GET /api/ideas/{id}/attachments
func (h *AttachmentHandler) ListByIdea(w http.ResponseWriter, r *http.Request) {
	list, err := h.attachments.ListByIdea(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": list})
}

// ListByFolder returns a folder's attachments.
// GET /api/folders/{id}/attachments
func (h *AttachmentHandler) ListByFolder(w http.ResponseWriter, r *http.Request) {
	list, err := h.attachments.ListByFolder(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attachments": list})
}
