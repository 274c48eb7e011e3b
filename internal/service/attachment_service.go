package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// allowedExtensions is the upload allow-list. Everything else is rejected
// before any bytes reach object storage.
var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".csv":  {},
	".xlsx": {},
	".xls":  {},
	".docx": {},
	".pptx": {},
	".txt":  {},
	".md":   {},
}

// AttachmentService stores uploaded files in object storage and their
// metadata in the database.
type AttachmentService struct {
	attachments domain.AttachmentStore
	ideas       domain.IdeaStore
	folders     domain.FolderStore
	writer      domain.BlobWriter
	reader      domain.BlobReader
	deleter     domain.BlobDeleter
	maxBytes    int64
	logger      *slog.Logger
}

// NewAttachmentService creates an AttachmentService with all required
// dependencies.
func NewAttachmentService(
	attachments domain.AttachmentStore,
	ideas domain.IdeaStore,
	folders domain.FolderStore,
	writer domain.BlobWriter,
	reader domain.BlobReader,
	deleter domain.BlobDeleter,
	maxBytes int64,
	logger *slog.Logger,
) *AttachmentService {
	return &AttachmentService{
		attachments: attachments,
		ideas:       ideas,
		folders:     folders,
		writer:      writer,
		reader:      reader,
		deleter:     deleter,
		maxBytes:    maxBytes,
		logger:      logger,
	}
}

// Upload stores the file bytes under a fresh storage key and records the
// attachment. The blob goes up first; if the metadata insert then fails the
// orphaned blob is removed.
func (s *AttachmentService) Upload(ctx context.Context, ideaID, folderID *string, filename, mimeType string, size int64, data io.Reader) (domain.Attachment, error) {
	if err := s.checkParent(ctx, ideaID, folderID); err != nil {
		return domain.Attachment{}, err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return domain.Attachment{}, fmt.Errorf("attachment_service: file type %q not allowed: %w", ext, domain.ErrValidation)
	}
	if size <= 0 {
		return domain.Attachment{}, fmt.Errorf("attachment_service: empty upload: %w", domain.ErrValidation)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return domain.Attachment{}, fmt.Errorf("attachment_service: upload of %d bytes exceeds limit of %d: %w", size, s.maxBytes, domain.ErrValidation)
	}

	a := domain.Attachment{
		ID:         uuid.NewString(),
		IdeaID:     ideaID,
		FolderID:   folderID,
		Filename:   filepath.Base(filename),
		MimeType:   mimeType,
		SizeBytes:  size,
		StorageKey: "attachments/" + uuid.NewString() + ext,
	}

	limited := io.LimitReader(data, size)
	if err := s.writer.Put(ctx, a.StorageKey, limited, mimeType); err != nil {
		return domain.Attachment{}, fmt.Errorf("attachment_service: upload %s: %w", a.Filename, err)
	}

	if err := s.attachments.Create(ctx, a); err != nil {
		if delErr := s.deleter.Delete(ctx, a.StorageKey); delErr != nil {
			s.logger.Warn("orphaned blob cleanup failed", "key", a.StorageKey, "error", delErr)
		}
		return domain.Attachment{}, fmt.Errorf("attachment_service: record attachment %s: %w", a.Filename, err)
	}
	return a, nil
}

// Download returns the attachment's metadata and a reader over its bytes.
// The caller owns closing the reader.
func (s *AttachmentService) Download(ctx context.Context, id string) (domain.Attachment, io.ReadCloser, error) {
	a, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return domain.Attachment{}, nil, fmt.Errorf("attachment_service: get attachment %s: %w", id, err)
	}
	body, err := s.reader.Get(ctx, a.StorageKey)
	if err != nil {
		return domain.Attachment{}, nil, fmt.Errorf("attachment_service: fetch blob %s: %w", a.StorageKey, err)
	}
	return a, body, nil
}

// Delete removes the metadata row and then the blob. A blob deletion failure
// is logged, not surfaced: the row is gone and the object is unreachable.
func (s *AttachmentService) Delete(ctx context.Context, id string) error {
	a, err := s.attachments.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("attachment_service: get attachment %s: %w", id, err)
	}
	if err := s.attachments.Delete(ctx, id); err != nil {
		return fmt.Errorf("attachment_service: delete attachment %s: %w", id, err)
	}
	if err := s.deleter.Delete(ctx, a.StorageKey); err != nil {
		s.logger.Warn("blob deletion failed", "key", a.StorageKey, "error", err)
	}
	return nil
}

// ListByIdea returns an idea's attachments.
func (s *AttachmentService) ListByIdea(ctx context.Context, ideaID string) ([]domain.Attachment, error) {
	if _, err := s.ideas.GetByID(ctx, ideaID); err != nil {
		return nil, fmt.Errorf("attachment_service: get idea %s: %w", ideaID, err)
	}
	list, err := s.attachments.ListByIdea(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("attachment_service: list attachments for idea %s: %w", ideaID, err)
	}
	return list, nil
}

// ListByFolder returns a folder's attachments.
func (s *AttachmentService) ListByFolder(ctx context.Context, folderID string) ([]domain.Attachment, error) {
	if _, err := s.folders.GetByID(ctx, folderID); err != nil {
		return nil, fmt.Errorf("attachment_service: get folder %s: %w", folderID, err)
	}
	list, err := s.attachments.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("attachment_service: list attachments for folder %s: %w", folderID, err)
	}
	return list, nil
}

func (s *AttachmentService) checkParent(ctx context.Context, ideaID, folderID *string) error {
	switch {
	case ideaID != nil && folderID != nil:
		return fmt.Errorf("attachment_service: attachment belongs to an idea or a folder, not both: %w", domain.ErrValidation)
	case ideaID == nil && folderID == nil:
		return fmt.Errorf("attachment_service: attachment needs an idea or a folder: %w", domain.ErrValidation)
	case ideaID != nil:
		if _, err := s.ideas.GetByID(ctx, *ideaID); err != nil {
			return fmt.Errorf("attachment_service: get idea %s: %w", *ideaID, err)
		}
	default:
		if _, err := s.folders.GetByID(ctx, *folderID); err != nil {
			return fmt.Errorf("attachment_service: get folder %s: %w", *folderID, err)
		}
	}
	return nil
}
