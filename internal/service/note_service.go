package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// NoteService manages markdown notes attached to ideas and folders.
type NoteService struct {
	notes   domain.NoteStore
	ideas   domain.IdeaStore
	folders domain.FolderStore
	logger  *slog.Logger
}

// NewNoteService creates a NoteService with all required dependencies.
func NewNoteService(
	notes domain.NoteStore,
	ideas domain.IdeaStore,
	folders domain.FolderStore,
	logger *slog.Logger,
) *NoteService {
	return &NoteService{
		notes:   notes,
		ideas:   ideas,
		folders: folders,
		logger:  logger,
	}
}

// Create validates and persists a note. A note belongs to exactly one idea
// or one folder, never both, never neither.
func (s *NoteService) Create(ctx context.Context, n domain.Note) (domain.Note, error) {
	if err := s.checkParent(ctx, n.IdeaID, n.FolderID); err != nil {
		return domain.Note{}, err
	}
	if strings.TrimSpace(n.ContentMD) == "" {
		return domain.Note{}, fmt.Errorf("note_service: note content is required: %w", domain.ErrValidation)
	}
	if n.NoteType == "" {
		n.NoteType = domain.NoteGeneral
	}
	if !n.NoteType.Valid() {
		return domain.Note{}, fmt.Errorf("note_service: note type %q: %w", n.NoteType, domain.ErrValidation)
	}

	n.ID = uuid.NewString()
	if err := s.notes.Create(ctx, n); err != nil {
		return domain.Note{}, fmt.Errorf("note_service: create note: %w", err)
	}
	return n, nil
}

// Update rewrites a note's content and type. The parent cannot change.
func (s *NoteService) Update(ctx context.Context, id string, contentMD string, noteType *domain.NoteType) (domain.Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return domain.Note{}, fmt.Errorf("note_service: get note %s: %w", id, err)
	}
	if strings.TrimSpace(contentMD) == "" {
		return domain.Note{}, fmt.Errorf("note_service: note content is required: %w", domain.ErrValidation)
	}

	n.ContentMD = contentMD
	if noteType != nil {
		if !noteType.Valid() {
			return domain.Note{}, fmt.Errorf("note_service: note type %q: %w", *noteType, domain.ErrValidation)
		}
		n.NoteType = *noteType
	}
	if err := s.notes.Update(ctx, n); err != nil {
		return domain.Note{}, fmt.Errorf("note_service: update note %s: %w", id, err)
	}
	return n, nil
}

// Delete removes a note.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	if err := s.notes.Delete(ctx, id); err != nil {
		return fmt.Errorf("note_service: delete note %s: %w", id, err)
	}
	return nil
}

// Get returns a single note.
func (s *NoteService) Get(ctx context.Context, id string) (domain.Note, error) {
	n, err := s.notes.GetByID(ctx, id)
	if err != nil {
		return domain.Note{}, fmt.Errorf("note_service: get note %s: %w", id, err)
	}
	return n, nil
}

// ListByIdea returns an idea's notes, newest first.
func (s *NoteService) ListByIdea(ctx context.Context, ideaID string) ([]domain.Note, error) {
	if _, err := s.ideas.GetByID(ctx, ideaID); err != nil {
		return nil, fmt.Errorf("note_service: get idea %s: %w", ideaID, err)
	}
	notes, err := s.notes.ListByIdea(ctx, ideaID)
	if err != nil {
		return nil, fmt.Errorf("note_service: list notes for idea %s: %w", ideaID, err)
	}
	return notes, nil
}

// ListByFolder returns a folder's notes, newest first.
func (s *NoteService) ListByFolder(ctx context.Context, folderID string) ([]domain.Note, error) {
	if _, err := s.folders.GetByID(ctx, folderID); err != nil {
		return nil, fmt.Errorf("note_service: get folder %s: %w", folderID, err)
	}
	notes, err := s.notes.ListByFolder(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("note_service: list notes for folder %s: %w", folderID, err)
	}
	return notes, nil
}

// checkParent enforces the one-parent rule and verifies the parent exists.
func (s *NoteService) checkParent(ctx context.Context, ideaID, folderID *string) error {
	switch {
	case ideaID != nil && folderID != nil:
		return fmt.Errorf("note_service: note belongs to an idea or a folder, not both: %w", domain.ErrValidation)
	case ideaID == nil && folderID == nil:
		return fmt.Errorf("note_service: note needs an idea or a folder: %w", domain.ErrValidation)
	case ideaID != nil:
		if _, err := s.ideas.GetByID(ctx, *ideaID); err != nil {
			return fmt.Errorf("note_service: get idea %s: %w", *ideaID, err)
		}
	default:
		if _, err := s.folders.GetByID(ctx, *folderID); err != nil {
			return fmt.Errorf("note_service: get folder %s: %w", *folderID, err)
		}
	}
	return nil
}
