package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// NoteStore implements domain.NoteStore using PostgreSQL.
type NoteStore struct {
	pool *pgxpool.Pool
}

// NewNoteStore creates a new NoteStore backed by the given connection pool.
func NewNoteStore(pool *pgxpool.Pool) *NoteStore {
	return &NoteStore{pool: pool}
}

const noteSelectCols = `id, idea_id, folder_id, note_type, content_md, created_at, updated_at`

func scanNoteRow(row pgx.Row) (domain.Note, error) {
	var n domain.Note
	var noteType string

	err := row.Scan(
		&n.ID, &n.IdeaID, &n.FolderID, &noteType, &n.ContentMD,
		&n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return domain.Note{}, err
	}
	n.NoteType = domain.NoteType(noteType)
	return n, nil
}

// Create inserts a new note.
func (s *NoteStore) Create(ctx context.Context, n domain.Note) error {
	const query = `
		INSERT INTO notes (id, idea_id, folder_id, note_type, content_md, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query, n.ID, n.IdeaID, n.FolderID, string(n.NoteType), n.ContentMD)
	if err != nil {
		return fmt.Errorf("postgres: create note %s: %w", n.ID, mapErr(err))
	}
	return nil
}

// Update replaces a note's type and content.
func (s *NoteStore) Update(ctx context.Context, n domain.Note) error {
	const query = `
		UPDATE notes SET note_type = $2, content_md = $3, updated_at = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, n.ID, string(n.NoteType), n.ContentMD)
	if err != nil {
		return fmt.Errorf("postgres: update note %s: %w", n.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a note by ID.
func (s *NoteStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM notes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete note %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single note by its ID.
func (s *NoteStore) GetByID(ctx context.Context, id string) (domain.Note, error) {
	query := fmt.Sprintf("SELECT %s FROM notes WHERE id = $1", noteSelectCols)

	n, err := scanNoteRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Note{}, fmt.Errorf("postgres: get note %s: %w", id, mapErr(err))
	}
	return n, nil
}

// ListByIdea returns an idea's notes, newest first.
func (s *NoteStore) ListByIdea(ctx context.Context, ideaID string) ([]domain.Note, error) {
	return s.list(ctx, "idea_id", ideaID)
}

// ListByFolder returns a folder's notes, newest first.
func (s *NoteStore) ListByFolder(ctx context.Context, folderID string) ([]domain.Note, error) {
	return s.list(ctx, "folder_id", folderID)
}

func (s *NoteStore) list(ctx context.Context, column, parentID string) ([]domain.Note, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM notes
		WHERE %s = $1
		ORDER BY created_at DESC`, noteSelectCols, column)

	rows, err := s.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list notes for %s: %w", parentID, err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		n, err := scanNoteRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan notes for %s: %w", parentID, err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// Compile-time interface check.
var _ domain.NoteStore = (*NoteStore)(nil)
