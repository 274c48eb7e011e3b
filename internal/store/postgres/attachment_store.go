package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// AttachmentStore implements domain.AttachmentStore using PostgreSQL. Only
// metadata lives here; the bytes are in object storage under StorageKey.
type AttachmentStore struct {
	pool *pgxpool.Pool
}

// NewAttachmentStore creates a new AttachmentStore backed by the given
// connection pool.
func NewAttachmentStore(pool *pgxpool.Pool) *AttachmentStore {
	return &AttachmentStore{pool: pool}
}

const attachmentSelectCols = `id, idea_id, folder_id, filename, mime_type, size_bytes, storage_key, uploaded_at`

func scanAttachmentRow(row pgx.Row) (domain.Attachment, error) {
	var a domain.Attachment
	err := row.Scan(
		&a.ID, &a.IdeaID, &a.FolderID, &a.Filename, &a.MimeType,
		&a.SizeBytes, &a.StorageKey, &a.UploadedAt,
	)
	if err != nil {
		return domain.Attachment{}, err
	}
	return a, nil
}

// Create inserts attachment metadata.
func (s *AttachmentStore) Create(ctx context.Context, a domain.Attachment) error {
	const query = `
		INSERT INTO attachments (id, idea_id, folder_id, filename, mime_type, size_bytes, storage_key, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := s.pool.Exec(ctx, query,
		a.ID, a.IdeaID, a.FolderID, a.Filename, a.MimeType, a.SizeBytes, a.StorageKey,
	)
	if err != nil {
		return fmt.Errorf("postgres: create attachment %s: %w", a.ID, mapErr(err))
	}
	return nil
}

// Delete removes attachment metadata by ID.
func (s *AttachmentStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM attachments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete attachment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single attachment by its ID.
func (s *AttachmentStore) GetByID(ctx context.Context, id string) (domain.Attachment, error) {
	query := fmt.Sprintf("SELECT %s FROM attachments WHERE id = $1", attachmentSelectCols)

	a, err := scanAttachmentRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("postgres: get attachment %s: %w", id, mapErr(err))
	}
	return a, nil
}

// ListByIdea returns an idea's attachments, newest first.
func (s *AttachmentStore) ListByIdea(ctx context.Context, ideaID string) ([]domain.Attachment, error) {
	return s.list(ctx, "idea_id", ideaID)
}

// ListByFolder returns a folder's attachments, newest first.
func (s *AttachmentStore) ListByFolder(ctx context.Context, folderID string) ([]domain.Attachment, error) {
	return s.list(ctx, "folder_id", folderID)
}

func (s *AttachmentStore) list(ctx context.Context, column, parentID string) ([]domain.Attachment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM attachments
		WHERE %s = $1
		ORDER BY uploaded_at DESC`, attachmentSelectCols, column)

	rows, err := s.pool.Query(ctx, query, parentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list attachments for %s: %w", parentID, err)
	}
	defer rows.Close()

	var attachments []domain.Attachment
	for rows.Next() {
		a, err := scanAttachmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan attachments for %s: %w", parentID, err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// Compile-time interface check.
var _ domain.AttachmentStore = (*AttachmentStore)(nil)
