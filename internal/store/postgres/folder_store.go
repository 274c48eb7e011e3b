package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// FolderStore implements domain.FolderStore using PostgreSQL.
type FolderStore struct {
	pool *pgxpool.Pool
}

// NewFolderStore creates a new FolderStore backed by the given connection pool.
func NewFolderStore(pool *pgxpool.Pool) *FolderStore {
	return &FolderStore{pool: pool}
}

const folderSelectCols = `id, folder_type, ticker_primary, ticker_secondary,
	theme_name, theme_date, theme_thesis, theme_tickers, theme_ids,
	description, tags, created_at, updated_at`

func scanFolderRow(row pgx.Row) (domain.Folder, error) {
	var f domain.Folder
	var folderType string

	err := row.Scan(
		&f.ID, &folderType, &f.TickerPrimary, &f.TickerSecondary,
		&f.ThemeName, &f.ThemeDate, &f.ThemeThesis, &f.ThemeTickers, &f.ThemeIDs,
		&f.Description, &f.Tags, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return domain.Folder{}, err
	}
	f.Type = domain.FolderType(folderType)
	return f, nil
}

func scanFolderRows(rows pgx.Rows) ([]domain.Folder, error) {
	var folders []domain.Folder
	for rows.Next() {
		f, err := scanFolderRow(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, rows.Err()
}

// Create inserts a new folder. Duplicate ticker combinations and theme names
// surface as domain.ErrAlreadyExists via the partial unique indexes.
func (s *FolderStore) Create(ctx context.Context, f domain.Folder) error {
	const query = `
		INSERT INTO folders (
			id, folder_type, ticker_primary, ticker_secondary,
			theme_name, theme_date, theme_thesis, theme_tickers, theme_ids,
			description, tags, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		f.ID, string(f.Type), f.TickerPrimary, f.TickerSecondary,
		f.ThemeName, f.ThemeDate, f.ThemeThesis, jsonThemeTickers(f.ThemeTickers), jsonStrings(f.ThemeIDs),
		f.Description, jsonStrings(f.Tags),
	)
	if err != nil {
		return fmt.Errorf("postgres: create folder %s: %w", f.ID, mapErr(err))
	}
	return nil
}

// Update replaces the mutable fields of a folder. Type and ticker legs are
// never written after creation.
func (s *FolderStore) Update(ctx context.Context, f domain.Folder) error {
	const query = `
		UPDATE folders SET
			theme_name    = $2,
			theme_date    = $3,
			theme_thesis  = $4,
			theme_tickers = $5,
			theme_ids     = $6,
			description   = $7,
			tags          = $8,
			updated_at    = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		f.ID, f.ThemeName, f.ThemeDate, f.ThemeThesis,
		jsonThemeTickers(f.ThemeTickers), jsonStrings(f.ThemeIDs),
		f.Description, jsonStrings(f.Tags),
	)
	if err != nil {
		return fmt.Errorf("postgres: update folder %s: %w", f.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a folder; ideas, earnings, guidance, notes, and attachments
// cascade at the schema level.
func (s *FolderStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM folders WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete folder %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single folder by its ID.
func (s *FolderStore) GetByID(ctx context.Context, id string) (domain.Folder, error) {
	query := fmt.Sprintf("SELECT %s FROM folders WHERE id = $1", folderSelectCols)

	f, err := scanFolderRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Folder{}, fmt.Errorf("postgres: get folder %s: %w", id, mapErr(err))
	}
	return f, nil
}

// List returns folders matching the filter, newest first. Search matches
// ticker and theme-name substrings case-insensitively; every requested tag
// must be present.
func (s *FolderStore) List(ctx context.Context, filter domain.FolderFilter) ([]domain.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM folders
		WHERE ($1 = '' OR
		       ticker_primary ILIKE '%%' || $1 || '%%' OR
		       COALESCE(ticker_secondary, '') ILIKE '%%' || $1 || '%%' OR
		       COALESCE(theme_name, '') ILIKE '%%' || $1 || '%%')
		  AND (cardinality($2::text[]) = 0 OR tags @> to_jsonb($2::text[]))
		ORDER BY created_at DESC`, folderSelectCols)

	tags := filter.Tags
	if tags == nil {
		tags = []string{}
	}

	rows, err := s.pool.Query(ctx, query, filter.Search, tags)
	if err != nil {
		return nil, fmt.Errorf("postgres: list folders: %w", err)
	}
	defer rows.Close()

	folders, err := scanFolderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan folders: %w", err)
	}
	return folders, nil
}

// GetByTickers returns the non-theme folder holding the exact ticker
// combination, or domain.ErrNotFound.
func (s *FolderStore) GetByTickers(ctx context.Context, primary string, secondary *string) (domain.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM folders
		WHERE folder_type <> 'THEME'
		  AND ticker_primary = $1
		  AND COALESCE(ticker_secondary, '') = COALESCE($2, '')`, folderSelectCols)

	f, err := scanFolderRow(s.pool.QueryRow(ctx, query, primary, secondary))
	if err != nil {
		return domain.Folder{}, fmt.Errorf("postgres: folder by tickers %s: %w", primary, mapErr(err))
	}
	return f, nil
}

// GetThemeByName returns the theme folder with the given name,
// case-insensitively, or domain.ErrNotFound.
func (s *FolderStore) GetThemeByName(ctx context.Context, name string) (domain.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM folders
		WHERE folder_type = 'THEME' AND LOWER(theme_name) = LOWER($1)`, folderSelectCols)

	f, err := scanFolderRow(s.pool.QueryRow(ctx, query, name))
	if err != nil {
		return domain.Folder{}, fmt.Errorf("postgres: theme by name %q: %w", name, mapErr(err))
	}
	return f, nil
}

// ListThemes returns theme folders whose name contains the search string,
// ordered by name, capped at limit.
func (s *FolderStore) ListThemes(ctx context.Context, search string, limit int) ([]domain.Folder, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`
		SELECT %s FROM folders
		WHERE folder_type = 'THEME'
		  AND ($1 = '' OR theme_name ILIKE '%%' || $1 || '%%')
		ORDER BY theme_name ASC
		LIMIT $2`, folderSelectCols)

	rows, err := s.pool.Query(ctx, query, search, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list themes: %w", err)
	}
	defer rows.Close()

	folders, err := scanFolderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan themes: %w", err)
	}
	return folders, nil
}

// ListByThemeID returns the ticker folders that are members of the given
// theme.
func (s *FolderStore) ListByThemeID(ctx context.Context, themeID string) ([]domain.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM folders
		WHERE theme_ids @> to_jsonb(ARRAY[$1]::text[])
		ORDER BY ticker_primary ASC`, folderSelectCols)

	rows, err := s.pool.Query(ctx, query, themeID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list folders in theme %s: %w", themeID, err)
	}
	defer rows.Close()

	folders, err := scanFolderRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan folders in theme %s: %w", themeID, err)
	}
	return folders, nil
}

// RemoveThemeID strips the given theme ID from every folder's membership
// list; called when a theme folder is deleted.
func (s *FolderStore) RemoveThemeID(ctx context.Context, themeID string) error {
	const query = `
		UPDATE folders
		SET theme_ids = theme_ids - $1, updated_at = NOW()
		WHERE theme_ids @> to_jsonb(ARRAY[$1]::text[])`

	if _, err := s.pool.Exec(ctx, query, themeID); err != nil {
		return fmt.Errorf("postgres: remove theme %s from folders: %w", themeID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.FolderStore = (*FolderStore)(nil)
