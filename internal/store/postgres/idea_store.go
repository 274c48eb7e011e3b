package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// IdeaStore implements domain.IdeaStore using PostgreSQL.
type IdeaStore struct {
	pool *pgxpool.Pool
}

// NewIdeaStore creates a new IdeaStore backed by the given connection pool.
func NewIdeaStore(pool *pgxpool.Pool) *IdeaStore {
	return &IdeaStore{pool: pool}
}

const ideaSelectCols = `id, folder_id, title, trade_type, pair_orientation, status,
	start_date, entry_price_primary, entry_price_secondary, position_size,
	horizon, thesis_md, catalysts, risks, kill_criteria_md,
	target_price_primary, stop_level_primary, target_price_secondary, stop_level_secondary,
	exit_price_primary, exit_price_secondary, exit_date, created_at, updated_at`

func scanIdeaRow(row pgx.Row) (domain.Idea, error) {
	var i domain.Idea
	var tradeType, status string
	var orientation, horizon *string

	err := row.Scan(
		&i.ID, &i.FolderID, &i.Title, &tradeType, &orientation, &status,
		&i.StartDate, &i.EntryPricePrimary, &i.EntryPriceSecondary, &i.PositionSize,
		&horizon, &i.ThesisMD, &i.Catalysts, &i.Risks, &i.KillCriteriaMD,
		&i.TargetPricePrimary, &i.StopLevelPrimary, &i.TargetPriceSecondary, &i.StopLevelSecondary,
		&i.ExitPricePrimary, &i.ExitPriceSecondary, &i.ExitDate, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return domain.Idea{}, err
	}
	i.TradeType = domain.TradeType(tradeType)
	i.Status = domain.IdeaStatus(status)
	if orientation != nil {
		o := domain.PairOrientation(*orientation)
		i.PairOrientation = &o
	}
	if horizon != nil {
		h := domain.Horizon(*horizon)
		i.Horizon = &h
	}
	return i, nil
}

func scanIdeaRows(rows pgx.Rows) ([]domain.Idea, error) {
	var ideas []domain.Idea
	for rows.Next() {
		i, err := scanIdeaRow(rows)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, i)
	}
	return ideas, rows.Err()
}

// optStr converts an enum pointer to a nullable string parameter.
func optStr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

// Create inserts a new idea.
func (s *IdeaStore) Create(ctx context.Context, i domain.Idea) error {
	const query = `
		INSERT INTO ideas (
			id, folder_id, title, trade_type, pair_orientation, status,
			start_date, entry_price_primary, entry_price_secondary, position_size,
			horizon, thesis_md, catalysts, risks, kill_criteria_md,
			target_price_primary, stop_level_primary, target_price_secondary, stop_level_secondary,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14, $15,
			$16, $17, $18, $19,
			NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		i.ID, i.FolderID, i.Title, string(i.TradeType), optStr(i.PairOrientation), string(i.Status),
		i.StartDate, i.EntryPricePrimary, i.EntryPriceSecondary, i.PositionSize,
		optStr(i.Horizon), i.ThesisMD, jsonStrings(i.Catalysts), jsonStrings(i.Risks), i.KillCriteriaMD,
		i.TargetPricePrimary, i.StopLevelPrimary, i.TargetPriceSecondary, i.StopLevelSecondary,
	)
	if err != nil {
		return fmt.Errorf("postgres: create idea %s: %w", i.ID, mapErr(err))
	}
	return nil
}

// Update replaces the mutable fields of an idea. Trade type, orientation,
// entry prices, and start date are never written after creation.
func (s *IdeaStore) Update(ctx context.Context, i domain.Idea) error {
	const query = `
		UPDATE ideas SET
			title                  = $2,
			status                 = $3,
			position_size          = $4,
			horizon                = $5,
			thesis_md              = $6,
			catalysts              = $7,
			risks                  = $8,
			kill_criteria_md       = $9,
			target_price_primary   = $10,
			stop_level_primary     = $11,
			target_price_secondary = $12,
			stop_level_secondary   = $13,
			exit_price_primary     = $14,
			exit_price_secondary   = $15,
			exit_date              = $16,
			updated_at             = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		i.ID, i.Title, string(i.Status), i.PositionSize,
		optStr(i.Horizon), i.ThesisMD, jsonStrings(i.Catalysts), jsonStrings(i.Risks), i.KillCriteriaMD,
		i.TargetPricePrimary, i.StopLevelPrimary, i.TargetPriceSecondary, i.StopLevelSecondary,
		i.ExitPricePrimary, i.ExitPriceSecondary, i.ExitDate,
	)
	if err != nil {
		return fmt.Errorf("postgres: update idea %s: %w", i.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an idea; its observations, notes, and attachments cascade at
// the schema level.
func (s *IdeaStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM ideas WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete idea %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single idea by its ID.
func (s *IdeaStore) GetByID(ctx context.Context, id string) (domain.Idea, error) {
	query := fmt.Sprintf("SELECT %s FROM ideas WHERE id = $1", ideaSelectCols)

	i, err := scanIdeaRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Idea{}, fmt.Errorf("postgres: get idea %s: %w", id, mapErr(err))
	}
	return i, nil
}

// List returns ideas filtered by folder and status set, newest first.
func (s *IdeaStore) List(ctx context.Context, filter domain.IdeaFilter) ([]domain.Idea, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, st := range filter.Statuses {
		statuses = append(statuses, string(st))
	}

	query := fmt.Sprintf(`
		SELECT %s FROM ideas
		WHERE ($1::text IS NULL OR folder_id = $1)
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2))
		ORDER BY created_at DESC`, ideaSelectCols)

	rows, err := s.pool.Query(ctx, query, filter.FolderID, statuses)
	if err != nil {
		return nil, fmt.Errorf("postgres: list ideas: %w", err)
	}
	defer rows.Close()

	ideas, err := scanIdeaRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan ideas: %w", err)
	}
	return ideas, nil
}

// CountByFolder returns the total and non-terminal idea counts for a folder.
func (s *IdeaStore) CountByFolder(ctx context.Context, folderID string) (total, active int64, err error) {
	const query = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status NOT IN ('CLOSED', 'KILLED'))
		FROM ideas WHERE folder_id = $1`

	if err := s.pool.QueryRow(ctx, query, folderID).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("postgres: count ideas for %s: %w", folderID, err)
	}
	return total, active, nil
}

// Compile-time interface check.
var _ domain.IdeaStore = (*IdeaStore)(nil)
