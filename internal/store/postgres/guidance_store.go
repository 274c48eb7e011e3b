package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// GuidanceStore implements domain.GuidanceStore using PostgreSQL.
type GuidanceStore struct {
	pool *pgxpool.Pool
}

// NewGuidanceStore creates a new GuidanceStore backed by the given connection
// pool.
func NewGuidanceStore(pool *pgxpool.Pool) *GuidanceStore {
	return &GuidanceStore{pool: pool}
}

const guidanceSelectCols = `id, folder_id, ticker, period, metric, guidance_period,
	guidance_low, guidance_high, guidance_point, actual_result,
	notes, created_at, updated_at`

func scanGuidanceRow(row pgx.Row) (domain.Guidance, error) {
	var g domain.Guidance
	var metric string

	err := row.Scan(
		&g.ID, &g.FolderID, &g.Ticker, &g.Period, &metric, &g.GuidancePeriod,
		&g.GuidanceLow, &g.GuidanceHigh, &g.GuidancePoint, &g.ActualResult,
		&g.Notes, &g.CreatedAt, &g.UpdatedAt,
	)
	if err != nil {
		return domain.Guidance{}, err
	}
	g.Metric = domain.MetricType(metric)
	return g, nil
}

// Create inserts a new guidance record. A duplicate (folder, ticker, period,
// metric, guidance period) surfaces as domain.ErrAlreadyExists.
func (s *GuidanceStore) Create(ctx context.Context, g domain.Guidance) error {
	const query = `
		INSERT INTO guidance (
			id, folder_id, ticker, period, metric, guidance_period,
			guidance_low, guidance_high, guidance_point, actual_result,
			notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		g.ID, g.FolderID, g.Ticker, g.Period, string(g.Metric), g.GuidancePeriod,
		g.GuidanceLow, g.GuidanceHigh, g.GuidancePoint, g.ActualResult,
		g.Notes,
	)
	if err != nil {
		return fmt.Errorf("postgres: create guidance %s: %w", g.ID, mapErr(err))
	}
	return nil
}

// Update replaces the mutable fields of a guidance record.
func (s *GuidanceStore) Update(ctx context.Context, g domain.Guidance) error {
	const query = `
		UPDATE guidance SET
			guidance_low   = $2,
			guidance_high  = $3,
			guidance_point = $4,
			actual_result  = $5,
			notes          = $6,
			updated_at     = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		g.ID, g.GuidanceLow, g.GuidanceHigh, g.GuidancePoint, g.ActualResult, g.Notes,
	)
	if err != nil {
		return fmt.Errorf("postgres: update guidance %s: %w", g.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a guidance record by ID.
func (s *GuidanceStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM guidance WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete guidance %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single guidance record by its ID.
func (s *GuidanceStore) GetByID(ctx context.Context, id string) (domain.Guidance, error) {
	query := fmt.Sprintf("SELECT %s FROM guidance WHERE id = $1", guidanceSelectCols)

	g, err := scanGuidanceRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Guidance{}, fmt.Errorf("postgres: get guidance %s: %w", id, mapErr(err))
	}
	return g, nil
}

// ListByFolder returns a folder's guidance records, optionally filtered by
// ticker and metric, most recent period first.
func (s *GuidanceStore) ListByFolder(ctx context.Context, folderID string, ticker *string, metric *domain.MetricType) ([]domain.Guidance, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM guidance
		WHERE folder_id = $1
		  AND ($2::text IS NULL OR ticker = $2)
		  AND ($3::text IS NULL OR metric = $3)
		ORDER BY period DESC, guidance_period DESC`, guidanceSelectCols)

	rows, err := s.pool.Query(ctx, query, folderID, ticker, optStr(metric))
	if err != nil {
		return nil, fmt.Errorf("postgres: list guidance for %s: %w", folderID, err)
	}
	defer rows.Close()

	var records []domain.Guidance
	for rows.Next() {
		g, err := scanGuidanceRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan guidance for %s: %w", folderID, err)
		}
		records = append(records, g)
	}
	return records, rows.Err()
}

// Compile-time interface check.
var _ domain.GuidanceStore = (*GuidanceStore)(nil)
