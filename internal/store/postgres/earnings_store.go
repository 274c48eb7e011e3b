package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// EarningsStore implements domain.EarningsStore using PostgreSQL.
type EarningsStore struct {
	pool *pgxpool.Pool
}

// NewEarningsStore creates a new EarningsStore backed by the given connection
// pool.
func NewEarningsStore(pool *pgxpool.Pool) *EarningsStore {
	return &EarningsStore{pool: pool}
}

const earningsSelectCols = `id, folder_id, ticker, period_type, period, fiscal_quarter, period_end_date,
	estimate_eps, actual_eps, my_estimate_eps,
	estimate_rev, actual_rev, my_estimate_rev,
	estimate_ebitda, actual_ebitda, my_estimate_ebitda,
	estimate_fcf, actual_fcf, my_estimate_fcf,
	notes, created_at, updated_at`

func scanEarningsRow(row pgx.Row) (domain.Earnings, error) {
	var e domain.Earnings
	var periodType string

	err := row.Scan(
		&e.ID, &e.FolderID, &e.Ticker, &periodType, &e.Period, &e.FiscalQuarter, &e.PeriodEndDate,
		&e.EstimateEPS, &e.ActualEPS, &e.MyEstimateEPS,
		&e.EstimateRev, &e.ActualRev, &e.MyEstimateRev,
		&e.EstimateEBITDA, &e.ActualEBITDA, &e.MyEstimateEBITDA,
		&e.EstimateFCF, &e.ActualFCF, &e.MyEstimateFCF,
		&e.Notes, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return domain.Earnings{}, err
	}
	e.PeriodType = domain.PeriodType(periodType)
	return e, nil
}

// Create inserts a new earnings record. A duplicate (folder, ticker, fiscal
// quarter) surfaces as domain.ErrAlreadyExists.
func (s *EarningsStore) Create(ctx context.Context, e domain.Earnings) error {
	const query = `
		INSERT INTO earnings (
			id, folder_id, ticker, period_type, period, fiscal_quarter, period_end_date,
			estimate_eps, actual_eps, my_estimate_eps,
			estimate_rev, actual_rev, my_estimate_rev,
			estimate_ebitda, actual_ebitda, my_estimate_ebitda,
			estimate_fcf, actual_fcf, my_estimate_fcf,
			notes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12, $13,
			$14, $15, $16,
			$17, $18, $19,
			$20, NOW(), NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		e.ID, e.FolderID, e.Ticker, string(e.PeriodType), e.Period, e.FiscalQuarter, e.PeriodEndDate,
		e.EstimateEPS, e.ActualEPS, e.MyEstimateEPS,
		e.EstimateRev, e.ActualRev, e.MyEstimateRev,
		e.EstimateEBITDA, e.ActualEBITDA, e.MyEstimateEBITDA,
		e.EstimateFCF, e.ActualFCF, e.MyEstimateFCF,
		e.Notes,
	)
	if err != nil {
		return fmt.Errorf("postgres: create earnings %s: %w", e.ID, mapErr(err))
	}
	return nil
}

// Update replaces the mutable fields of an earnings record.
func (s *EarningsStore) Update(ctx context.Context, e domain.Earnings) error {
	const query = `
		UPDATE earnings SET
			period_type        = $2,
			period             = $3,
			period_end_date    = $4,
			estimate_eps       = $5,
			actual_eps         = $6,
			my_estimate_eps    = $7,
			estimate_rev       = $8,
			actual_rev         = $9,
			my_estimate_rev    = $10,
			estimate_ebitda    = $11,
			actual_ebitda      = $12,
			my_estimate_ebitda = $13,
			estimate_fcf       = $14,
			actual_fcf         = $15,
			my_estimate_fcf    = $16,
			notes              = $17,
			updated_at         = NOW()
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		e.ID, string(e.PeriodType), e.Period, e.PeriodEndDate,
		e.EstimateEPS, e.ActualEPS, e.MyEstimateEPS,
		e.EstimateRev, e.ActualRev, e.MyEstimateRev,
		e.EstimateEBITDA, e.ActualEBITDA, e.MyEstimateEBITDA,
		e.EstimateFCF, e.ActualFCF, e.MyEstimateFCF,
		e.Notes,
	)
	if err != nil {
		return fmt.Errorf("postgres: update earnings %s: %w", e.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an earnings record by ID.
func (s *EarningsStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM earnings WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete earnings %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single earnings record by its ID.
func (s *EarningsStore) GetByID(ctx context.Context, id string) (domain.Earnings, error) {
	query := fmt.Sprintf("SELECT %s FROM earnings WHERE id = $1", earningsSelectCols)

	e, err := scanEarningsRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.Earnings{}, fmt.Errorf("postgres: get earnings %s: %w", id, mapErr(err))
	}
	return e, nil
}

// GetByKey returns the earnings record for the unique (folder, ticker, fiscal
// quarter) key, or domain.ErrNotFound.
func (s *EarningsStore) GetByKey(ctx context.Context, folderID, ticker, fiscalQuarter string) (domain.Earnings, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM earnings
		WHERE folder_id = $1 AND ticker = $2 AND fiscal_quarter = $3`, earningsSelectCols)

	e, err := scanEarningsRow(s.pool.QueryRow(ctx, query, folderID, ticker, fiscalQuarter))
	if err != nil {
		return domain.Earnings{}, fmt.Errorf("postgres: earnings %s/%s/%s: %w",
			folderID, ticker, fiscalQuarter, mapErr(err))
	}
	return e, nil
}

// ListByFolder returns a folder's earnings records, optionally filtered by
// ticker, most recent fiscal quarter first.
func (s *EarningsStore) ListByFolder(ctx context.Context, folderID string, ticker *string) ([]domain.Earnings, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM earnings
		WHERE folder_id = $1
		  AND ($2::text IS NULL OR ticker = $2)
		ORDER BY fiscal_quarter DESC`, earningsSelectCols)

	rows, err := s.pool.Query(ctx, query, folderID, ticker)
	if err != nil {
		return nil, fmt.Errorf("postgres: list earnings for %s: %w", folderID, err)
	}
	defer rows.Close()

	var records []domain.Earnings
	for rows.Next() {
		e, err := scanEarningsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan earnings for %s: %w", folderID, err)
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

// Compile-time interface check.
var _ domain.EarningsStore = (*EarningsStore)(nil)
