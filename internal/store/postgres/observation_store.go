package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// ObservationStore implements domain.ObservationStore using PostgreSQL. The
// UNIQUE (idea_id, ts) constraint is the sole arbiter between concurrent
// writers; Create reports a losing write as domain.ErrAlreadyExists.
type ObservationStore struct {
	pool *pgxpool.Pool
}

// NewObservationStore creates a new ObservationStore backed by the given
// connection pool.
func NewObservationStore(pool *pgxpool.Pool) *ObservationStore {
	return &ObservationStore{pool: pool}
}

const observationSelectCols = `id, idea_id, ts, price_primary, price_secondary,
	source, note, created_at`

func scanObservationRow(row pgx.Row) (domain.PriceObservation, error) {
	var o domain.PriceObservation
	var source string

	err := row.Scan(
		&o.ID, &o.IdeaID, &o.Timestamp,
		&o.PricePrimary, &o.PriceSecondary,
		&source, &o.Note, &o.CreatedAt,
	)
	if err != nil {
		return domain.PriceObservation{}, err
	}
	o.Source = domain.PriceSource(source)
	return o, nil
}

func scanObservationRows(rows pgx.Rows) ([]domain.PriceObservation, error) {
	var observations []domain.PriceObservation
	for rows.Next() {
		o, err := scanObservationRow(rows)
		if err != nil {
			return nil, err
		}
		observations = append(observations, o)
	}
	return observations, rows.Err()
}

// Create inserts a new observation.
func (s *ObservationStore) Create(ctx context.Context, o domain.PriceObservation) error {
	const query = `
		INSERT INTO price_observations (
			id, idea_id, ts, price_primary, price_secondary, source, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.IdeaID, o.Timestamp,
		o.PricePrimary, o.PriceSecondary,
		string(o.Source), o.Note,
	)
	if err != nil {
		return fmt.Errorf("postgres: create observation %s: %w", o.ID, mapErr(err))
	}
	return nil
}

// Update replaces the mutable fields of an observation (prices, source, note).
func (s *ObservationStore) Update(ctx context.Context, o domain.PriceObservation) error {
	const query = `
		UPDATE price_observations SET
			price_primary   = $2,
			price_secondary = $3,
			source          = $4,
			note            = $5
		WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query,
		o.ID, o.PricePrimary, o.PriceSecondary, string(o.Source), o.Note,
	)
	if err != nil {
		return fmt.Errorf("postgres: update observation %s: %w", o.ID, mapErr(err))
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes an observation by ID.
func (s *ObservationStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM price_observations WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("postgres: delete observation %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns a single observation by its ID.
func (s *ObservationStore) GetByID(ctx context.Context, id string) (domain.PriceObservation, error) {
	query := fmt.Sprintf("SELECT %s FROM price_observations WHERE id = $1", observationSelectCols)

	o, err := scanObservationRow(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("postgres: get observation %s: %w", id, mapErr(err))
	}
	return o, nil
}

// ListByIdea returns an idea's observations ascending by timestamp, filtered
// by the optional Since/Until bounds and paginated by Limit/Offset.
func (s *ObservationStore) ListByIdea(ctx context.Context, ideaID string, opts domain.ListOpts) ([]domain.PriceObservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM price_observations
		WHERE idea_id = $1
		  AND ($2::timestamptz IS NULL OR ts >= $2)
		  AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY ts ASC`, observationSelectCols)

	args := []any{ideaID, opts.Since, opts.Until}
	if opts.Limit > 0 {
		query += " LIMIT $4 OFFSET $5"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list observations for %s: %w", ideaID, err)
	}
	defer rows.Close()

	observations, err := scanObservationRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan observations for %s: %w", ideaID, err)
	}
	return observations, nil
}

// ExistingDays returns the calendar-date keys (UTC "YYYY-MM-DD") that already
// have an observation for the idea inside [from, to].
func (s *ObservationStore) ExistingDays(ctx context.Context, ideaID string, from, to time.Time) ([]string, error) {
	const query = `
		SELECT DISTINCT TO_CHAR(ts AT TIME ZONE 'UTC', 'YYYY-MM-DD')
		FROM price_observations
		WHERE idea_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY 1`

	rows, err := s.pool.Query(ctx, query, ideaID, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: existing days for %s: %w", ideaID, err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("postgres: scan existing day for %s: %w", ideaID, err)
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// GetOnDay returns the idea's observation on the given calendar date, or
// domain.ErrNotFound. When several manual entries share a date, the latest
// wins.
func (s *ObservationStore) GetOnDay(ctx context.Context, ideaID string, day time.Time) (domain.PriceObservation, error) {
	y, m, d := day.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24*time.Hour - time.Nanosecond)

	query := fmt.Sprintf(`
		SELECT %s FROM price_observations
		WHERE idea_id = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT 1`, observationSelectCols)

	o, err := scanObservationRow(s.pool.QueryRow(ctx, query, ideaID, dayStart, dayEnd))
	if err != nil {
		return domain.PriceObservation{}, fmt.Errorf("postgres: observation on %s for %s: %w",
			dayStart.Format("2006-01-02"), ideaID, mapErr(err))
	}
	return o, nil
}

// ListBefore returns all observations with a timestamp strictly before the
// cutoff, ascending, for archival.
func (s *ObservationStore) ListBefore(ctx context.Context, before time.Time) ([]domain.PriceObservation, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM price_observations
		WHERE ts < $1
		ORDER BY ts ASC`, observationSelectCols)

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list observations before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	observations, err := scanObservationRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan observations before cutoff: %w", err)
	}
	return observations, nil
}

// Compile-time interface check.
var _ domain.ObservationStore = (*ObservationStore)(nil)
