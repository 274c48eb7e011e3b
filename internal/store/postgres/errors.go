package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ideadesk/ideadesk/internal/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint breaches.
const uniqueViolation = "23505"

// mapErr translates driver-level errors to domain sentinels. Unique
// violations become ErrAlreadyExists so the service layer can surface them
// as conflicts; no-row results become ErrNotFound.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrAlreadyExists
	}
	return err
}
