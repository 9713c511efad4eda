package repository

import (
	"errors"
	"fmt"

	"service-booking/internal/apperr"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when an insert hits a unique constraint.
	ErrDuplicate = errors.New("duplicate key")

	// ErrStaleVersion is returned when a version-checked update matched no row.
	ErrStaleVersion = fmt.Errorf("stale version: %w", apperr.ErrConflict)
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, ErrDuplicate)
	}
	return err
}

// isRetryableTx reports whether rerunning the whole transaction may succeed.
func isRetryableTx(err error) bool {
	if errors.Is(err, ErrStaleVersion) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	return false
}
