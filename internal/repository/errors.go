package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned on unique violations and on conditional
	// updates that matched no row.
	ErrConflict = errors.New("record conflict")
)

const (
	uniqueViolation = "23505"
	// invalidTextRepresentation is raised when an id is not a valid UUID.
	invalidTextRepresentation = "22P02"
)

// mapError translates driver errors into the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case invalidTextRepresentation:
			return ErrNotFound
		}
	}
	return err
}
