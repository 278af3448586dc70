package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("scan: %w", pgx.ErrNoRows)), ErrNotFound)

	dup := &pgconn.PgError{Code: "23505", ConstraintName: "applications_project_researcher_key"}
	err := mapError(dup)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Contains(t, err.Error(), "applications_project_researcher_key")

	malformedID := &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`}
	assert.ErrorIs(t, mapError(malformedID), ErrNotFound)
	assert.ErrorIs(t, mapError(fmt.Errorf("query: %w", malformedID)), ErrNotFound)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
	assert.Equal(t, &pgconn.PgError{Code: "23503"}, mapError(&pgconn.PgError{Code: "23503"}))
}
