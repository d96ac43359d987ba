package repository

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation = "23505"
	pgUndefinedTable  = "42P01"
)

// ErrSchemaMissing indicates the store's table does not exist; run migrations.
var ErrSchemaMissing = errors.New("database schema missing; run migrations")

// MapError translates database errors to domain errors. sql.ErrNoRows maps to
// notFoundErr and a unique violation maps to duplicateErr. An undefined table
// wraps ErrSchemaMissing. Other errors are returned unchanged.
func MapError(err error, notFoundErr, duplicateErr error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return notFoundErr
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return duplicateErr
		case pgUndefinedTable:
			return errors.Join(ErrSchemaMissing, err)
		}
	}

	return err
}
