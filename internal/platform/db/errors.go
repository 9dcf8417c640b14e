package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// MapError translates pgx errors into domain errors: pgx.ErrNoRows becomes
// notFound, a unique violation becomes duplicate and a foreign key violation
// becomes inUse. A nil target leaves that class of error untouched.
func MapError(err error, notFound, duplicate, inUse error) error {
	if err == nil {
		return nil
	}
	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	if duplicate != nil && IsUniqueViolation(err) {
		return duplicate
	}
	if inUse != nil && IsForeignKeyViolation(err) {
		return inUse
	}
	return err
}

func IsUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
