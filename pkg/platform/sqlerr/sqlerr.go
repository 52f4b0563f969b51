// Package sqlerr inspects PostgreSQL errors independent of the registered driver.
package sqlerr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// IsUniqueViolation recognises SQLSTATE 23505 from pgx or lib/pq.
func IsUniqueViolation(err error) bool {
	return Code(err) == uniqueViolation
}

// Code returns the SQLSTATE carried by err, or "" when err is not a server error.
func Code(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}
