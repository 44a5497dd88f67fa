package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgInsufficientPrivilege is the Postgres error code for permission denial.
const pgInsufficientPrivilege = "42501"

// IsPermissionDenied reports whether an error chain contains a
// store-reported access-control failure. These are routed to a distinct
// error channel so they stay observable separately from transient faults.
func IsPermissionDenied(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgInsufficientPrivilege
}
