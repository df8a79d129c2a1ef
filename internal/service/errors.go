package service

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Session-level errors. Handlers map these to HTTP status codes; nothing in
// this package knows about status codes.
var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrConflict      = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAccessDenied  = errors.New("access denied")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
	ErrMisconfigured = errors.New("auth config invalid")
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
