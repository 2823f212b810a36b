package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Errors shared by every store driver.
var (
	ErrTaskNotFound    = errors.New("task not found")
	ErrInvalidID       = errors.New("malformed id")
	ErrVersionConflict = errors.New("task version conflict")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already exists")
	ErrUsernameExists  = errors.New("username already exists")
)

const uniqueViolationCode = "23505"

// uniqueViolation returns the violated constraint name, or "" when err is
// not a PostgreSQL unique violation.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return pgErr.ConstraintName, true
	}
	return "", false
}
