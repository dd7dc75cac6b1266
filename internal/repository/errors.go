package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrOpenAttemptExists is returned when inserting an attempt would violate
// the one-open-attempt-per-(user, quiz) index.
var ErrOpenAttemptExists = errors.New("an open attempt already exists for this user and quiz")

// ErrAttemptClosed is returned when finalizing an attempt that is no longer
// open.
var ErrAttemptClosed = errors.New("attempt is already closed")

// IsTransient reports whether an error is worth retrying at the transaction
// boundary: serialization failures, deadlocks, lock timeouts, and timed-out
// contexts from statement deadlines.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
	}
	return false
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
