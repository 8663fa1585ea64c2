package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the repositories care about.
const (
	codeLockNotAvailable = "55P03"
	classConnection      = "08"
	classResources       = "53"
	codeSerialization    = "40001"
	codeDeadlock         = "40P01"
)

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeLockNotAvailable
}

// IsTransient reports whether a store error is expected to heal on retry:
// connection trouble, resource exhaustion, lock waits and serialization
// conflicts. Anything else, like bad credentials or a broken query, will fail
// the same way again.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeLockNotAvailable,
			pgErr.Code == codeSerialization,
			pgErr.Code == codeDeadlock:
			return true
		case len(pgErr.Code) >= 2 &&
			(pgErr.Code[:2] == classConnection || pgErr.Code[:2] == classResources):
			return true
		}
		return false
	}

	// pgconn wraps net errors in its own connect error type.
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
