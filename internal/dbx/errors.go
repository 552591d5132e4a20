package dbx

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/dmitrijs2005/librarian/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeInvalidText          = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeAdminShutdown        = "57P01"
	classConnectionException = "08"
)

// Classify maps driver errors onto the common error taxonomy. Connection
// failures and timeouts become common.ErrTransient and unique violations
// become common.ErrorAlreadyExists. sql.ErrNoRows, a malformed id (22P02) and
// a reference to a missing row (23503) become common.ErrorNotFound.
// The original error stays in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
	}
	if IsTransient(err) {
		return fmt.Errorf("%w: %w", common.ErrTransient, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %w", common.ErrorAlreadyExists, err)
		case codeInvalidText, codeForeignKeyViolation:
			return fmt.Errorf("%w: %w", common.ErrorNotFound, err)
		}
	}
	return err
}

// IsTransient reports whether err is worth a bounded retry by the caller.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, classConnectionException) ||
			pgErr.Code == codeSerializationFailure ||
			pgErr.Code == codeDeadlockDetected ||
			pgErr.Code == codeAdminShutdown
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
