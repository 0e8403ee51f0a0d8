package postgres

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/tablewipe/internal/errs"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATE codes the engine cares about.
// Full list: https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgErrForeignKeyViolation   = "23503"
	pgErrInsufficientPrivilege = "42501"
	pgErrUndefinedTable        = "42P01"
	pgErrQueryCanceled         = "57014"
)

// mapError translates pgx, pgconn and lib/pq errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(classifySQLState(pgErr.Code), fmt.Sprintf("%s: %s", msg, pgErr.Message), err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return errs.Wrap(classifySQLState(string(pqErr.Code)), fmt.Sprintf("%s: %s", msg, pqErr.Message), err)
	}

	if pgconn.Timeout(err) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	var (
		connErr *pgconn.ConnectError
		netErr  net.Error
	)
	if errors.As(err, &connErr) || errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
	}

	// Scan and type conversion errors raised client-side.
	return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
}

// classifySQLState maps a SQLSTATE code onto an ErrKind.
func classifySQLState(code string) errs.ErrKind {
	switch code {
	case pgErrForeignKeyViolation:
		return errs.ErrKindConstraintViolation
	case pgErrInsufficientPrivilege:
		return errs.ErrKindPermissionDenied
	case pgErrUndefinedTable:
		return errs.ErrKindNotFound
	case pgErrQueryCanceled:
		return errs.ErrKindTimeout
	}

	if len(code) < 2 {
		return errs.ErrKindQueryFailed
	}
	switch code[:2] {
	case "08": // connection exception
		return errs.ErrKindConnectionFailed
	case "23": // integrity constraint violation
		return errs.ErrKindConstraintViolation
	case "28": // invalid authorization
		return errs.ErrKindPermissionDenied
	default:
		return errs.ErrKindQueryFailed
	}
}
