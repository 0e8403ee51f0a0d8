package database

import (
	"context"
	"database/sql"
)

// SQLQuerier is the subset of *sql.DB, *sql.Conn and *sql.Tx used by the
// database/sql backed drivers.
type SQLQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ErrorMapper translates a non-nil driver error into a tablewipe error.
// msg describes the operation that failed.
type ErrorMapper func(err error, msg string) error

// NewSQLConn adapts a database/sql handle to Conn. Errors are passed
// through mapErr so every dialect reports its own error kinds.
func NewSQLConn(q SQLQuerier, mapErr ErrorMapper) Conn {
	return &sqlConn{q: q, mapErr: mapErr}
}

type sqlConn struct {
	q      SQLQuerier
	mapErr ErrorMapper
}

func (c *sqlConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, c.mapErr(err, "query failed")
	}
	return &sqlRows{rows: rows, mapErr: c.mapErr}, nil
}

func (c *sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, c.mapErr(err, "exec failed")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, c.mapErr(err, "rows affected unavailable")
	}
	return n, nil
}

// --- *sql.Rows wrapper ---

type sqlRows struct {
	rows   *sql.Rows
	mapErr ErrorMapper
}

func (r *sqlRows) Next() bool { return r.rows.Next() }
func (r *sqlRows) Close()     { _ = r.rows.Close() }

func (r *sqlRows) Scan(dest ...any) error {
	if err := r.rows.Scan(dest...); err != nil {
		return r.mapErr(err, "scan failed")
	}
	return nil
}

func (r *sqlRows) Err() error {
	if err := r.rows.Err(); err != nil {
		return r.mapErr(err, "error during row iteration")
	}
	return nil
}
