// Package databasetest provides an in-memory database.Conn for driver tests.
package databasetest

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/koustreak/tablewipe/internal/database"
)

// Call records one statement sent through a Conn.
type Call struct {
	SQL  string
	Args []any
}

// Conn answers queries with canned rows, chosen by a caller-supplied
// function so tests can react to query arguments.
type Conn struct {
	mu    sync.Mutex
	calls []Call

	// OnQuery returns the rows (or error) for a query.
	OnQuery func(sql string, args []any) ([][]any, error)

	// OnExec returns the affected-row count (or error) for a statement.
	OnExec func(sql string, args []any) (int64, error)
}

// Calls returns every statement seen so far, in order.
func (c *Conn) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}

func (c *Conn) record(sql string, args []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{SQL: sql, Args: args})
}

func (c *Conn) Query(_ context.Context, sql string, args ...any) (database.Rows, error) {
	c.record(sql, args)
	if c.OnQuery == nil {
		return &Rows{}, nil
	}
	values, err := c.OnQuery(sql, args)
	if err != nil {
		return nil, err
	}
	return &Rows{values: values}, nil
}

func (c *Conn) Exec(_ context.Context, sql string, args ...any) (int64, error) {
	c.record(sql, args)
	if c.OnExec == nil {
		return 0, nil
	}
	return c.OnExec(sql, args)
}

// Rows iterates over canned values. nil values scan into sql.NullString
// as absent.
type Rows struct {
	values [][]any
	cur    int
	closed bool
}

func (r *Rows) Next() bool {
	if r.closed || r.cur >= len(r.values) {
		return false
	}
	r.cur++
	return true
}

func (r *Rows) Scan(dest ...any) error {
	if r.cur == 0 {
		return fmt.Errorf("scan called before Next")
	}
	row := r.values[r.cur-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case sql.Scanner:
			if err := p.Scan(row[i]); err != nil {
				return err
			}
		case *string:
			s, ok := row[i].(string)
			if !ok {
				return fmt.Errorf("scan: column %d is %T, not string", i, row[i])
			}
			*p = s
		case *int64:
			n, ok := row[i].(int64)
			if !ok {
				return fmt.Errorf("scan: column %d is %T, not int64", i, row[i])
			}
			*p = n
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

func (r *Rows) Close()     { r.closed = true }
func (r *Rows) Err() error { return nil }
