// Package connect turns whatever database handle a caller holds into the
// single pinned session the truncation engine needs.
package connect

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/database/mysql"
	"github.com/koustreak/tablewipe/internal/database/postgres"
	"github.com/koustreak/tablewipe/internal/errs"
	"github.com/lib/pq"
)

// ErrNilSource is returned when Resolve is given a nil handle.
var ErrNilSource = errors.New("connect: nil database source")

// UnsupportedSourceError reports a handle type no strategy understands.
type UnsupportedSourceError struct {
	Type string
}

func (e *UnsupportedSourceError) Error() string {
	return fmt.Sprintf("connect: unsupported database source %s", e.Type)
}

// Session is one database session plus the metadata reader for its
// dialect. Close returns any connection the resolver borrowed; it never
// closes a handle the caller passed in directly.
type Session struct {
	Conn     database.Conn
	Metadata database.Metadata
	Dialect  database.Driver

	release func() error
}

// NewSession pairs conn with the metadata reader for dialect.
func NewSession(dialect database.Driver, conn database.Conn) (*Session, error) {
	switch dialect {
	case database.DriverPostgres:
		return &Session{Conn: conn, Metadata: postgres.NewIntrospector(conn), Dialect: dialect}, nil
	case database.DriverMySQL:
		return &Session{Conn: conn, Metadata: mysql.NewIntrospector(conn), Dialect: dialect}, nil
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported driver %q", dialect))
	}
}

// Close releases the borrowed connection, if any. It is safe to call more
// than once.
func (s *Session) Close() error {
	if s == nil || s.release == nil {
		return nil
	}
	release := s.release
	s.release = nil
	return release()
}

// Resolver obtains a Session from a caller-supplied handle.
type Resolver interface {
	Resolve(ctx context.Context, src any) (*Session, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, src any) (*Session, error)

func (f ResolverFunc) Resolve(ctx context.Context, src any) (*Session, error) {
	return f(ctx, src)
}

// DefaultResolver understands the pgx and database/sql handles used in
// this module:
//
//	*connect.Session        used as is
//	*pgx.Conn, *pgxpool.Conn
//	*pgxpool.Pool           one connection acquired until Session.Close
//	*postgres.Driver        same as its pool
//	*mysql.Driver           same as its *sql.DB
//	*sql.DB                 one *sql.Conn pinned until Session.Close
//	*sql.Conn               dialect read from the driver connection
type DefaultResolver struct{}

// Resolve implements Resolver.
func (DefaultResolver) Resolve(ctx context.Context, src any) (*Session, error) {
	switch s := src.(type) {
	case nil:
		return nil, ErrNilSource
	case *Session:
		if s == nil {
			return nil, ErrNilSource
		}
		return s, nil
	case *pgx.Conn:
		if s == nil {
			return nil, ErrNilSource
		}
		return NewSession(database.DriverPostgres, postgres.NewConn(s))
	case *pgxpool.Conn:
		if s == nil {
			return nil, ErrNilSource
		}
		return NewSession(database.DriverPostgres, postgres.NewConn(s))
	case *pgxpool.Pool:
		return fromPool(ctx, s)
	case *postgres.Driver:
		if s == nil {
			return nil, ErrNilSource
		}
		return fromPool(ctx, s.Pool())
	case *mysql.Driver:
		if s == nil {
			return nil, ErrNilSource
		}
		return fromDB(ctx, s.DB())
	case *sql.DB:
		return fromDB(ctx, s)
	case *sql.Conn:
		dialect, err := connDialect(s)
		if err != nil {
			return nil, err
		}
		return sqlSession(dialect, s)
	default:
		return nil, &UnsupportedSourceError{Type: fmt.Sprintf("%T", src)}
	}
}

// Resolve uses DefaultResolver.
func Resolve(ctx context.Context, src any) (*Session, error) {
	return DefaultResolver{}.Resolve(ctx, src)
}

func fromPool(ctx context.Context, pool *pgxpool.Pool) (*Session, error) {
	if pool == nil {
		return nil, ErrNilSource
	}
	pc, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "acquire connection", err)
	}
	sess, err := NewSession(database.DriverPostgres, postgres.NewConn(pc))
	if err != nil {
		pc.Release()
		return nil, err
	}
	sess.release = func() error {
		pc.Release()
		return nil
	}
	return sess, nil
}

func fromDB(ctx context.Context, db *sql.DB) (*Session, error) {
	if db == nil {
		return nil, ErrNilSource
	}
	dialect, err := driverDialect(db.Driver())
	if err != nil {
		return nil, err
	}
	// Pin one connection so every statement shares a session.
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "acquire connection", err)
	}
	sess, err := sqlSession(dialect, conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	sess.release = conn.Close
	return sess, nil
}

func sqlSession(dialect database.Driver, q database.SQLQuerier) (*Session, error) {
	switch dialect {
	case database.DriverPostgres:
		return NewSession(dialect, postgres.NewSQLConn(q))
	case database.DriverMySQL:
		return NewSession(dialect, mysql.NewConn(q))
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported driver %q", dialect))
	}
}

func driverDialect(d driver.Driver) (database.Driver, error) {
	switch d.(type) {
	case *gomysql.MySQLDriver, gomysql.MySQLDriver:
		return database.DriverMySQL, nil
	case *pq.Driver, *stdlib.Driver:
		return database.DriverPostgres, nil
	}
	return pkgDialect(d)
}

// connDialect inspects the driver connection behind c.
func connDialect(c *sql.Conn) (database.Driver, error) {
	if c == nil {
		return "", ErrNilSource
	}
	var (
		dialect database.Driver
		derr    error
	)
	err := c.Raw(func(dc any) error {
		dialect, derr = pkgDialect(dc)
		return nil
	})
	if err != nil {
		return "", errs.Wrap(errs.ErrKindConnectionFailed, "inspect connection", err)
	}
	return dialect, derr
}

// pkgDialect maps a driver value onto a dialect by the package that
// defines its type. Driver connection types are mostly unexported.
func pkgDialect(v any) (database.Driver, error) {
	typ := reflect.TypeOf(v)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil {
		return "", ErrNilSource
	}
	switch typ.PkgPath() {
	case "github.com/go-sql-driver/mysql":
		return database.DriverMySQL, nil
	case "github.com/lib/pq", "github.com/jackc/pgx/v5/stdlib":
		return database.DriverPostgres, nil
	default:
		return "", &UnsupportedSourceError{Type: fmt.Sprintf("%T", v)}
	}
}
