package mysql

import (
	"context"
	"database/sql"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/errs"
)

// Driver owns a MySQL connection pool backed by database/sql.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	db *sql.DB
}

// New opens a MySQL connection pool using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *database.Config) (*Driver, error) {
	dsnCfg, err := gomysql.ParseDSN(cfg.DSN)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}
	if cfg.ConnectTimeout > 0 {
		dsnCfg.Timeout = cfg.ConnectTimeout
	}

	connector, err := gomysql.NewConnector(dsnCfg)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid DSN", err)
	}
	db := sql.OpenDB(connector)

	db.SetMaxOpenConns(int(cfg.MaxConns))
	db.SetMaxIdleConns(int(cfg.MinConns))
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)
	db.SetConnMaxIdleTime(cfg.MaxConnIdleTime)

	d := &Driver{db: db}

	pingCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	if err := d.Ping(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// Ping verifies the database is reachable.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close shuts down the connection pool.
func (d *Driver) Close() {
	_ = d.db.Close()
}

// DB returns the underlying *sql.DB.
func (d *Driver) DB() *sql.DB {
	return d.db
}

// NewConn adapts *sql.DB, *sql.Conn or *sql.Tx to database.Conn with
// MySQL error mapping.
func NewConn(q database.SQLQuerier) database.Conn {
	return database.NewSQLConn(q, func(err error, msg string) error {
		return mapError(err, msg)
	})
}
