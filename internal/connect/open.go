package connect

import (
	"context"
	"fmt"

	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/database/mysql"
	"github.com/koustreak/tablewipe/internal/database/postgres"
	"github.com/koustreak/tablewipe/internal/errs"
)

// Pool is a connection pool owned by tablewipe. Both *postgres.Driver and
// *mysql.Driver satisfy it, and Resolve accepts either.
type Pool interface {
	Ping(ctx context.Context) error
	Close()
}

// Open connects a pool for cfg.Driver.
func Open(ctx context.Context, cfg *database.Config) (Pool, error) {
	var (
		pool Pool
		err  error
	)
	switch cfg.Driver {
	case database.DriverPostgres:
		pool, err = postgres.New(ctx, cfg)
	case database.DriverMySQL:
		pool, err = mysql.New(ctx, cfg)
	default:
		return nil, errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unsupported driver %q", cfg.Driver))
	}
	if err != nil {
		return nil, err
	}
	return pool, nil
}
