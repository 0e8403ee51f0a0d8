package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/database/databasetest"
	"github.com/koustreak/tablewipe/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntrospector_ListTables(t *testing.T) {
	conn := &databasetest.Conn{
		OnQuery: func(string, []any) ([][]any, error) {
			return [][]any{
				{"shop", "billing", "payments"},
				{"shop", "public", "orders"},
			}, nil
		},
	}

	tables, err := NewIntrospector(conn).ListTables(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []database.Table{
		database.NewTable("shop", "billing", "payments"),
		database.NewTable("shop", "public", "orders"),
	}, tables)

	q := conn.Calls()[0].SQL
	assert.Contains(t, q, "table_type = 'BASE TABLE'")
	assert.Contains(t, q, "'pg_catalog', 'information_schema'")
}

func TestIntrospector_ListTablesEmptyDatabase(t *testing.T) {
	tables, err := NewIntrospector(&databasetest.Conn{}).ListTables(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestIntrospector_ExportedKeys(t *testing.T) {
	customers := database.NewTable("shop", "public", "customers")
	conn := &databasetest.Conn{
		OnQuery: func(_ string, args []any) ([][]any, error) {
			if args[1] != "customers" {
				return nil, nil
			}
			return [][]any{
				{"shop", "public", "invoices"},
				{"shop", "public", "orders"},
				{"shop", "public", "orders"},
			}, nil
		},
	}

	children, err := NewIntrospector(conn).ExportedKeys(context.Background(), customers)
	require.NoError(t, err)

	assert.Equal(t, []database.Table{
		database.NewTable("shop", "public", "invoices"),
		database.NewTable("shop", "public", "orders"),
		database.NewTable("shop", "public", "orders"),
	}, children)

	call := conn.Calls()[0]
	assert.True(t, strings.Contains(call.SQL, "con.contype = 'f'"))
	assert.Equal(t, []any{sql.NullString{String: "public", Valid: true}, "customers"}, call.Args)
}

func TestIntrospector_ExportedKeysFailureNamesTable(t *testing.T) {
	cause := errs.Wrap(errs.ErrKindConnectionFailed, "query failed", errors.New("conn closed"))
	conn := &databasetest.Conn{
		OnQuery: func(string, []any) ([][]any, error) { return nil, cause },
	}

	_, err := NewIntrospector(conn).ExportedKeys(context.Background(), database.NewTable("shop", "public", "payments"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop.public.payments")
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestIntrospector_QuoteTable(t *testing.T) {
	p := NewIntrospector(nil)

	assert.Equal(t, `"shop"."public"."Orders"`, p.QuoteTable(database.NewTable("shop", "public", "Orders")))
	assert.Equal(t, `"public"."we""ird"`, p.QuoteTable(database.NewTable("", "public", `we"ird`)))
}
