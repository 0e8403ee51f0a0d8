package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/koustreak/tablewipe/internal/database"
)

// Introspector implements database.Metadata for PostgreSQL.
// Catalog is the current database, schema the namespace.
type Introspector struct {
	conn database.Conn
}

// NewIntrospector creates a new Postgres metadata reader over conn.
func NewIntrospector(conn database.Conn) *Introspector {
	return &Introspector{conn: conn}
}

// ListTables returns every base table outside the system schemas.
func (p *Introspector) ListTables(ctx context.Context) ([]database.Table, error) {
	const q = `
		SELECT table_catalog::text,
		       table_schema::text,
		       table_name::text
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
		  AND table_schema NOT LIKE 'pg\_toast%'
		  AND table_schema NOT LIKE 'pg\_temp\_%'
		ORDER BY table_catalog, table_schema, table_name`

	return p.queryTables(ctx, "list tables", q)
}

// ExportedKeys returns the tables holding a foreign key into t, one row
// per constraint. An absent schema resolves to the session's current schema.
func (p *Introspector) ExportedKeys(ctx context.Context, t database.Table) ([]database.Table, error) {
	const q = `
		SELECT current_database()::text,
		       cn.nspname::text,
		       c.relname::text
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class     c  ON c.oid  = con.conrelid
		JOIN pg_catalog.pg_namespace cn ON cn.oid = c.relnamespace
		JOIN pg_catalog.pg_class     p  ON p.oid  = con.confrelid
		JOIN pg_catalog.pg_namespace pn ON pn.oid = p.relnamespace
		WHERE con.contype = 'f'
		  AND pn.nspname  = COALESCE($1::text, current_schema())
		  AND p.relname   = $2
		ORDER BY cn.nspname, c.relname, con.conname`

	return p.queryTables(ctx, fmt.Sprintf("exported keys of %s", t), q, t.Schema, t.Name)
}

// QuoteTable renders t as "catalog"."schema"."name".
func (p *Introspector) QuoteTable(t database.Table) string {
	return pgx.Identifier(t.Parts()).Sanitize()
}

func (p *Introspector) queryTables(ctx context.Context, op, q string, args ...any) ([]database.Table, error) {
	rows, err := p.conn.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tables []database.Table
	for rows.Next() {
		var t database.Table
		if err := rows.Scan(&t.Catalog, &t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return tables, nil
}
