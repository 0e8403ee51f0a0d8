package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/tablewipe/internal/database"
)

// Introspector implements database.Metadata for MySQL.
// MySQL databases are reported as catalogs and the schema is always
// absent, the same shape Connector/J exposes.
type Introspector struct {
	db database.Conn
}

// NewIntrospector creates a new MySQL metadata reader over db.
func NewIntrospector(db database.Conn) *Introspector {
	return &Introspector{db: db}
}

// ListTables returns every base table in every non-system database the
// session can see.
func (m *Introspector) ListTables(ctx context.Context) ([]database.Table, error) {
	const q = `
		SELECT table_schema,
		       NULL,
		       table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
		ORDER BY table_schema, table_name`

	return m.queryTables(ctx, "list tables", q)
}

// ExportedKeys returns the tables holding a foreign key into t, one row per
// constraint. An absent catalog resolves to the session's default database.
func (m *Introspector) ExportedKeys(ctx context.Context, t database.Table) ([]database.Table, error) {
	const q = `
		SELECT constraint_schema,
		       NULL,
		       table_name
		FROM information_schema.referential_constraints
		WHERE unique_constraint_schema = COALESCE(?, DATABASE())
		  AND referenced_table_name    = ?
		ORDER BY constraint_schema, table_name, constraint_name`

	return m.queryTables(ctx, fmt.Sprintf("exported keys of %s", t), q, t.Catalog, t.Name)
}

// QuoteTable renders t as `catalog`.`name`.
func (m *Introspector) QuoteTable(t database.Table) string {
	parts := t.Parts()
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

func (m *Introspector) queryTables(ctx context.Context, op, q string, args ...any) ([]database.Table, error) {
	rows, err := m.db.Query(ctx, q, args...)
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
