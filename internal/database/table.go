package database

import (
	"cmp"
	"database/sql"
	"strings"
)

// Table identifies one base table. It is a comparable value: two Tables are
// equal iff catalog, schema and name are all equal, where an absent
// (invalid) catalog or schema is its own value and never matches a present
// one, not even an empty string.
type Table struct {
	Catalog sql.NullString
	Schema  sql.NullString
	Name    string
}

// NewTable builds a Table; an empty catalog or schema is recorded as absent.
func NewTable(catalog, schema, name string) Table {
	return Table{
		Catalog: nullable(catalog),
		Schema:  nullable(schema),
		Name:    name,
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Parts returns the present components in catalog, schema, name order.
func (t Table) Parts() []string {
	parts := make([]string, 0, 3)
	if t.Catalog.Valid {
		parts = append(parts, t.Catalog.String)
	}
	if t.Schema.Valid {
		parts = append(parts, t.Schema.String)
	}
	return append(parts, t.Name)
}

// String renders the unquoted dotted name, e.g. "shop.public.orders".
func (t Table) String() string {
	return strings.Join(t.Parts(), ".")
}

// Compare orders tables by catalog, schema, then name, with absent
// components sorting before present ones.
func (t Table) Compare(o Table) int {
	if c := compareNull(t.Catalog, o.Catalog); c != 0 {
		return c
	}
	if c := compareNull(t.Schema, o.Schema); c != 0 {
		return c
	}
	return cmp.Compare(t.Name, o.Name)
}

func compareNull(a, b sql.NullString) int {
	switch {
	case a.Valid && b.Valid:
		return cmp.Compare(a.String, b.String)
	case a.Valid:
		return 1
	case b.Valid:
		return -1
	default:
		return 0
	}
}
