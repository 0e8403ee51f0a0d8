package truncate

import (
	"context"
	"fmt"
	"strings"

	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/errs"
)

// fakeDB is an in-memory schema that implements both database.Conn and
// database.Metadata. It enforces foreign keys like a RESTRICT database:
// deleting from a table fails while another table that references it
// still holds rows.
type fakeDB struct {
	tables []database.Table
	// children[parent] lists the tables holding a foreign key into parent.
	children map[database.Table][]database.Table
	rows     map[database.Table]int64

	listErr error
	keysErr map[database.Table]error
	execErr map[database.Table]error

	keyQueries []database.Table
	executed   []string
}

func newFakeDB(tables ...database.Table) *fakeDB {
	db := &fakeDB{
		tables:   tables,
		children: make(map[database.Table][]database.Table),
		rows:     make(map[database.Table]int64),
		keysErr:  make(map[database.Table]error),
		execErr:  make(map[database.Table]error),
	}
	for _, t := range tables {
		db.rows[t] = 3
	}
	return db
}

// reference declares that child holds a foreign key into parent.
func (db *fakeDB) reference(child, parent database.Table) *fakeDB {
	db.children[parent] = append(db.children[parent], child)
	return db
}

func (db *fakeDB) ListTables(context.Context) ([]database.Table, error) {
	if db.listErr != nil {
		return nil, db.listErr
	}
	return append([]database.Table(nil), db.tables...), nil
}

func (db *fakeDB) ExportedKeys(_ context.Context, t database.Table) ([]database.Table, error) {
	db.keyQueries = append(db.keyQueries, t)
	if err := db.keysErr[t]; err != nil {
		return nil, err
	}
	return append([]database.Table(nil), db.children[t]...), nil
}

func (db *fakeDB) QuoteTable(t database.Table) string {
	return t.String()
}

func (db *fakeDB) Query(context.Context, string, ...any) (database.Rows, error) {
	return nil, fmt.Errorf("fakeDB: Query not supported")
}

func (db *fakeDB) Exec(_ context.Context, sql string, _ ...any) (int64, error) {
	db.executed = append(db.executed, sql)

	name, ok := strings.CutPrefix(sql, "DELETE FROM ")
	if !ok {
		return 0, fmt.Errorf("fakeDB: unexpected statement %q", sql)
	}
	t, ok := db.lookup(name)
	if !ok {
		return 0, errs.New(errs.ErrKindNotFound, "no such table "+name)
	}
	if err := db.execErr[t]; err != nil {
		return 0, err
	}
	for _, c := range db.children[t] {
		if c != t && db.rows[c] > 0 {
			return 0, errs.New(errs.ErrKindConstraintViolation,
				fmt.Sprintf("%s still referenced from %s", t, c))
		}
	}

	n := db.rows[t]
	db.rows[t] = 0
	return n, nil
}

func (db *fakeDB) lookup(name string) (database.Table, bool) {
	for _, t := range db.tables {
		if t.String() == name {
			return t, true
		}
	}
	return database.Table{}, false
}

// deletedTables returns the table names in execution order.
func (db *fakeDB) deletedTables() []string {
	names := make([]string, len(db.executed))
	for i, s := range db.executed {
		names[i] = strings.TrimPrefix(s, "DELETE FROM ")
	}
	return names
}

func (db *fakeDB) totalRows() int64 {
	var n int64
	for _, r := range db.rows {
		n += r
	}
	return n
}

type recordingObserver struct {
	deleted  []string
	finished int
	lastErr  error
	report   *Report
}

func (o *recordingObserver) TableDeleted(d Deletion) {
	o.deleted = append(o.deleted, d.Name)
}

func (o *recordingObserver) RunFinished(r *Report, err error) {
	o.finished++
	o.report = r
	o.lastErr = err
}
