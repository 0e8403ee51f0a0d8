// Package truncate empties every base table of a database in an order that
// never violates a foreign key.
//
// The engine reads the table list once, then repeatedly picks the first
// remaining table (in catalog, schema, name order) and deletes from it
// after recursively deleting from every remaining table that references
// it. Dependencies are read from live metadata one table at a time and
// never cached, so each run sees the schema as it is.
//
//	report, err := truncate.Run(ctx, conn, postgres.NewIntrospector(conn),
//	    truncate.Verbose(true),
//	    truncate.WithLogger(log),
//	)
package truncate

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/logger"
)

type options struct {
	verbose   bool
	dryRun    bool
	out       io.Writer
	log       *logger.Logger
	observers []Observer
}

// Option configures a run.
type Option func(*options)

// Verbose prints one line per executed DELETE with its affected-row count.
func Verbose(v bool) Option {
	return func(o *options) { o.verbose = v }
}

// DryRun computes the delete order and records every statement without
// executing it. Dependencies are still read from live metadata.
func DryRun(v bool) Option {
	return func(o *options) { o.dryRun = v }
}

// WithOutput sets where verbose lines are written. Defaults to stdout; a
// nil writer discards them.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithLogger sets the structured logger. Defaults to a no-op logger, as
// does a nil l.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithObserver registers an Observer for deletions and run completion.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// run holds the mutable state of one truncation run.
type run struct {
	conn database.Conn
	meta database.Metadata
	opts options
	log  *logger.Logger

	remaining map[database.Table]struct{}
	stack     []database.Table
	onStack   map[database.Table]bool
	report    *Report
}

// Run deletes every row of every base table visible through meta, issuing
// all statements over conn. It borrows conn and never closes it.
//
// The returned Report is never nil; on error it lists the deletions that
// completed before the failure. Errors are *IntrospectionError,
// *DependencyQueryError, *DeleteError or *CycleError.
func Run(ctx context.Context, conn database.Conn, meta database.Metadata, opts ...Option) (*Report, error) {
	o := options{out: os.Stdout, log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	if o.out == nil {
		o.out = io.Discard
	}

	r := &run{
		conn:    conn,
		meta:    meta,
		opts:    o,
		onStack: make(map[database.Table]bool),
		report: &Report{
			RunID:     uuid.NewString(),
			StartedAt: time.Now(),
			DryRun:    o.dryRun,
		},
	}
	r.log = o.log.With().Str("run_id", r.report.RunID).Logger()

	err := r.truncate(ctx)
	r.finish(err)
	return r.report, err
}

func (r *run) truncate(ctx context.Context) error {
	tables, err := r.meta.ListTables(ctx)
	if err != nil {
		return &IntrospectionError{Cause: err}
	}

	r.remaining = make(map[database.Table]struct{}, len(tables))
	for _, t := range tables {
		r.remaining[t] = struct{}{}
	}
	order := slices.SortedFunc(maps.Keys(r.remaining), database.Table.Compare)

	r.log.DebugWith("tables found", map[string]interface{}{"tables": len(order)})

	for _, t := range order {
		if _, ok := r.remaining[t]; !ok {
			continue
		}
		if err := r.deleteFrom(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// deleteFrom empties every remaining dependent of t, then t itself.
func (r *run) deleteFrom(ctx context.Context, t database.Table) error {
	r.stack = append(r.stack, t)
	r.onStack[t] = true
	defer func() {
		r.stack = r.stack[:len(r.stack)-1]
		delete(r.onStack, t)
	}()

	children, err := r.meta.ExportedKeys(ctx, t)
	if err != nil {
		return &DependencyQueryError{Table: t, Cause: err}
	}

	for _, c := range children {
		if _, ok := r.remaining[c]; !ok {
			continue
		}
		if r.onStack[c] {
			// A self-reference is emptied by the table's own DELETE.
			if c == t {
				continue
			}
			return &CycleError{Path: r.cycleTo(c)}
		}
		if err := r.deleteFrom(ctx, c); err != nil {
			return err
		}
	}

	return r.exec(ctx, t)
}

func (r *run) exec(ctx context.Context, t database.Table) error {
	stmt := "DELETE FROM " + r.meta.QuoteTable(t)

	start := time.Now()
	var n int64
	if !r.opts.dryRun {
		var err error
		n, err = r.conn.Exec(ctx, stmt)
		if err != nil {
			return &DeleteError{Table: t, Statement: stmt, Cause: err}
		}
	}
	delete(r.remaining, t)

	d := Deletion{
		Table:     t,
		Name:      t.String(),
		Statement: stmt,
		Rows:      n,
		Duration:  time.Since(start),
	}
	r.report.Tables = append(r.report.Tables, d)

	switch {
	case r.opts.verbose && r.opts.dryRun:
		fmt.Fprintf(r.opts.out, "Planned '%s'\n", stmt)
	case r.opts.verbose:
		fmt.Fprintf(r.opts.out, "Executing '%s'... %d rows deleted\n", stmt, n)
	}
	r.log.DebugWith("table emptied", map[string]interface{}{
		"table":       d.Name,
		"rows":        n,
		"duration_ms": d.Duration.Milliseconds(),
	})
	for _, obs := range r.opts.observers {
		obs.TableDeleted(d)
	}
	return nil
}

// cycleTo returns the call-stack path from c back to c.
func (r *run) cycleTo(c database.Table) []database.Table {
	i := slices.Index(r.stack, c)
	path := slices.Clone(r.stack[i:])
	return append(path, c)
}

func (r *run) finish(err error) {
	r.report.Duration = time.Since(r.report.StartedAt)

	log := r.log.With().
		Int("tables", len(r.report.Tables)).
		Int64("rows", r.report.RowsDeleted()).
		Dur("duration", r.report.Duration).
		Bool("dry_run", r.opts.dryRun).
		Logger()

	if err != nil {
		r.report.Error = err.Error()
		var fields map[string]interface{}
		if t, ok := FailedTable(err); ok {
			fields = map[string]interface{}{"table": t.String()}
		}
		log.ErrorWith("truncation failed", err, fields)
	} else {
		log.Info("truncation finished")
	}

	for _, obs := range r.opts.observers {
		obs.RunFinished(r.report, err)
	}
}
