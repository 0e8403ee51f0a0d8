package fixture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/koustreak/tablewipe/internal/connect"
	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/database/databasetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTB records what the fixture does to a test instead of failing it.
type fakeTB struct {
	testing.TB

	cleanups []func()
	logs     []string
	fatals   []string
}

func (f *fakeTB) Helper()                         {}
func (f *fakeTB) Cleanup(fn func())               { f.cleanups = append(f.cleanups, fn) }
func (f *fakeTB) Log(args ...any)                 { f.logs = append(f.logs, fmt.Sprint(args...)) }
func (f *fakeTB) Logf(format string, args ...any) { f.logs = append(f.logs, fmt.Sprintf(format, args...)) }
func (f *fakeTB) Fatalf(format string, args ...any) {
	f.fatals = append(f.fatals, fmt.Sprintf(format, args...))
}

func (f *fakeTB) runCleanups() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

// shopConn answers the Postgres introspection queries for a two-table
// schema where orders references customers.
func shopConn() *databasetest.Conn {
	return &databasetest.Conn{
		OnQuery: func(sql string, args []any) ([][]any, error) {
			if strings.Contains(sql, "information_schema.tables") {
				return [][]any{
					{"shop", "public", "customers"},
					{"shop", "public", "orders"},
				}, nil
			}
			if args[1] == "customers" {
				return [][]any{{"shop", "public", "orders"}}, nil
			}
			return nil, nil
		},
		OnExec: func(string, []any) (int64, error) { return 2, nil },
	}
}

func resolverFor(conn database.Conn, resolves *int) connect.Resolver {
	return connect.ResolverFunc(func(context.Context, any) (*connect.Session, error) {
		*resolves++
		return connect.NewSession(database.DriverPostgres, conn)
	})
}

func execs(conn *databasetest.Conn) []string {
	var out []string
	for _, c := range conn.Calls() {
		if strings.HasPrefix(c.SQL, "DELETE") {
			out = append(out, c.SQL)
		}
	}
	return out
}

func TestTruncateAfter_RunsAtCleanup(t *testing.T) {
	conn := shopConn()
	var resolved int
	tb := &fakeTB{}

	TruncateAfter(tb, "handle", WithResolver(resolverFor(conn, &resolved)))
	assert.Empty(t, conn.Calls(), "nothing runs before cleanup")
	require.Len(t, tb.cleanups, 1)

	tb.runCleanups()
	assert.Equal(t, 1, resolved)
	assert.Equal(t, []string{
		`DELETE FROM "shop"."public"."orders"`,
		`DELETE FROM "shop"."public"."customers"`,
	}, execs(conn))
	assert.Empty(t, tb.fatals)
}

func TestTruncateAfter_NilSourceIsSkipped(t *testing.T) {
	tb := &fakeTB{}

	TruncateAfter(tb, nil)
	assert.Empty(t, tb.cleanups)
	assert.Nil(t, TruncateNow(tb, nil))
}

func TestTruncateNow_VerboseGoesToTestLog(t *testing.T) {
	var resolved int
	tb := &fakeTB{}

	report := TruncateNow(tb, "handle", Verbose(), WithResolver(resolverFor(shopConn(), &resolved)))
	require.NotNil(t, report)
	assert.Equal(t, int64(4), report.RowsDeleted())
	assert.Equal(t, []string{
		`Executing 'DELETE FROM "shop"."public"."orders"'... 2 rows deleted`,
		`Executing 'DELETE FROM "shop"."public"."customers"'... 2 rows deleted`,
	}, tb.logs)
}

func TestTruncateNow_FailureFailsTest(t *testing.T) {
	conn := shopConn()
	conn.OnExec = func(string, []any) (int64, error) { return 0, errors.New("disk full") }
	var resolved int
	tb := &fakeTB{}

	TruncateNow(tb, "handle", WithResolver(resolverFor(conn, &resolved)))
	require.Len(t, tb.fatals, 1)
	assert.Contains(t, tb.fatals[0], "error deleting data from shop.public.orders")
}

func TestTruncateNow_QuietOnlyLogs(t *testing.T) {
	tb := &fakeTB{}
	failing := connect.ResolverFunc(func(context.Context, any) (*connect.Session, error) {
		return nil, errors.New("no route to host")
	})

	TruncateNow(tb, "handle", Quiet(), WithResolver(failing))
	assert.Empty(t, tb.fatals)
	require.Len(t, tb.logs, 1)
	assert.Contains(t, tb.logs[0], "no route to host")
}

func TestTruncateNow_DefaultResolverRejectsUnknownHandle(t *testing.T) {
	tb := &fakeTB{}

	TruncateNow(tb, 42)
	require.Len(t, tb.fatals, 1)
	assert.Contains(t, tb.fatals[0], "unsupported database source int")
}

func TestTruncateNow_Timeout(t *testing.T) {
	tb := &fakeTB{}
	var deadline time.Time
	r := connect.ResolverFunc(func(ctx context.Context, _ any) (*connect.Session, error) {
		deadline, _ = ctx.Deadline()
		return nil, errors.New("stop")
	})

	TruncateNow(tb, "handle", Quiet(), WithTimeout(time.Minute), WithResolver(r))
	assert.False(t, deadline.IsZero())
}
