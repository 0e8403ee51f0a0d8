package main

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/koustreak/tablewipe/internal/config"
	"github.com/koustreak/tablewipe/internal/connect"
	"github.com/koustreak/tablewipe/internal/database"
	"github.com/koustreak/tablewipe/internal/database/databasetest"
	"github.com/koustreak/tablewipe/internal/logger"
	"github.com/koustreak/tablewipe/internal/metrics"
	"github.com/koustreak/tablewipe/internal/truncate"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shopSession(t *testing.T) *connect.Session {
	t.Helper()
	conn := &databasetest.Conn{
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
		OnExec: func(string, []any) (int64, error) { return 3, nil },
	}
	sess, err := connect.NewSession(database.DriverPostgres, conn)
	require.NoError(t, err)
	return sess
}

func TestRunOptions_Metrics(t *testing.T) {
	tests := []struct {
		name   string
		dryRun bool
		runs   int
	}{
		{"run is recorded", false, 1},
		{"plan is not recorded", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector, err := metrics.NewCollector()
			require.NoError(t, err)
			sess := shopSession(t)

			opts := append(runOptions(config.Default(), logger.Nop(), collector, tt.dryRun), truncate.WithOutput(io.Discard))
			report, err := truncate.Run(context.Background(), sess.Conn, sess.Metadata, opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.dryRun, report.DryRun)

			n, err := testutil.GatherAndCount(collector.Registry(), "tablewipe_truncate_runs_total")
			require.NoError(t, err)
			assert.Equal(t, tt.runs, n)
		})
	}
}
