package database

import (
	"context"
	"testing"
	"time"

	"github.com/koustreak/tablewipe/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDriver(t *testing.T) {
	tests := []struct {
		in   string
		want Driver
	}{
		{"postgres", DriverPostgres},
		{"PostgreSQL", DriverPostgres},
		{" pgx ", DriverPostgres},
		{"mysql", DriverMySQL},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDriver(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseDriver("oracle")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/app_test")

	assert.Equal(t, DriverPostgres, cfg.Driver)
	assert.Equal(t, "postgres://localhost/app_test", cfg.DSN)
	assert.Positive(t, cfg.MaxConns)
	assert.Positive(t, cfg.ConnectTimeout)
	assert.Positive(t, cfg.QueryTimeout)
}

func TestConfig_RunContext(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/app_test")
	cfg.QueryTimeout = time.Minute

	ctx, cancel := cfg.RunContext(context.Background())
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	cancel()
	assert.Error(t, ctx.Err())

	cfg.QueryTimeout = 0
	ctx, cancel = cfg.RunContext(context.Background())
	defer cancel()
	_, ok = ctx.Deadline()
	assert.False(t, ok)
}
